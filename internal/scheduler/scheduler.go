package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"BoostIQ/internal/model"
	"BoostIQ/internal/notifier"
	"BoostIQ/internal/screener"

	"github.com/robfig/cron/v3"
)

// DefaultAlertCooldown is how long a symbol stays muted after it was pushed.
const DefaultAlertCooldown = 30 * time.Minute

// Service is the part of the screener the scheduled jobs and chat commands use.
type Service interface {
	WarmUp(ctx context.Context) error
	ComputeCandidates(ctx context.Context, profile string) ([]model.Candidate, error)
	ComputeAlerts(ctx context.Context, profile string) ([]model.Candidate, error)
	AnalyzeOne(ctx context.Context, symbol, profile string) (model.Candidate, error)
	TopGainers(ctx context.Context) ([]model.Gainer, error)
	NewListings(ctx context.Context) ([]model.Listing, error)
}

// Sender delivers chat messages. *notifier.TelegramNotifier implements it.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron          *cron.Cron
	Service       Service
	Notifier      Sender
	AlertCooldown time.Duration
	Ctx           context.Context
	Now           func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewScheduler creates a new Scheduler. sender may be nil, in which case
// alerts are only logged.
func NewScheduler(ctx context.Context, svc Service, sender Sender) *Scheduler {
	return &Scheduler{
		Cron:          cron.New(cron.WithSeconds()),
		Service:       svc,
		Notifier:      sender,
		AlertCooldown: DefaultAlertCooldown,
		Ctx:           ctx,
		Now:           time.Now,
		lastSent:      make(map[string]time.Time),
	}
}

// RegisterAll registers the cache warm-up and alert push tasks.
// An empty spec skips that task.
func (s *Scheduler) RegisterAll(warmCron, alertCron string) error {
	if warmCron != "" {
		if _, err := s.Cron.AddFunc(warmCron, s.warmTask); err != nil {
			return fmt.Errorf("register warm-up task: %w", err)
		}
	}
	if alertCron != "" {
		if _, err := s.Cron.AddFunc(alertCron, s.alertTask); err != nil {
			return fmt.Errorf("register alert task: %w", err)
		}
	}
	return nil
}

// RegisterSweep runs sweep on spec to purge expired rows from a persistent cache.
func (s *Scheduler) RegisterSweep(spec string, sweep func(ctx context.Context) (int64, error)) error {
	_, err := s.Cron.AddFunc(spec, func() {
		n, err := sweep(s.Ctx)
		if err != nil {
			log.Printf("[ERROR] cache sweep: %v", err)
			return
		}
		if n > 0 {
			log.Printf("[INFO] cache sweep removed %d entries", n)
		}
	})
	if err != nil {
		return fmt.Errorf("register sweep task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunWarmNow executes the warm-up task immediately (for RUN_ON_START).
func (s *Scheduler) RunWarmNow() {
	s.warmTask()
}

func (s *Scheduler) warmTask() {
	log.Println("[INFO] running cache warm-up")
	start := time.Now()
	if err := s.Service.WarmUp(s.Ctx); err != nil {
		log.Printf("[ERROR] warm-up: %v", err)
		return
	}
	log.Printf("[INFO] warm-up finished in %s", time.Since(start).Round(time.Millisecond))
}

func (s *Scheduler) alertTask() {
	alerts, err := s.Service.ComputeAlerts(s.Ctx, "")
	if err != nil {
		log.Printf("[ERROR] alert task: %v", err)
		return
	}
	fresh := s.unsent(alerts)
	if len(fresh) == 0 {
		return
	}
	log.Printf("[INFO] pushing %d alerts", len(fresh))
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, notifier.FormatCandidates("Pre-explosion alerts", fresh), 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}

// unsent drops candidates pushed within the cooldown and marks the rest as sent.
func (s *Scheduler) unsent(alerts []model.Candidate) []model.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	for sym, at := range s.lastSent {
		if now.Sub(at) >= s.AlertCooldown {
			delete(s.lastSent, sym)
		}
	}
	var fresh []model.Candidate
	for _, c := range alerts {
		if _, muted := s.lastSent[c.Symbol]; muted {
			continue
		}
		s.lastSent[c.Symbol] = now
		fresh = append(fresh, c)
	}
	return fresh
}

const helpText = "Available commands:\n" +
	"• /candidates [profile]\n" +
	"• /alerts [profile]\n" +
	"• /analyze SYMBOL [profile]\n" +
	"• /gainers\n" +
	"• /listings"

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// Telegram appends @botname to commands in groups.
	name := strings.ToLower(strings.SplitN(fields[0], "@", 2)[0])
	args := fields[1:]
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}

	switch name {
	case "/candidates", "/top":
		list, err := s.Service.ComputeCandidates(ctx, arg(0))
		if err != nil {
			return commandError(err)
		}
		return notifier.FormatCandidates("Explosion candidates", list)
	case "/alerts":
		list, err := s.Service.ComputeAlerts(ctx, arg(0))
		if err != nil {
			return commandError(err)
		}
		return notifier.FormatCandidates("Pre-explosion alerts", list)
	case "/analyze":
		if arg(0) == "" {
			return "Usage: /analyze SYMBOL [profile]"
		}
		c, err := s.Service.AnalyzeOne(ctx, arg(0), arg(1))
		if err != nil {
			return commandError(err)
		}
		return notifier.FormatAnalysis(c)
	case "/gainers":
		list, err := s.Service.TopGainers(ctx)
		if err != nil {
			return commandError(err)
		}
		return notifier.FormatGainers(list)
	case "/listings":
		list, err := s.Service.NewListings(ctx)
		if err != nil {
			return commandError(err)
		}
		return notifier.FormatListings(list)
	default:
		return helpText
	}
}

func commandError(err error) string {
	switch {
	case errors.Is(err, screener.ErrInvalidSymbol):
		return "❌ Symbol not found."
	case errors.Is(err, screener.ErrUnknownProfile):
		return "❌ Unknown profile."
	default:
		log.Printf("[ERROR] command failed: %v", err)
		return "❌ Market data is unavailable right now, try again later."
	}
}
