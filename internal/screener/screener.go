package screener

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"BoostIQ/internal/cache"
	"BoostIQ/internal/collector"
	"BoostIQ/internal/model"
	"BoostIQ/internal/strategy"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var (
	ErrUnknownProfile = errors.New("unknown profile")
	ErrInvalidSymbol  = errors.New("invalid symbol")
)

// IndicatorSource computes the indicator set of one snapshot row.
// collector.Collector is the production implementation.
type IndicatorSource interface {
	Collect(ctx context.Context, snap model.TickerSnapshot, p model.Profile, listings map[string]time.Time) model.IndicatorSet
}

// Config holds the screener limits and cache lifetimes.
type Config struct {
	QuoteSuffix    string
	Denylist       []string
	TopResults     int
	MaxCandidates  int
	MaxConcurrency int
	ShortTTL       time.Duration
	LongTTL        time.Duration
	ComputeTimeout time.Duration
	DefaultProfile string
	AlertProfile   string
}

// DefaultConfig returns the standard screener limits.
func DefaultConfig() Config {
	return Config{
		QuoteSuffix:    "USDT",
		Denylist:       DefaultDenylist,
		TopResults:     5,
		MaxCandidates:  50,
		MaxConcurrency: 8,
		ShortTTL:       2 * time.Minute,
		LongTTL:        30 * time.Minute,
		ComputeTimeout: time.Minute,
		DefaultProfile: strategy.ProfileExplosion,
		AlertProfile:   strategy.ProfilePreExplosion,
	}
}

// Screener runs the ranking pipeline and caches its results.
type Screener struct {
	fetcher    collector.Fetcher
	indicators IndicatorSource
	profiles   *strategy.Registry
	cfg        Config
	deny       map[string]struct{}

	ranked    *cache.Cache[[]model.Candidate]
	snapshots *cache.Cache[[]model.TickerSnapshot]
	listings  *cache.Cache[[]model.ListingInfo]
	gainers   *cache.Cache[[]model.Gainer]

	sf singleflight.Group
}

// New creates a Screener. Zero-valued limits in cfg fall back to DefaultConfig.
func New(fetcher collector.Fetcher, indicators IndicatorSource, profiles *strategy.Registry, store cache.Store, cfg Config) *Screener {
	def := DefaultConfig()
	if cfg.QuoteSuffix == "" {
		cfg.QuoteSuffix = def.QuoteSuffix
	}
	if cfg.Denylist == nil {
		cfg.Denylist = def.Denylist
	}
	if cfg.TopResults <= 0 {
		cfg.TopResults = def.TopResults
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = def.MaxCandidates
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = def.MaxConcurrency
	}
	if cfg.ShortTTL <= 0 {
		cfg.ShortTTL = def.ShortTTL
	}
	if cfg.LongTTL <= 0 {
		cfg.LongTTL = def.LongTTL
	}
	if cfg.ComputeTimeout <= 0 {
		cfg.ComputeTimeout = def.ComputeTimeout
	}
	if cfg.DefaultProfile == "" {
		cfg.DefaultProfile = def.DefaultProfile
	}
	if cfg.AlertProfile == "" {
		cfg.AlertProfile = def.AlertProfile
	}

	deny := make(map[string]struct{}, len(cfg.Denylist))
	for _, sym := range cfg.Denylist {
		deny[strings.ToUpper(sym)] = struct{}{}
	}

	return &Screener{
		fetcher:    fetcher,
		indicators: indicators,
		profiles:   profiles,
		cfg:        cfg,
		deny:       deny,
		ranked:     cache.New[[]model.Candidate](store, "ranked:"),
		snapshots:  cache.New[[]model.TickerSnapshot](store, "snapshot:"),
		listings:   cache.New[[]model.ListingInfo](store, "listings:"),
		gainers:    cache.New[[]model.Gainer](store, "gainers:"),
	}
}

// Config returns the effective configuration.
func (s *Screener) Config() Config { return s.cfg }

// ListProfiles returns every registered profile ordered by name.
func (s *Screener) ListProfiles() []model.Profile { return s.profiles.All() }

// Profile resolves name, falling back to fallback when name is empty.
func (s *Screener) Profile(name, fallback string) (model.Profile, error) {
	if strings.TrimSpace(name) == "" {
		name = fallback
	}
	p, ok := s.profiles.Get(name)
	if !ok {
		return model.Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}

// ComputeCandidates returns the ranked candidates for profileName
// (default "explosion"), served from cache while fresh.
func (s *Screener) ComputeCandidates(ctx context.Context, profileName string) ([]model.Candidate, error) {
	p, err := s.Profile(profileName, s.cfg.DefaultProfile)
	if err != nil {
		return nil, err
	}
	return s.cachedRank(ctx, "candidates:"+p.Name, p, false)
}

// ComputeAlerts runs the same pipeline as ComputeCandidates under the alert
// profile (default "pre-explosion") and caches it separately.
func (s *Screener) ComputeAlerts(ctx context.Context, profileName string) ([]model.Candidate, error) {
	p, err := s.Profile(profileName, s.cfg.AlertProfile)
	if err != nil {
		return nil, err
	}
	return s.cachedRank(ctx, "alerts:"+p.Name, p, false)
}

// WarmUp recomputes the default candidate and alert lists, bypassing the cache.
func (s *Screener) WarmUp(ctx context.Context) error {
	var errs []error
	for _, job := range []struct{ prefix, profile string }{
		{"candidates:", s.cfg.DefaultProfile},
		{"alerts:", s.cfg.AlertProfile},
	} {
		p, err := s.Profile(job.profile, job.profile)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := s.cachedRank(ctx, job.prefix+p.Name, p, true); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Screener) cachedRank(ctx context.Context, key string, p model.Profile, force bool) ([]model.Candidate, error) {
	if !force {
		if out, ok := s.ranked.Get(ctx, key); ok {
			return out, nil
		}
	}
	v, err := s.shared(ctx, key, func(ctx context.Context) (interface{}, error) {
		snapshot, err := s.snapshot(ctx, force)
		if err != nil {
			return nil, err
		}
		out, err := s.Rank(ctx, snapshot, p)
		if err != nil {
			return nil, err
		}
		if err := s.ranked.Set(ctx, key, out, s.cfg.ShortTTL); err != nil {
			log.Printf("[WARN] cache %s: %v", key, err)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]model.Candidate(nil), v.([]model.Candidate)...), nil
}

// shared runs fn once per key for all concurrent callers. fn runs detached
// from the caller's cancellation, bounded by ComputeTimeout, so one caller
// giving up does not fail the others. Each caller still returns as soon as
// its own ctx is done.
func (s *Screener) shared(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	ch := s.sf.DoChan(key, func() (interface{}, error) {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ComputeTimeout)
		defer cancel()
		return fn(wctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// Rank gates, scores and orders snapshot under profile p. It returns at most
// TopResults candidates, sorted by descending score with snapshot order
// breaking ties. Only a cancelled ctx makes it fail.
func (s *Screener) Rank(ctx context.Context, snapshot []model.TickerSnapshot, p model.Profile) ([]model.Candidate, error) {
	type entry struct {
		idx  int
		snap model.TickerSnapshot
	}

	rejected := make(map[string]int)
	seen := make(map[string]struct{}, len(snapshot))
	var pool []entry
	for i, t := range snapshot {
		if _, dup := seen[t.Symbol]; dup {
			continue
		}
		seen[t.Symbol] = struct{}{}
		if reason := s.preGate(t, p); reason != "" {
			rejected[reason]++
			continue
		}
		pool = append(pool, entry{idx: i, snap: t})
	}

	if len(pool) > s.cfg.MaxCandidates {
		sort.SliceStable(pool, func(i, j int) bool {
			return pool[i].snap.PriceChangePercent24h > pool[j].snap.PriceChangePercent24h
		})
		pool = pool[:s.cfg.MaxCandidates]
	}

	listings := s.listingIndex(ctx)

	results := make([]*model.Candidate, len(pool))
	reasons := make([]string, len(pool))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrency)
	for i, e := range pool {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ind := s.indicators.Collect(gctx, e.snap, p, listings)
			score := strategy.Score(ind, p)
			if reason := postGate(ind, score, p); reason != "" {
				reasons[i] = reason
				return nil
			}
			c := buildCandidate(e.snap, ind, score, p)
			results[i] = &c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	type ranked struct {
		idx int
		c   model.Candidate
	}
	var survivors []ranked
	for i, r := range results {
		if r == nil {
			rejected[reasons[i]]++
			continue
		}
		survivors = append(survivors, ranked{idx: pool[i].idx, c: *r})
	}
	sort.SliceStable(survivors, func(i, j int) bool {
		a, b := survivors[i], survivors[j]
		if a.c.Score.RawScore != b.c.Score.RawScore {
			return a.c.Score.RawScore > b.c.Score.RawScore
		}
		return a.idx < b.idx
	})
	if len(survivors) > s.cfg.TopResults {
		survivors = survivors[:s.cfg.TopResults]
	}

	out := make([]model.Candidate, len(survivors))
	for i, r := range survivors {
		out[i] = r.c
	}
	log.Printf("[INFO] rank %s: %d tickers, %d scored, %d ranked, rejected %v",
		p.Name, len(snapshot), len(pool), len(out), rejected)
	return out, nil
}

// AnalyzeOne scores a single symbol under profileName without gating.
func (s *Screener) AnalyzeOne(ctx context.Context, symbol, profileName string) (model.Candidate, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return model.Candidate{}, fmt.Errorf("%w: empty symbol", ErrInvalidSymbol)
	}
	p, err := s.Profile(profileName, s.cfg.DefaultProfile)
	if err != nil {
		return model.Candidate{}, err
	}
	snapshot, err := s.snapshot(ctx, false)
	if err != nil {
		return model.Candidate{}, err
	}
	for _, t := range snapshot {
		if t.Symbol != symbol {
			continue
		}
		ind := s.indicators.Collect(ctx, t, p, s.listingIndex(ctx))
		score := strategy.Score(ind, p)
		return buildCandidate(t, ind, score, p), nil
	}
	return model.Candidate{}, fmt.Errorf("%w: %s", ErrInvalidSymbol, symbol)
}

// TopGainers returns the pre-gated pairs with the largest 24h change.
// It needs no candle history.
func (s *Screener) TopGainers(ctx context.Context) ([]model.Gainer, error) {
	if out, ok := s.gainers.Get(ctx, "top"); ok {
		return out, nil
	}
	p, err := s.Profile(strategy.ProfileTopGainer, strategy.ProfileTopGainer)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.snapshot(ctx, false)
	if err != nil {
		return nil, err
	}

	var out []model.Gainer
	seen := make(map[string]struct{}, len(snapshot))
	for _, t := range snapshot {
		if _, dup := seen[t.Symbol]; dup {
			continue
		}
		seen[t.Symbol] = struct{}{}
		if s.preGate(t, p) != "" {
			continue
		}
		out = append(out, model.Gainer{
			Symbol:             t.Symbol,
			Price:              t.LastPrice,
			PriceChangePercent: t.PriceChangePercent24h,
			QuoteVolume24h:     t.QuoteVolume24h,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PriceChangePercent > out[j].PriceChangePercent
	})
	if len(out) > s.cfg.TopResults {
		out = out[:s.cfg.TopResults]
	}
	if err := s.gainers.Set(ctx, "top", out, s.cfg.ShortTTL); err != nil {
		log.Printf("[WARN] cache gainers: %v", err)
	}
	return out, nil
}

// NewListings returns the most recently onboarded listable pairs, newest first.
func (s *Screener) NewListings(ctx context.Context) ([]model.Listing, error) {
	infos, err := s.exchangeInfo(ctx)
	if err != nil {
		return nil, err
	}
	var eligible []model.ListingInfo
	for _, li := range infos {
		if s.listable(li.Symbol) {
			eligible = append(eligible, li)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].OnboardDate.After(eligible[j].OnboardDate)
	})
	if len(eligible) > s.cfg.TopResults {
		eligible = eligible[:s.cfg.TopResults]
	}
	out := make([]model.Listing, len(eligible))
	for i, li := range eligible {
		out[i] = model.Listing{Symbol: li.Symbol}
		if !li.OnboardDate.IsZero() {
			out[i].OnboardDate = li.OnboardDate.UnixMilli()
		}
	}
	return out, nil
}

// snapshot returns the cached ticker snapshot, fetching it on a miss.
// Concurrent misses share one upstream call.
func (s *Screener) snapshot(ctx context.Context, force bool) ([]model.TickerSnapshot, error) {
	if !force {
		if snap, ok := s.snapshots.Get(ctx, "all"); ok {
			return snap, nil
		}
	}
	v, err := s.shared(ctx, "snapshot", func(ctx context.Context) (interface{}, error) {
		snap, err := s.fetcher.FetchSnapshot(ctx)
		if err != nil {
			log.Printf("[ERROR] %s snapshot: %v", s.fetcher.Name(), err)
			return nil, err
		}
		if err := s.snapshots.Set(ctx, "all", snap, s.cfg.ShortTTL); err != nil {
			log.Printf("[WARN] cache snapshot: %v", err)
		}
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]model.TickerSnapshot(nil), v.([]model.TickerSnapshot)...), nil
}

func (s *Screener) exchangeInfo(ctx context.Context) ([]model.ListingInfo, error) {
	if infos, ok := s.listings.Get(ctx, "all"); ok {
		return infos, nil
	}
	v, err := s.shared(ctx, "exchangeInfo", func(ctx context.Context) (interface{}, error) {
		infos, err := s.fetcher.FetchExchangeInfo(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.listings.Set(ctx, "all", infos, s.cfg.LongTTL); err != nil {
			log.Printf("[WARN] cache listings: %v", err)
		}
		return infos, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]model.ListingInfo(nil), v.([]model.ListingInfo)...), nil
}

// listingIndex maps symbol to onboard date. A failed lookup only disables
// the new-listing bonus for this run.
func (s *Screener) listingIndex(ctx context.Context) map[string]time.Time {
	infos, err := s.exchangeInfo(ctx)
	if err != nil {
		log.Printf("[WARN] exchange info unavailable, new-listing bonus disabled: %v", err)
		return nil
	}
	idx := make(map[string]time.Time, len(infos))
	for _, li := range infos {
		idx[li.Symbol] = li.OnboardDate
	}
	return idx
}

func buildCandidate(t model.TickerSnapshot, ind model.IndicatorSet, score model.CompositeScore, p model.Profile) model.Candidate {
	return model.Candidate{
		Symbol:                t.Symbol,
		Price:                 t.LastPrice,
		PriceChangePercent24h: t.PriceChangePercent24h,
		QuoteVolume24h:        t.QuoteVolume24h,
		Indicators:            ind,
		Score:                 score,
		Recommendation:        strategy.Recommend(t.LastPrice, score, p),
	}
}
