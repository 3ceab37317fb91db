package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"BoostIQ/internal/cache"
	"BoostIQ/internal/collector"
	"BoostIQ/internal/config"
	"BoostIQ/internal/httpapi"
	"BoostIQ/internal/notifier"
	"BoostIQ/internal/scheduler"
	"BoostIQ/internal/screener"
	"BoostIQ/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] BoostIQ starting...")

	if err := config.LoadEnvFile(".env"); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init fetcher
	var fetcher collector.Fetcher
	if os.Getenv("MOCK_DATA") == "true" {
		fetcher = &collector.MockFetcher{Price: 1.0}
	} else {
		fetcher = collector.NewBinanceFetcher(cfg.Exchange.BaseURL, cfg.Exchange.APIKey, cfg.Proxy,
			cfg.Exchange.Timeout, cfg.Exchange.MaxInFlight)
	}
	log.Printf("[INFO] data source: %s", fetcher.Name())

	// Init collector
	col := collector.NewCollector(fetcher, collector.Settings{
		RSIPeriod:            cfg.Indicators.RSIPeriod,
		RSIInterval:          cfg.Indicators.RSIInterval,
		VolumeLookbackDays:   cfg.Indicators.VolumeLookbackDays,
		VolatilityWindow:     cfg.Indicators.VolatilityWindow,
		VolatilityInterval:   cfg.Indicators.VolatilityInterval,
		CompressionThreshold: cfg.Indicators.CompressionThreshold,
		NewListingWindow:     time.Duration(cfg.Indicators.NewListingDays) * 24 * time.Hour,
	})

	profiles, err := strategy.NewRegistry(cfg.Profiles)
	if err != nil {
		log.Fatalf("[FATAL] load profiles: %v", err)
	}
	log.Printf("[INFO] profiles: %v", profiles.Names())

	// Init cache
	store := openStore(ctx, cfg)
	defer store.Close()

	scr := screener.New(fetcher, col, profiles, store, screener.Config{
		QuoteSuffix:    cfg.Screener.QuoteSuffix,
		Denylist:       cfg.Screener.Denylist,
		TopResults:     cfg.Screener.TopResults,
		MaxCandidates:  cfg.Screener.MaxCandidates,
		MaxConcurrency: cfg.Screener.MaxConcurrency,
		ShortTTL:       cfg.Screener.ShortTTL,
		LongTTL:        cfg.Screener.LongTTL,
		ComputeTimeout: cfg.Screener.ComputeTimeout,
		DefaultProfile: cfg.Screener.DefaultProfile,
		AlertProfile:   cfg.Screener.AlertProfile,
	})
	for _, name := range []string{cfg.Screener.DefaultProfile, cfg.Screener.AlertProfile} {
		if _, err := scr.Profile(name, name); err != nil {
			log.Fatalf("[FATAL] %v", err)
		}
	}

	// Init Telegram notifier
	var sender scheduler.Sender
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sender = tn
	} else {
		log.Println("[INFO] telegram not configured, alerts are only logged")
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, scr, sender)
	if err := sched.RegisterAll(cfg.Schedule.WarmCron, cfg.Schedule.AlertCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	if ss, ok := store.(*cache.SQLiteStore); ok {
		if err := sched.RegisterSweep("0 */10 * * * *", ss.Sweep); err != nil {
			log.Fatalf("[FATAL] %v", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	// Optional: warm caches immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, warming caches now")
		go sched.RunWarmNow()
	}

	srv := httpapi.NewServer(scr, httpapi.Options{
		Port:           cfg.Server.Port,
		RateLimit:      cfg.RateLimit.Requests,
		RateWindow:     cfg.RateLimit.Window,
		DefaultProfile: cfg.Screener.DefaultProfile,
		AlertProfile:   cfg.Screener.AlertProfile,
	})
	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Start() }()

	log.Println("[INFO] BoostIQ is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Println("[INFO] shutdown signal received, stopping...")
	case err := <-serverErr:
		if err != nil {
			log.Printf("[ERROR] http server: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] http shutdown: %v", err)
	}
	cancel()
	log.Println("[INFO] BoostIQ stopped")
}

// openStore opens the configured cache backend, falling back to memory when
// redis or sqlite cannot be opened.
func openStore(ctx context.Context, cfg *config.Config) cache.Store {
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		rs, err := cache.NewRedisStore(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err == nil {
			log.Printf("[INFO] cache: redis at %s", cfg.Cache.RedisAddr)
			return rs
		}
		log.Printf("[WARN] init redis cache failed, using memory: %v", err)
	case config.CacheSQLite:
		ss, err := cache.NewSQLiteStore(cfg.Cache.SQLitePath)
		if err == nil {
			return ss
		}
		log.Printf("[WARN] init sqlite cache failed, using memory: %v", err)
	}
	log.Println("[INFO] cache: in-memory")
	return cache.NewMemoryStore(cfg.Cache.SweepInterval)
}
