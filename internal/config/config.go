package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"BoostIQ/internal/model"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheSQLite = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Exchange struct {
		BaseURL     string        `yaml:"base_url"`
		APIKey      string        `yaml:"api_key"`
		Timeout     time.Duration `yaml:"timeout"`
		MaxInFlight int64         `yaml:"max_in_flight"`
	} `yaml:"exchange"`
	Screener struct {
		QuoteSuffix    string        `yaml:"quote_suffix"`
		Denylist       []string      `yaml:"denylist"`
		TopResults     int           `yaml:"top_results"`
		MaxCandidates  int           `yaml:"max_candidates"`
		MaxConcurrency int           `yaml:"max_concurrency"`
		ShortTTL       time.Duration `yaml:"short_ttl"`
		LongTTL        time.Duration `yaml:"long_ttl"`
		ComputeTimeout time.Duration `yaml:"compute_timeout"`
		DefaultProfile string        `yaml:"default_profile"`
		AlertProfile   string        `yaml:"alert_profile"`
	} `yaml:"screener"`
	Indicators struct {
		RSIPeriod            int     `yaml:"rsi_period"`
		RSIInterval          string  `yaml:"rsi_interval"`
		VolumeLookbackDays   int     `yaml:"volume_lookback_days"`
		VolatilityWindow     int     `yaml:"volatility_window"`
		VolatilityInterval   string  `yaml:"volatility_interval"`
		CompressionThreshold float64 `yaml:"compression_threshold"`
		NewListingDays       int     `yaml:"new_listing_days"`
	} `yaml:"indicators"`
	Cache struct {
		Backend       string        `yaml:"backend"`
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		RedisDB       int           `yaml:"redis_db"`
		SQLitePath    string        `yaml:"sqlite_path"`
		SweepInterval time.Duration `yaml:"sweep_interval"`
	} `yaml:"cache"`
	RateLimit struct {
		Requests int           `yaml:"requests"`
		Window   time.Duration `yaml:"window"`
	} `yaml:"rate_limit"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		WarmCron  string `yaml:"warm_cron"`
		AlertCron string `yaml:"alert_cron"`
	} `yaml:"schedule"`
	Profiles []model.Profile `yaml:"profiles"`
	Proxy    string          `yaml:"proxy"`
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment without overriding variables that are already set.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		cfg.Exchange.APIKey = v
	}
	if v := os.Getenv("BINANCE_BASE_URL"); v != "" {
		cfg.Exchange.BaseURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPassword = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Cache.SQLitePath = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("WARM_CRON"); v != "" {
		cfg.Schedule.WarmCron = v
	}
	if v := os.Getenv("ALERT_CRON"); v != "" {
		cfg.Schedule.AlertCron = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Exchange.BaseURL == "" {
		c.Exchange.BaseURL = "https://api.binance.com/api/v3"
	}
	if c.Exchange.Timeout == 0 {
		c.Exchange.Timeout = 8 * time.Second
	}
	if c.Exchange.MaxInFlight == 0 {
		c.Exchange.MaxInFlight = 20
	}
	if c.Screener.QuoteSuffix == "" {
		c.Screener.QuoteSuffix = "USDT"
	}
	if c.Screener.TopResults == 0 {
		c.Screener.TopResults = 5
	}
	if c.Screener.MaxCandidates == 0 {
		c.Screener.MaxCandidates = 50
	}
	if c.Screener.MaxConcurrency == 0 {
		c.Screener.MaxConcurrency = 8
	}
	if c.Screener.ShortTTL == 0 {
		c.Screener.ShortTTL = 2 * time.Minute
	}
	if c.Screener.LongTTL == 0 {
		c.Screener.LongTTL = 30 * time.Minute
	}
	if c.Screener.ComputeTimeout == 0 {
		c.Screener.ComputeTimeout = time.Minute
	}
	if c.Screener.DefaultProfile == "" {
		c.Screener.DefaultProfile = "explosion"
	}
	if c.Screener.AlertProfile == "" {
		c.Screener.AlertProfile = "pre-explosion"
	}
	if c.Indicators.RSIPeriod == 0 {
		c.Indicators.RSIPeriod = 14
	}
	if c.Indicators.RSIInterval == "" {
		c.Indicators.RSIInterval = "5m"
	}
	if c.Indicators.VolumeLookbackDays == 0 {
		c.Indicators.VolumeLookbackDays = 7
	}
	if c.Indicators.VolatilityWindow == 0 {
		c.Indicators.VolatilityWindow = 20
	}
	if c.Indicators.VolatilityInterval == "" {
		c.Indicators.VolatilityInterval = "5m"
	}
	if c.Indicators.CompressionThreshold == 0 {
		c.Indicators.CompressionThreshold = 0.5
	}
	if c.Indicators.NewListingDays == 0 {
		c.Indicators.NewListingDays = 30
	}
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheMemory
	}
	if c.Cache.SQLitePath == "" {
		c.Cache.SQLitePath = "data/boostiq_cache.db"
	}
	if c.Cache.SweepInterval == 0 {
		c.Cache.SweepInterval = time.Minute
	}
	if c.RateLimit.Requests == 0 {
		c.RateLimit.Requests = 100
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = 5 * time.Minute
	}
	if c.Schedule.WarmCron == "" {
		c.Schedule.WarmCron = "0 */2 * * * *"
	}
	if c.Schedule.AlertCron == "" {
		c.Schedule.AlertCron = "30 */5 * * * *"
	}
}

// TelegramEnabled reports whether both bot token and chat ID are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Exchange.BaseURL == "" {
		return fmt.Errorf("exchange.base_url is required")
	}
	if c.Exchange.Timeout < 0 {
		return fmt.Errorf("exchange.timeout must not be negative")
	}
	if c.Exchange.MaxInFlight < 0 {
		return fmt.Errorf("exchange.max_in_flight must not be negative")
	}
	if c.Screener.TopResults < 0 || c.Screener.MaxCandidates < 0 || c.Screener.MaxConcurrency < 0 {
		return fmt.Errorf("screener limits must not be negative")
	}
	if c.Screener.ComputeTimeout < 0 {
		return fmt.Errorf("screener.compute_timeout must not be negative")
	}
	if c.Indicators.RSIPeriod < 1 {
		return fmt.Errorf("indicators.rsi_period must be at least 1")
	}
	if c.Indicators.VolatilityWindow < 3 {
		return fmt.Errorf("indicators.volatility_window must be at least 3")
	}
	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
	case CacheSQLite:
		if c.Cache.SQLitePath == "" {
			return fmt.Errorf("cache.sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("cache.backend %q is not one of memory, redis, sqlite", c.Cache.Backend)
	}
	if c.RateLimit.Requests < 0 || c.RateLimit.Window < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}
