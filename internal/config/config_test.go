package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// clearEnv blanks the override variables; empty values are ignored by Load.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"BINANCE_API_KEY", "BINANCE_BASE_URL", "PORT", "CACHE_BACKEND", "REDIS_ADDR",
		"REDIS_PASSWORD", "SQLITE_PATH", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
		"HTTPS_PROXY", "WARM_CRON", "ALERT_CRON",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Exchange.Timeout != 8*time.Second {
		t.Errorf("Timeout = %v, want 8s", cfg.Exchange.Timeout)
	}
	if cfg.Screener.TopResults != 5 || cfg.Screener.MaxCandidates != 50 {
		t.Errorf("screener limits = %d/%d, want 5/50", cfg.Screener.TopResults, cfg.Screener.MaxCandidates)
	}
	if cfg.Screener.ShortTTL != 2*time.Minute || cfg.Screener.LongTTL != 30*time.Minute {
		t.Errorf("TTLs = %v/%v, want 2m/30m", cfg.Screener.ShortTTL, cfg.Screener.LongTTL)
	}
	if cfg.Screener.ComputeTimeout != time.Minute {
		t.Errorf("ComputeTimeout = %v, want 1m", cfg.Screener.ComputeTimeout)
	}
	if cfg.Cache.Backend != CacheMemory {
		t.Errorf("Backend = %q, want memory", cfg.Cache.Backend)
	}
	if cfg.RateLimit.Requests != 100 || cfg.RateLimit.Window != 5*time.Minute {
		t.Errorf("rate limit = %d per %v", cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}
	if cfg.TelegramEnabled() {
		t.Errorf("telegram should be disabled without credentials")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate defaults: %v", err)
	}
}

func TestLoad_YAMLAndProfiles(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
server:
  port: 9090
screener:
  top_results: 10
  short_ttl: 45s
cache:
  backend: SQLite
  sqlite_path: /tmp/x.db
profiles:
  - name: scalper
    short_interval: 1m
    long_interval: 5m
    short_weight: 0.5
    short_cap: 10
    long_weight: 0.2
    long_cap: 20
    volume_weight: 0.2
    volume_cap: 5
    rsi_weight: 0.1
    rsi_min: 30
    rsi_max: 70
    min_score: 55
    tiers:
      - min_score: 80
        action: STRONG_BUY
        confidence: HIGH
        target_multiplier: 1.05
        stop_multiplier: 0.98
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Screener.TopResults != 10 {
		t.Errorf("port/top = %d/%d", cfg.Server.Port, cfg.Screener.TopResults)
	}
	if cfg.Screener.ShortTTL != 45*time.Second {
		t.Errorf("ShortTTL = %v, want 45s", cfg.Screener.ShortTTL)
	}
	if cfg.Cache.Backend != CacheSQLite {
		t.Errorf("Backend = %q, want sqlite", cfg.Cache.Backend)
	}
	if len(cfg.Profiles) != 1 {
		t.Fatalf("profiles = %d, want 1", len(cfg.Profiles))
	}
	p := cfg.Profiles[0]
	if p.Name != "scalper" || p.ShortCap != 10 || p.MinScore != 55 || len(p.Tiers) != 1 || p.Tiers[0].TargetMultiplier != 1.05 {
		t.Errorf("profile = %+v", p)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", "server:\n  port: 9090\n")
	t.Setenv("PORT", "7000")
	t.Setenv("BINANCE_API_KEY", "key")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("WARM_CRON", "0 * * * * *")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Exchange.APIKey != "key" || cfg.Cache.Backend != CacheRedis || cfg.Cache.RedisAddr != "localhost:6379" {
		t.Errorf("overrides not applied: %+v %+v", cfg.Exchange, cfg.Cache)
	}
	if cfg.Schedule.WarmCron != "0 * * * * *" {
		t.Errorf("WarmCron = %q", cfg.Schedule.WarmCron)
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	if _, err := Load(writeFile(t, "bad.yaml", "server: [")); err == nil {
		t.Errorf("expected parse error")
	}
	t.Setenv("PORT", "eighty")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected PORT error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"backend", func(c *Config) { c.Cache.Backend = "memcached" }, "cache.backend"},
		{"redis addr", func(c *Config) { c.Cache.Backend = CacheRedis }, "redis_addr"},
		{"telegram half", func(c *Config) { c.Telegram.BotToken = "tok" }, "telegram"},
		{"telegram both", func(c *Config) { c.Telegram.BotToken, c.Telegram.ChatID = "tok", "1" }, ""},
		{"rsi period", func(c *Config) { c.Indicators.RSIPeriod = 0 }, "rsi_period"},
		{"volatility window", func(c *Config) { c.Indicators.VolatilityWindow = 2 }, "volatility_window"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.applyDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing .env should be ignored: %v", err)
	}

	path := writeFile(t, ".env", "BOOSTIQ_TEST_FROM_FILE=file\nBOOSTIQ_TEST_PRESET=file\n")
	t.Setenv("BOOSTIQ_TEST_PRESET", "env")
	t.Setenv("BOOSTIQ_TEST_FROM_FILE", "")
	os.Unsetenv("BOOSTIQ_TEST_FROM_FILE")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got := os.Getenv("BOOSTIQ_TEST_FROM_FILE"); got != "file" {
		t.Errorf("BOOSTIQ_TEST_FROM_FILE = %q, want file", got)
	}
	if got := os.Getenv("BOOSTIQ_TEST_PRESET"); got != "env" {
		t.Errorf("existing variable was overridden: %q", got)
	}
}
