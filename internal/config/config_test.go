package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "DATA_PROVIDER", "DATA_BASE_URL", "DATA_API_KEY",
		"ALPACA_API_KEY", "ALPACA_SECRET_KEY", "LOOKBACK_DAYS", "OPENAI_BASE_URL", "OPENAI_API_KEY",
		"OPENAI_MODEL", "RISK_TOLERANCE", "ACCOUNT_EQUITY", "CRON_DAILY", "WATCHLIST", "METRICS_ADDR",
		"HTTPS_PROXY", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DataSource.Provider != ProviderYahoo {
		t.Errorf("expected yahoo provider, got %q", cfg.DataSource.Provider)
	}
	if cfg.Risk.TolerancePercent != 50 || cfg.Risk.AccountEquity != 1000 {
		t.Errorf("unexpected risk defaults: %+v", cfg.Risk)
	}
	if cfg.Explainer.Timeout != 30*time.Second {
		t.Errorf("expected 30s explainer timeout, got %v", cfg.Explainer.Timeout)
	}
	if cfg.ExplainerEnabled() {
		t.Error("explainer should be disabled without an api key")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
data_source:
  provider: rest
  base_url: http://bars.local
  lookback_days: 120
explainer:
  timeout: 5s
risk:
  tolerance_percent: 0
  account_equity: 2500
investor:
  insight_mode: Advanced
watchlist: [msft]
`)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("WATCHLIST", "aapl, tsla ,")
	t.Setenv("ACCOUNT_EQUITY", "5000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DataSource.Provider != ProviderREST || cfg.DataSource.BaseURL != "http://bars.local" || cfg.DataSource.LookbackDays != 120 {
		t.Errorf("unexpected data source: %+v", cfg.DataSource)
	}
	if cfg.Explainer.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Explainer.Timeout)
	}
	if cfg.Risk.TolerancePercent != 0 {
		t.Errorf("explicit zero tolerance must be kept, got %v", cfg.Risk.TolerancePercent)
	}
	if cfg.Risk.AccountEquity != 5000 {
		t.Errorf("expected env equity override, got %v", cfg.Risk.AccountEquity)
	}
	if !cfg.ExplainerEnabled() {
		t.Error("expected explainer enabled from OPENAI_API_KEY")
	}
	if len(cfg.Watchlist) != 2 || cfg.Watchlist[0] != "aapl" || cfg.Watchlist[1] != "tsla" {
		t.Errorf("unexpected watchlist: %v", cfg.Watchlist)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestLoad_BadEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("RISK_TOLERANCE", "lots")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for non-numeric RISK_TOLERANCE")
	}
}

func TestLoad_ExplicitZeroEquityFails(t *testing.T) {
	clearEnv(t)
	t.Setenv("ACCOUNT_EQUITY", "0")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Risk.AccountEquity != 0 {
		t.Errorf("explicit zero equity must not be defaulted, got %v", cfg.Risk.AccountEquity)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for zero equity from env")
	}

	clearEnv(t)
	path := writeConfig(t, "risk:\n  account_equity: 0\n")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected validation error for zero equity from file, got equity %v", cfg.Risk.AccountEquity)
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }},
		{"alpaca without keys", func(c *Config) { c.DataSource.Provider = ProviderAlpaca }},
		{"rest without url", func(c *Config) { c.DataSource.Provider = ProviderREST }},
		{"short lookback", func(c *Config) { c.DataSource.LookbackDays = 50 }},
		{"risk above 100", func(c *Config) { c.Risk.TolerancePercent = 101 }},
		{"negative risk", func(c *Config) { c.Risk.TolerancePercent = -1 }},
		{"zero equity", func(c *Config) { c.Risk.AccountEquity = 0 }},
		{"infinite equity", func(c *Config) { c.Risk.AccountEquity = math.Inf(1) }},
		{"NaN equity", func(c *Config) { c.Risk.AccountEquity = math.NaN() }},
		{"NaN risk", func(c *Config) { c.Risk.TolerancePercent = math.NaN() }},
		{"bad insight mode", func(c *Config) { c.Investor.InsightMode = "Geek" }},
	}
	for _, tt := range tests {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestValidateWatch(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.ValidateWatch(); err == nil {
		t.Error("expected error without telegram credentials")
	}
	cfg.Telegram.BotToken = "token"
	cfg.Telegram.ChatID = "42"
	if err := cfg.ValidateWatch(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
