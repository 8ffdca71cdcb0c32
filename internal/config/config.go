package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Providers accepted in data_source.provider.
const (
	ProviderYahoo  = "yahoo"
	ProviderAlpaca = "alpaca"
	ProviderREST   = "rest"
	ProviderMock   = "mock"
)

// Insight modes for the report breakdown.
const (
	InsightSimple   = "Simple"
	InsightAdvanced = "Advanced"
)

// MinLookbackDays is the shortest history the strategy can evaluate.
const MinLookbackDays = 51

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider     string `yaml:"provider"`
		BaseURL      string `yaml:"base_url"`
		APIKey       string `yaml:"api_key"`
		APISecret    string `yaml:"api_secret"`
		LookbackDays int    `yaml:"lookback_days"`
	} `yaml:"data_source"`
	Explainer struct {
		APIURL   string        `yaml:"api_url"`
		APIKey   string        `yaml:"api_key"`
		Model    string        `yaml:"model"`
		Strategy string        `yaml:"strategy"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"explainer"`
	Risk struct {
		TolerancePercent float64 `yaml:"tolerance_percent"`
		AccountEquity    float64 `yaml:"account_equity"`
	} `yaml:"risk"`
	Investor struct {
		Goal        string `yaml:"goal"`
		Experience  string `yaml:"experience"`
		InsightMode string `yaml:"insight_mode"`
	} `yaml:"investor"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron"`
	} `yaml:"schedule"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
	Watchlist   []string `yaml:"watchlist"`
	MetricsAddr string   `yaml:"metrics_addr"`
	Proxy       string   `yaml:"proxy"`

	riskSet   bool
	equitySet bool
}

// Load reads config from a YAML file, then applies environment variable overrides
// and defaults. A missing file is not an error.
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
	cfg.riskSet, cfg.equitySet = yamlRiskKeys(data)

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("ALPACA_SECRET_KEY"); v != "" {
		c.DataSource.APISecret = v
	}
	if v := os.Getenv("LOOKBACK_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LOOKBACK_DAYS: %w", err)
		}
		c.DataSource.LookbackDays = n
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.Explainer.APIURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Explainer.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.Explainer.Model = v
	}
	if v := os.Getenv("RISK_TOLERANCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RISK_TOLERANCE: %w", err)
		}
		c.Risk.TolerancePercent = f
		c.riskSet = true
	}
	if v := os.Getenv("ACCOUNT_EQUITY"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("ACCOUNT_EQUITY: %w", err)
		}
		c.Risk.AccountEquity = f
		c.equitySet = true
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		c.Schedule.DailyCron = v
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		c.Watchlist = nil
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				c.Watchlist = append(c.Watchlist, s)
			}
		}
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = ProviderYahoo
	}
	if c.DataSource.LookbackDays == 0 {
		c.DataSource.LookbackDays = 250
	}
	if c.Explainer.APIURL == "" {
		c.Explainer.APIURL = "https://api.openai.com/v1"
	}
	if c.Explainer.Model == "" {
		c.Explainer.Model = "gpt-3.5-turbo"
	}
	if c.Explainer.Strategy == "" {
		c.Explainer.Strategy = "Moving Averages & Momentum"
	}
	if c.Explainer.Timeout == 0 {
		c.Explainer.Timeout = 30 * time.Second
	}
	// explicit zeros must reach Validate, so only default when nothing set them
	if !c.riskSet {
		c.Risk.TolerancePercent = 50
	}
	if !c.equitySet {
		c.Risk.AccountEquity = 1000
	}
	if c.Investor.Goal == "" {
		c.Investor.Goal = "Balanced Strategy"
	}
	if c.Investor.Experience == "" {
		c.Investor.Experience = "Beginner"
	}
	if c.Investor.InsightMode == "" {
		c.Investor.InsightMode = InsightSimple
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 30 16 * * 1-5"
	}
	if len(c.Watchlist) == 0 {
		c.Watchlist = []string{"AAPL"}
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9090"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// yamlRiskKeys reports which risk keys are present in the file.
func yamlRiskKeys(data []byte) (tolerance, equity bool) {
	var keys struct {
		Risk struct {
			TolerancePercent *float64 `yaml:"tolerance_percent"`
			AccountEquity    *float64 `yaml:"account_equity"`
		} `yaml:"risk"`
	}
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return false, false
	}
	return keys.Risk.TolerancePercent != nil, keys.Risk.AccountEquity != nil
}

// ExplainerEnabled reports whether an API key for the explainer is configured.
func (c *Config) ExplainerEnabled() bool {
	return c.Explainer.APIKey != ""
}

// Validate checks the settings every mode needs.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case ProviderYahoo, ProviderMock:
	case ProviderAlpaca:
		if c.DataSource.APIKey == "" || c.DataSource.APISecret == "" {
			return fmt.Errorf("data_source.api_key and data_source.api_secret are required for alpaca")
		}
	case ProviderREST:
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for rest")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not one of yahoo, alpaca, rest, mock", c.DataSource.Provider)
	}
	if c.DataSource.LookbackDays < MinLookbackDays {
		return fmt.Errorf("data_source.lookback_days must be at least %d", MinLookbackDays)
	}
	if math.IsNaN(c.Risk.TolerancePercent) || c.Risk.TolerancePercent < 0 || c.Risk.TolerancePercent > 100 {
		return fmt.Errorf("risk.tolerance_percent must be within [0,100]")
	}
	if math.IsNaN(c.Risk.AccountEquity) || math.IsInf(c.Risk.AccountEquity, 0) || c.Risk.AccountEquity <= 0 {
		return fmt.Errorf("risk.account_equity must be a positive finite amount")
	}
	if c.Explainer.Timeout < 0 {
		return fmt.Errorf("explainer.timeout must not be negative")
	}
	if c.Investor.InsightMode != InsightSimple && c.Investor.InsightMode != InsightAdvanced {
		return fmt.Errorf("investor.insight_mode must be %s or %s", InsightSimple, InsightAdvanced)
	}
	return nil
}

// ValidateWatch checks the additional settings of watch mode.
func (c *Config) ValidateWatch() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if c.Schedule.DailyCron == "" {
		return fmt.Errorf("schedule.daily_cron is required")
	}
	return nil
}
