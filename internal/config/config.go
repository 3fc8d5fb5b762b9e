package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"TrendScreener/internal/strategy"
)

// Data source kinds.
const (
	SourceYahoo  = "yahoo"
	SourceREST   = "rest"
	SourceAlpaca = "alpaca"
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
	SourceMock   = "mock"
)

// Config holds all application configuration.
type Config struct {
	Screening strategy.Config `yaml:"screening"`
	Universe  struct {
		Symbols    []string `yaml:"symbols"`
		File       string   `yaml:"file"`
		FromSource bool     `yaml:"from_source"`
	} `yaml:"universe"`
	DataSource struct {
		Kind        string  `yaml:"kind"`
		BaseURL     string  `yaml:"base_url"`
		APIKey      string  `yaml:"api_key"`
		APISecret   string  `yaml:"api_secret"`
		Dir         string  `yaml:"dir"`
		SQLitePath  string  `yaml:"sqlite_path"`
		RateLimit   float64 `yaml:"rate_limit"`
		HistoryDays int     `yaml:"history_days"`
		Workers     int     `yaml:"workers"`
		Benchmark   string  `yaml:"benchmark"`
	} `yaml:"data_source"`
	Schedule struct {
		ScreenCron string `yaml:"screen_cron"`
	} `yaml:"schedule"`
	Report struct {
		MinScore               int  `yaml:"min_score"`
		TopN                   int  `yaml:"top_n"`
		RequireVolumeExpansion bool `yaml:"require_volume_expansion"`
	} `yaml:"report"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		Enabled    bool   `yaml:"enabled"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{Screening: strategy.DefaultConfig()}

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
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_SOURCE_KIND"); v != "" {
		cfg.DataSource.Kind = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" && cfg.DataSource.Kind == SourceAlpaca {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" && cfg.DataSource.Kind == SourceAlpaca {
		cfg.DataSource.APISecret = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("CRON_SCREEN"); v != "" {
		cfg.Schedule.ScreenCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("RS_MODE"); v != "" {
		cfg.Screening.RSMode = strategy.RSMode(v)
	}
	if v := os.Getenv("MIN_HISTORY_MODE"); v != "" {
		cfg.Screening.MinHistoryMode = strategy.HistoryMode(v)
	}
	if v := os.Getenv("REPORT_MIN_SCORE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Report.MinScore = n
		}
	}

	// Defaults
	if cfg.DataSource.Kind == "" {
		cfg.DataSource.Kind = SourceYahoo
	}
	cfg.DataSource.Kind = strings.ToLower(cfg.DataSource.Kind)
	if cfg.DataSource.HistoryDays == 0 {
		cfg.DataSource.HistoryDays = 300
	}
	if cfg.DataSource.Workers == 0 {
		cfg.DataSource.Workers = 4
	}
	if cfg.DataSource.RateLimit == 0 {
		cfg.DataSource.RateLimit = 5
	}
	if cfg.Schedule.ScreenCron == "" {
		cfg.Schedule.ScreenCron = "0 30 18 * * 1-5"
	}
	if cfg.Report.TopN == 0 {
		cfg.Report.TopN = 20
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/screener.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if err := c.Screening.Validate(); err != nil {
		return fmt.Errorf("screening: %w", err)
	}
	if c.Screening.RSMode == strategy.RSBenchmarkRelative && c.DataSource.Benchmark == "" {
		return fmt.Errorf("data_source.benchmark is required for rs_mode %s", strategy.RSBenchmarkRelative)
	}

	switch c.DataSource.Kind {
	case SourceYahoo, SourceMock:
	case SourceREST:
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for kind %s", SourceREST)
		}
	case SourceAlpaca:
		if c.DataSource.APIKey == "" || c.DataSource.APISecret == "" {
			return fmt.Errorf("data_source.api_key and api_secret are required for kind %s", SourceAlpaca)
		}
	case SourceCSV:
		if c.DataSource.Dir == "" {
			return fmt.Errorf("data_source.dir is required for kind %s", SourceCSV)
		}
	case SourceSQLite:
		if c.DataSource.SQLitePath == "" {
			return fmt.Errorf("data_source.sqlite_path is required for kind %s", SourceSQLite)
		}
	default:
		return fmt.Errorf("data_source.kind %q is not supported", c.DataSource.Kind)
	}
	if c.DataSource.HistoryDays < c.Screening.MinHistory() {
		return fmt.Errorf("data_source.history_days %d is below the %d bars screening needs",
			c.DataSource.HistoryDays, c.Screening.MinHistory())
	}
	if c.DataSource.RateLimit < 0 {
		return fmt.Errorf("data_source.rate_limit must not be negative")
	}

	if len(c.Universe.Symbols) == 0 && c.Universe.File == "" && !c.Universe.FromSource {
		return fmt.Errorf("universe needs symbols, a file, or from_source")
	}
	if c.Report.MinScore < 0 || c.Report.MinScore > 8 {
		return fmt.Errorf("report.min_score must be within [0, 8]")
	}
	return nil
}

// TelegramEnabled reports whether both Telegram credentials are present.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
