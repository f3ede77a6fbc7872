// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Tier describes the request limits of a Twitter API access level.
type Tier struct {
	MaxRequestsPerWindow int
	WindowSeconds        int
	PostsPerFetch        int
	MaxHistoricalDays    int
}

// Tiers maps the known API access levels to their limits.
var Tiers = map[string]Tier{
	"free":  {MaxRequestsPerWindow: 25, WindowSeconds: 900, PostsPerFetch: 10, MaxHistoricalDays: 7},
	"basic": {MaxRequestsPerWindow: 50, WindowSeconds: 900, PostsPerFetch: 15, MaxHistoricalDays: 30},
	"pro":   {MaxRequestsPerWindow: 100, WindowSeconds: 900, PostsPerFetch: 30, MaxHistoricalDays: 90},
}

// TelegramConfig wires the delivery channel for daily reports. Reports are
// skipped when the token is empty.
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// Config holds all application configuration.
type Config struct {
	BearerToken   string         `yaml:"bearer_token"`
	Keywords      []string       `yaml:"keywords"`
	Tier          string         `yaml:"tier"`
	PostsPerFetch int            `yaml:"posts_per_fetch"`
	DatabaseDSN   string         `yaml:"database_dsn"`
	RetentionDays int            `yaml:"retention_days"`
	Timezone      string         `yaml:"timezone"`
	CollectCron   string         `yaml:"collect_cron"`
	ReportCron    string         `yaml:"report_cron"`
	CleanupCron   string         `yaml:"cleanup_cron"`
	APIAddr       string         `yaml:"api_addr"`
	LogLevel      string         `yaml:"log_level"`
	Telegram      TelegramConfig `yaml:"telegram"`
}

// Load reads configuration from a YAML file and applies defaults, environment
// overrides, and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// GetConfigPath returns the config file path from environment or default.
func GetConfigPath() string {
	if path := os.Getenv("RRSS_MCP_CONFIG"); path != "" {
		return path
	}
	return "./config.yaml"
}

// RateBudget returns the per-window request budget for the configured tier.
func (c *Config) RateBudget() int {
	return Tiers[c.Tier].MaxRequestsPerWindow
}

// RateWindow returns the rate-limit window length for the configured tier.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(Tiers[c.Tier].WindowSeconds) * time.Second
}

// FetchLimit returns the per-fetch result cap: the explicit posts_per_fetch
// setting when present, the tier default otherwise.
func (c *Config) FetchLimit() int {
	if c.PostsPerFetch > 0 {
		return c.PostsPerFetch
	}
	return Tiers[c.Tier].PostsPerFetch
}

func applyDefaults(cfg *Config) {
	if cfg.Tier == "" {
		cfg.Tier = "free"
	}
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = "./rrss-mcp.db"
	}
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = 7
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.CollectCron == "" {
		cfg.CollectCron = "0 * * * *"
	}
	if cfg.ReportCron == "" {
		cfg.ReportCron = "5 0 * * *"
	}
	if cfg.CleanupCron == "" {
		cfg.CleanupCron = "30 0 * * *"
	}
	if cfg.APIAddr == "" {
		cfg.APIAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func applyEnvironmentOverrides(cfg *Config) {
	if token := os.Getenv("TWITTER_BEARER_TOKEN"); token != "" {
		cfg.BearerToken = token
	}
	if keywords := os.Getenv("KEYWORDS"); keywords != "" {
		cfg.Keywords = strings.Split(keywords, ",")
	}
	if dsn := os.Getenv("RRSS_DB"); dsn != "" {
		cfg.DatabaseDSN = dsn
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
}

func validate(cfg *Config) error {
	if cfg.BearerToken == "" {
		return fmt.Errorf("bearer_token is required")
	}
	if _, known := Tiers[cfg.Tier]; !known {
		return fmt.Errorf("unknown tier %q (expected free, basic, or pro)", cfg.Tier)
	}
	if cfg.RetentionDays < 0 {
		return fmt.Errorf("retention_days must not be negative, got %d", cfg.RetentionDays)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	return nil
}
