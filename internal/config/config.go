package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds all runtime configuration parameters
type Config struct {
	BaseURL           string   `json:"base_url"`
	UserAgent         string   `json:"user_agent"`
	EndTitles         []string `json:"end_titles"`
	DeepSave          bool     `json:"deep_save"`
	RequestTimeoutMs  int      `json:"request_timeout_ms"`
	RetryAttempts     int      `json:"retry_attempts"` // 0 retries forever
	RetryDelayMs      int      `json:"retry_delay_ms"`
	RetryMaxDelayMs   int      `json:"retry_max_delay_ms"`
	RequestsPerSecond float64  `json:"requests_per_second"` // < 0 disables rate limiting
	MemoryCacheNodes  int      `json:"memory_cache_nodes"`  // < 0 caches without limit
	DBPath            string   `json:"db_path"`
	MetricsPath       string   `json:"metrics_path"`
	MetricsAddr       string   `json:"metrics_addr"`
	LogLevel          string   `json:"log_level"`
}

// DefaultEndTitles are searched for when no end title is configured
var DefaultEndTitles = []string{"Adolf_Hitler", "Jesus"}

// LoadConfig reads and validates configuration from a JSON file
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return finalize(&cfg)
}

// Default returns a validated configuration with every default applied
func Default() *Config {
	cfg, err := finalize(&Config{})
	if err != nil {
		// Defaults always validate
		panic(err)
	}
	return cfg
}

// Validate re-applies defaults and checks the configuration, used after
// command line overrides
func (c *Config) Validate() error {
	_, err := finalize(c)
	return err
}

func finalize(cfg *Config) (*Config, error) {
	// Apply defaults for missing values
	applyDefaults(cfg)

	// Validate configuration
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(cfg *Config) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://en.wikipedia.org"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "wiki-weaver/1.0 (shortest link path finder)"
	}
	if len(cfg.EndTitles) == 0 {
		cfg.EndTitles = append([]string(nil), DefaultEndTitles...)
	}
	if cfg.RequestTimeoutMs == 0 {
		cfg.RequestTimeoutMs = 10000
	}
	if cfg.RetryDelayMs == 0 {
		cfg.RetryDelayMs = 1000
	}
	if cfg.RetryMaxDelayMs == 0 {
		cfg.RetryMaxDelayMs = 60000
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.MemoryCacheNodes == 0 {
		cfg.MemoryCacheNodes = 100000
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "wiki.db"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "metrics.json"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// validate checks that required fields are present and values are sensible
func validate(cfg *Config) error {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute URL")
	}
	for _, title := range cfg.EndTitles {
		if title == "" {
			return fmt.Errorf("end_titles must not contain empty titles")
		}
	}
	if cfg.RequestTimeoutMs < 1000 {
		return fmt.Errorf("request_timeout_ms must be >= 1000")
	}
	if cfg.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts must be >= 0")
	}
	if cfg.RetryDelayMs < 1 {
		return fmt.Errorf("retry_delay_ms must be >= 1")
	}
	if cfg.RetryMaxDelayMs < cfg.RetryDelayMs {
		return fmt.Errorf("retry_max_delay_ms must be >= retry_delay_ms")
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// RequestTimeout returns the per-request timeout
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// RetryDelay returns the first retry delay
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// RetryMaxDelay returns the retry delay ceiling
func (c *Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.RetryMaxDelayMs) * time.Millisecond
}
