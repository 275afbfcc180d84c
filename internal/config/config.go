// Package config loads the Atelier configuration file. The file lives at
// .atelier/config.json in the working directory; missing values fall back
// to defaults so a fresh checkout works without any file at all.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds endpoints and tuning knobs for the coordination core.
type Config struct {
	Version string `json:"version"`

	// DBPath overrides the SQLite database location. Empty uses
	// ~/.atelier/atelier.db.
	DBPath string `json:"db_path,omitempty"`

	// External service endpoints.
	SandboxURL string `json:"sandbox_url,omitempty"`
	CrontabURL string `json:"crontab_url,omitempty"`
	NotifyURL  string `json:"notify_url,omitempty"`

	// HTTPTimeoutSeconds bounds each outbound HTTP call.
	HTTPTimeoutSeconds int `json:"http_timeout_seconds,omitempty"`

	// Worker timing.
	PollIntervalSeconds   int `json:"poll_interval_seconds,omitempty"`
	ReapIntervalSeconds   int `json:"reap_interval_seconds,omitempty"`
	StaleThresholdMinutes int `json:"stale_threshold_minutes,omitempty"`

	// Batch sizing.
	PollLimit      int `json:"poll_limit,omitempty"`
	ForkBatchSize  int `json:"fork_batch_size,omitempty"`
	DedupBatchSize int `json:"dedup_batch_size,omitempty"`
}

// Defaults applied by Load when the file omits a value.
const (
	DefaultSandboxURL = "http://localhost:8700"
	DefaultCrontabURL = "http://localhost:8701"
	DefaultNotifyURL  = "http://localhost:8702"

	defaultHTTPTimeoutSeconds  = 30
	defaultPollIntervalSeconds = 10
	defaultReapIntervalSeconds = 60
	defaultStaleThresholdMins  = 30
	defaultPollLimit           = 50
	defaultForkBatchSize       = 200
	defaultDedupBatchSize      = 100
)

// Default returns a config populated entirely from defaults.
func Default() *Config {
	cfg := &Config{Version: "1"}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.SandboxURL == "" {
		c.SandboxURL = DefaultSandboxURL
	}
	if c.CrontabURL == "" {
		c.CrontabURL = DefaultCrontabURL
	}
	if c.NotifyURL == "" {
		c.NotifyURL = DefaultNotifyURL
	}
	if c.HTTPTimeoutSeconds <= 0 {
		c.HTTPTimeoutSeconds = defaultHTTPTimeoutSeconds
	}
	if c.PollIntervalSeconds <= 0 {
		c.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	if c.ReapIntervalSeconds <= 0 {
		c.ReapIntervalSeconds = defaultReapIntervalSeconds
	}
	if c.StaleThresholdMinutes <= 0 {
		c.StaleThresholdMinutes = defaultStaleThresholdMins
	}
	if c.PollLimit <= 0 {
		c.PollLimit = defaultPollLimit
	}
	if c.ForkBatchSize <= 0 {
		c.ForkBatchSize = defaultForkBatchSize
	}
	if c.DedupBatchSize <= 0 {
		c.DedupBatchSize = defaultDedupBatchSize
	}
}

// HTTPTimeout returns the outbound HTTP timeout as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// PollInterval returns the compensation-poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// ReapInterval returns the stale-task reap interval as a duration.
func (c *Config) ReapInterval() time.Duration {
	return time.Duration(c.ReapIntervalSeconds) * time.Second
}

// StaleThreshold returns the running-task staleness threshold as a duration.
func (c *Config) StaleThreshold() time.Duration {
	return time.Duration(c.StaleThresholdMinutes) * time.Minute
}

// Load reads .atelier/config.json from the specified directory. A missing
// file is not an error: defaults apply. A present but malformed file is.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ".atelier", "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// Save writes config.json into the directory's .atelier subdirectory.
func Save(dir string, cfg *Config) error {
	atelierDir := filepath.Join(dir, ".atelier")
	if err := os.MkdirAll(atelierDir, 0755); err != nil {
		return fmt.Errorf("failed to create .atelier dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(atelierDir, "config.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
