package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the complete routing service configuration
type Config struct {
	Router    RouterConfig    `json:"router" yaml:"router"`
	Journal   JournalConfig   `json:"journal" yaml:"journal"`
	Broadcast BroadcastConfig `json:"broadcast" yaml:"broadcast"`
	API       APIConfig       `json:"api" yaml:"api"`
	Sim       SimConfig       `json:"sim" yaml:"sim"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

// RouterConfig contains failover and validation parameters
type RouterConfig struct {
	FailureThreshold    int     `json:"failure_threshold" yaml:"failure_threshold" env:"FEEDROUTER_FAILURE_THRESHOLD"`
	GracePeriodSec      int     `json:"grace_period_sec" yaml:"grace_period_sec" env:"FEEDROUTER_GRACE_PERIOD_SEC"`
	MaxClockSkewSec     int     `json:"max_clock_skew_sec" yaml:"max_clock_skew_sec" env:"FEEDROUTER_MAX_CLOCK_SKEW_SEC"`
	CircuitBreakerPct   float64 `json:"circuit_breaker_pct" yaml:"circuit_breaker_pct" env:"FEEDROUTER_CIRCUIT_BREAKER_PCT"`
	AnomalyWarnPct      float64 `json:"anomaly_warn_pct" yaml:"anomaly_warn_pct" env:"FEEDROUTER_ANOMALY_WARN_PCT"`
	LivenessIntervalSec int     `json:"liveness_interval_sec" yaml:"liveness_interval_sec" env:"FEEDROUTER_LIVENESS_INTERVAL_SEC"`
	StaleAfterSec       int     `json:"stale_after_sec" yaml:"stale_after_sec" env:"FEEDROUTER_STALE_AFTER_SEC"`
}

func (r RouterConfig) GracePeriod() time.Duration {
	return time.Duration(r.GracePeriodSec) * time.Second
}

func (r RouterConfig) MaxClockSkew() time.Duration {
	return time.Duration(r.MaxClockSkewSec) * time.Second
}

func (r RouterConfig) LivenessInterval() time.Duration {
	return time.Duration(r.LivenessIntervalSec) * time.Second
}

func (r RouterConfig) StaleAfter() time.Duration {
	return time.Duration(r.StaleAfterSec) * time.Second
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type            string `json:"type" yaml:"type" env:"FEEDROUTER_JOURNAL_TYPE"` // "csv", "sqlite" or "none"
	TransitionsFile string `json:"transitions_file,omitempty" yaml:"transitions_file,omitempty" env:"FEEDROUTER_JOURNAL_TRANSITIONS_FILE"`
	RejectionsFile  string `json:"rejections_file,omitempty" yaml:"rejections_file,omitempty" env:"FEEDROUTER_JOURNAL_REJECTIONS_FILE"`
	DBPath          string `json:"db_path,omitempty" yaml:"db_path,omitempty" env:"FEEDROUTER_JOURNAL_DB_PATH"`
}

// BroadcastConfig contains fan-out parameters for routed samples
type BroadcastConfig struct {
	BufferSize  int    `json:"buffer_size" yaml:"buffer_size" env:"FEEDROUTER_BROADCAST_BUFFER_SIZE"`
	RedisURL    string `json:"redis_url,omitempty" yaml:"redis_url,omitempty" env:"FEEDROUTER_REDIS_URL"`
	RedisStream string `json:"redis_stream,omitempty" yaml:"redis_stream,omitempty" env:"FEEDROUTER_REDIS_STREAM"`
	RedisMaxLen int64  `json:"redis_max_len,omitempty" yaml:"redis_max_len,omitempty" env:"FEEDROUTER_REDIS_MAX_LEN"`
}

// APIConfig contains the HTTP surface parameters
type APIConfig struct {
	Addr string `json:"addr" yaml:"addr" env:"FEEDROUTER_API_ADDR"`
}

// SimConfig contains the built-in feed simulator parameters
type SimConfig struct {
	Symbols        []string `json:"symbols" yaml:"symbols" env:"FEEDROUTER_SIM_SYMBOLS" envSeparator:","`
	IntervalMs     int      `json:"interval_ms" yaml:"interval_ms" env:"FEEDROUTER_SIM_INTERVAL_MS"`
	OutageAfterSec int      `json:"outage_after_sec,omitempty" yaml:"outage_after_sec,omitempty" env:"FEEDROUTER_SIM_OUTAGE_AFTER_SEC"`
	OutageForSec   int      `json:"outage_for_sec,omitempty" yaml:"outage_for_sec,omitempty" env:"FEEDROUTER_SIM_OUTAGE_FOR_SEC"`
}

func (s SimConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMs) * time.Millisecond
}

func (s SimConfig) OutageAfter() time.Duration {
	return time.Duration(s.OutageAfterSec) * time.Second
}

func (s SimConfig) OutageFor() time.Duration {
	return time.Duration(s.OutageForSec) * time.Second
}

// LogConfig contains logging parameters
type LogConfig struct {
	Level  string `json:"level" yaml:"level" env:"FEEDROUTER_LOG_LEVEL"`
	Format string `json:"format" yaml:"format" env:"FEEDROUTER_LOG_FORMAT"` // "pretty" or "json"
}

// Load builds the configuration from defaults and environment overrides.
func Load() (*Config, error) {
	cfg := Default()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a file (JSON or YAML based on
// content), then applies environment overrides on top.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	// Determine format by extension
	if (len(path) > 5 && path[len(path)-5:] == ".yaml") || (len(path) > 4 && path[len(path)-4:] == ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Router.FailureThreshold <= 0 {
		return fmt.Errorf("router.failure_threshold must be positive")
	}
	if c.Router.GracePeriodSec <= 0 {
		return fmt.Errorf("router.grace_period_sec must be positive")
	}
	if c.Router.MaxClockSkewSec <= 0 {
		return fmt.Errorf("router.max_clock_skew_sec must be positive")
	}
	if c.Router.CircuitBreakerPct <= 0 || c.Router.CircuitBreakerPct > 1 {
		return fmt.Errorf("router.circuit_breaker_pct must be between 0 and 1")
	}
	if c.Router.AnomalyWarnPct <= 0 || c.Router.AnomalyWarnPct > 1 {
		return fmt.Errorf("router.anomaly_warn_pct must be between 0 and 1")
	}
	if c.Router.LivenessIntervalSec < 0 {
		return fmt.Errorf("router.liveness_interval_sec must not be negative")
	}
	if c.Router.LivenessIntervalSec > 0 && c.Router.StaleAfterSec <= 0 {
		return fmt.Errorf("router.stale_after_sec must be positive when the liveness watcher is enabled")
	}
	switch c.Journal.Type {
	case "csv":
		if c.Journal.TransitionsFile == "" || c.Journal.RejectionsFile == "" {
			return fmt.Errorf("journal transitions_file and rejections_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}
	if c.Broadcast.BufferSize <= 0 {
		return fmt.Errorf("broadcast.buffer_size must be positive")
	}
	if c.Broadcast.RedisURL != "" && c.Broadcast.RedisStream == "" {
		return fmt.Errorf("broadcast.redis_stream required when redis_url is set")
	}
	if c.API.Addr == "" {
		return fmt.Errorf("api.addr is required")
	}
	if len(c.Sim.Symbols) == 0 {
		return fmt.Errorf("sim.symbols must not be empty")
	}
	if c.Sim.IntervalMs <= 0 {
		return fmt.Errorf("sim.interval_ms must be positive")
	}
	if c.Log.Format != "pretty" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'pretty' or 'json'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Router: RouterConfig{
			FailureThreshold:    3,
			GracePeriodSec:      10,
			MaxClockSkewSec:     300,
			CircuitBreakerPct:   0.20,
			AnomalyWarnPct:      0.05,
			LivenessIntervalSec: 5,
			StaleAfterSec:       10,
		},
		Journal: JournalConfig{
			Type:            "csv",
			TransitionsFile: "./transitions.csv",
			RejectionsFile:  "./rejections.csv",
		},
		Broadcast: BroadcastConfig{
			BufferSize:  64,
			RedisStream: "feedrouter:routed",
			RedisMaxLen: 10000,
		},
		API: APIConfig{
			Addr: ":8600",
		},
		Sim: SimConfig{
			Symbols:    []string{"AAPL", "MSFT", "THYAO", "BTC-USD"},
			IntervalMs: 250,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "pretty",
		},
	}
}
