package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, 3, cfg.Router.FailureThreshold)
	assert.Equal(t, 10*time.Second, cfg.Router.GracePeriod())
	assert.Equal(t, 5*time.Minute, cfg.Router.MaxClockSkew())
	assert.Equal(t, 0.20, cfg.Router.CircuitBreakerPct)
	assert.Equal(t, 0.05, cfg.Router.AnomalyWarnPct)
	assert.Equal(t, "csv", cfg.Journal.Type)
	assert.Equal(t, ":8600", cfg.API.Addr)
	assert.Equal(t, 250*time.Millisecond, cfg.Sim.Interval())
	assert.NoError(t, cfg.Validate())
}

func validBase() *Config {
	return Default()
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "zero failure threshold",
			mutate:  func(c *Config) { c.Router.FailureThreshold = 0 },
			wantErr: true,
			errMsg:  "router.failure_threshold must be positive",
		},
		{
			name:    "zero grace period",
			mutate:  func(c *Config) { c.Router.GracePeriodSec = 0 },
			wantErr: true,
			errMsg:  "router.grace_period_sec must be positive",
		},
		{
			name:    "breaker over 100 percent",
			mutate:  func(c *Config) { c.Router.CircuitBreakerPct = 1.5 },
			wantErr: true,
			errMsg:  "router.circuit_breaker_pct must be between 0 and 1",
		},
		{
			name:    "anomaly threshold negative",
			mutate:  func(c *Config) { c.Router.AnomalyWarnPct = -0.05 },
			wantErr: true,
			errMsg:  "router.anomaly_warn_pct must be between 0 and 1",
		},
		{
			name: "liveness enabled without stale cutoff",
			mutate: func(c *Config) {
				c.Router.LivenessIntervalSec = 5
				c.Router.StaleAfterSec = 0
			},
			wantErr: true,
			errMsg:  "router.stale_after_sec must be positive",
		},
		{
			name:    "unknown journal type",
			mutate:  func(c *Config) { c.Journal.Type = "parquet" },
			wantErr: true,
			errMsg:  "journal.type must be 'csv', 'sqlite' or 'none'",
		},
		{
			name: "csv journal without paths",
			mutate: func(c *Config) {
				c.Journal.Type = "csv"
				c.Journal.TransitionsFile = ""
			},
			wantErr: true,
			errMsg:  "transitions_file and rejections_file required",
		},
		{
			name: "sqlite journal without db path",
			mutate: func(c *Config) {
				c.Journal.Type = "sqlite"
				c.Journal.DBPath = ""
			},
			wantErr: true,
			errMsg:  "journal db_path required",
		},
		{
			name: "redis url without stream",
			mutate: func(c *Config) {
				c.Broadcast.RedisURL = "redis://localhost:6379/0"
				c.Broadcast.RedisStream = ""
			},
			wantErr: true,
			errMsg:  "broadcast.redis_stream required",
		},
		{
			name:    "missing api addr",
			mutate:  func(c *Config) { c.API.Addr = "" },
			wantErr: true,
			errMsg:  "api.addr is required",
		},
		{
			name:    "no sim symbols",
			mutate:  func(c *Config) { c.Sim.Symbols = nil },
			wantErr: true,
			errMsg:  "sim.symbols must not be empty",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: true,
			errMsg:  "log.format must be 'pretty' or 'json'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBase()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Router.FailureThreshold = 5
			cfg.API.Addr = ":9999"
			path := filepath.Join(tmpDir, "test"+tt.ext)

			err := cfg.SaveToFile(path)
			require.NoError(t, err)

			_, err = os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)

			assert.Equal(t, 5, loaded.Router.FailureThreshold)
			assert.Equal(t, ":9999", loaded.API.Addr)
			assert.Equal(t, cfg.Journal.Type, loaded.Journal.Type)
			assert.Equal(t, cfg.Sim.Symbols, loaded.Sim.Symbols)
		})
	}
}

func TestLoadFileKeepsDefaultsForOmittedFields(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "partial.yaml")

	// Only override the API address; everything else should stay at defaults.
	require.NoError(t, os.WriteFile(path, []byte("api:\n  addr: \":7777\"\n"), 0644))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":7777", loaded.API.Addr)
	assert.Equal(t, 3, loaded.Router.FailureThreshold)
	assert.Equal(t, 10, loaded.Router.GracePeriodSec)
	assert.Equal(t, "csv", loaded.Journal.Type)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FEEDROUTER_FAILURE_THRESHOLD", "7")
	t.Setenv("FEEDROUTER_LOG_FORMAT", "json")
	t.Setenv("FEEDROUTER_SIM_SYMBOLS", "AAPL,GOOG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Router.FailureThreshold)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"AAPL", "GOOG"}, cfg.Sim.Symbols)

	// Untouched fields keep their defaults.
	assert.Equal(t, 10, cfg.Router.GracePeriodSec)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "bad.yaml")

	require.NoError(t, os.WriteFile(path, []byte("router:\n  failure_threshold: -1\n"), 0644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failure_threshold")
}
