package cmd

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/feedrouter/config"
)

var rootCmd = &cobra.Command{
	Use:   "feedrouter",
	Short: "A price feed routing core with primary/fallback failover",
	Long: `Feedrouter keeps one authoritative stream of price samples flowing while
the providers behind it fail and recover.

It provides tools for:
  - Running the routing service with simulated provider feeds
  - Replaying recorded captures through the failover core
  - Journaling routing transitions and rejected samples
  - Querying the journal after an incident
  - Serving status, metrics and a live sample stream over HTTP

Complete documentation is available at https://github.com/rustyeddy/feedrouter`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	level := parseLevel(cfg.Level)
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		}))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339Nano,
		NoColor:    os.Getenv("NO_COLOR") != "",
	}))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
