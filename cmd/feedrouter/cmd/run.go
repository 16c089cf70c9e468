package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/feedrouter/api"
	"github.com/rustyeddy/feedrouter/broadcast"
	"github.com/rustyeddy/feedrouter/config"
	"github.com/rustyeddy/feedrouter/journal"
	"github.com/rustyeddy/feedrouter/metrics"
	"github.com/rustyeddy/feedrouter/quality"
	"github.com/rustyeddy/feedrouter/router"
	"github.com/rustyeddy/feedrouter/sim"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the routing service",
	Long: `Run the feed routing service: simulated providers push samples through the
failover core, routed samples fan out to the API stream and the optional
Redis publisher, and every transition lands in the journal.

Configuration comes from defaults, an optional config file, and FEEDROUTER_*
environment overrides.

Example:
  feedrouter run --config examples/configs/feedrouter.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
}

func runRun(cmd *cobra.Command, args []string) error {
	var cfg *config.Config
	var err error
	if runConfigPath != "" {
		cfg, err = config.LoadFromFile(runConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)
	logger.Info("feedrouter starting", "version", version, "api_addr", cfg.API.Addr)

	m := metrics.New()

	core := router.New(router.Options{
		FailureThreshold: cfg.Router.FailureThreshold,
		GracePeriod:      cfg.Router.GracePeriod(),
		Limits: quality.Limits{
			MaxClockSkew: cfg.Router.MaxClockSkew(),
			MaxMovePct:   cfg.Router.CircuitBreakerPct,
		},
		AnomalyWarnPct: cfg.Router.AnomalyWarnPct,
		Logger:         logger,
	})

	mh := metrics.NewRouterHook(m)
	core.AddRoutedListener(mh)
	core.AddRejectListener(mh)
	core.AddAnomalyListener(mh)
	core.AddStateListener(mh)

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	jh := journal.NewRouterHook(j, logger)
	core.AddStateListener(jh)
	core.AddRejectListener(jh)

	hub := broadcast.NewHub(cfg.Broadcast.BufferSize, logger)
	defer hub.Close()
	core.AddRoutedListener(hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Broadcast.RedisURL != "" {
		pub, err := broadcast.NewRedisPublisher(
			cfg.Broadcast.RedisURL, cfg.Broadcast.RedisStream, cfg.Broadcast.RedisMaxLen, logger)
		if err != nil {
			return fmt.Errorf("connect redis publisher: %w", err)
		}
		defer pub.Close()

		_, sub := hub.Subscribe(0)
		go pub.Run(ctx, sub)
	}

	srv := api.NewServer(api.Options{
		Addr:    cfg.API.Addr,
		Core:    core,
		Hub:     hub,
		Version: version,
		Logger:  logger,
	})
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("api server failed", "error", err)
			os.Exit(1)
		}
	}()

	feeds := sim.New(core, sim.Options{
		Symbols:     cfg.Sim.Symbols,
		Interval:    cfg.Sim.Interval(),
		OutageAfter: cfg.Sim.OutageAfter(),
		OutageFor:   cfg.Sim.OutageFor(),
		Logger:      logger,
	})
	go feeds.Run(ctx)

	if cfg.Router.LivenessInterval() > 0 {
		go core.WatchLiveness(ctx, cfg.Router.LivenessInterval(), cfg.Router.StaleAfter())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info("shutdown signal received", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown error", "error", err)
	}

	snap := core.Status()
	logger.Info("feedrouter stopped",
		"final_state", snap.State.String(),
		"fallback_activations", snap.FallbackActivations,
		"uptime_percent", snap.UptimePercent)
	return nil
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "csv":
		return journal.NewCSV(cfg.TransitionsFile, cfg.RejectionsFile)
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	default:
		return journal.Nop{}, nil
	}
}
