package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/feedrouter/config"
	"github.com/rustyeddy/feedrouter/journal"
	"github.com/rustyeddy/feedrouter/replay"
	"github.com/rustyeddy/feedrouter/router"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a capture file through the routing core",
	Long: `Replay a recorded capture through a fresh routing core and report where
the route ended up. Captures are CSV, optionally xz or lzma compressed:

  time,source,symbol,price,volume,prev_close[,event,arg]

Examples:
  feedrouter replay --file capture.csv --summary
  feedrouter replay --file outage.csv.xz --speed 10 --db incident.sqlite`,
	RunE: runReplay,
}

var (
	replayFile    string
	replaySpeed   float64
	replayStrict  bool
	replaySummary bool
	replayDBPath  string
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVarP(&replayFile, "file", "f", "", "capture file to replay (required)")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 0, "playback speed, 0 replays as fast as possible")
	replayCmd.Flags().BoolVar(&replayStrict, "strict", false, "abort on the first malformed row")
	replayCmd.Flags().BoolVar(&replaySummary, "summary", false, "print the final routing snapshot")
	replayCmd.Flags().StringVarP(&replayDBPath, "db", "d", "", "journal replayed transitions into this SQLite DB")
	replayCmd.MarkFlagRequired("file")
}

func runReplay(cmd *cobra.Command, args []string) error {
	logger := initLogger(config.LogConfig{Level: "warn", Format: "pretty"})

	core := router.New(router.Options{Logger: logger})

	if replayDBPath != "" {
		j, err := journal.NewSQLite(replayDBPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()

		jh := journal.NewRouterHook(j, logger)
		core.AddStateListener(jh)
		core.AddRejectListener(jh)
	}

	fmt.Printf("Replaying capture: %s\n", replayFile)
	stats, err := replay.CSV(context.Background(), replayFile, core, replay.Options{
		Speed:  replaySpeed,
		Strict: replayStrict,
	})
	if err != nil {
		return fmt.Errorf("replay error: %w", err)
	}

	fmt.Printf("\nReplay complete!\n")
	fmt.Printf("  Rows: %d (samples %d, events %d, skipped %d)\n",
		stats.Rows, stats.Samples, stats.Events, stats.Skipped)
	if replayDBPath != "" {
		fmt.Printf("\nTransitions saved to: %s\n", replayDBPath)
	}

	if replaySummary {
		printSnapshot(core.Status())
	}
	return nil
}

func printSnapshot(snap router.Snapshot) {
	fmt.Printf("\nFinal routing snapshot:\n")
	fmt.Printf("  State: %s", snap.State)
	if snap.Reason != "" {
		fmt.Printf(" (%s)", snap.Reason)
	}
	fmt.Println()
	fmt.Printf("  Fallback activations: %d (%.1fs on fallback, uptime %.2f%%)\n",
		snap.FallbackActivations, snap.FallbackDuration.Seconds(), snap.UptimePercent)
	fmt.Printf("  Primary:  healthy=%v messages=%d failures=%d\n",
		snap.Primary.Healthy, snap.Primary.MessagesReceived, snap.Primary.ConsecutiveFailures)
	fmt.Printf("  Fallback: healthy=%v messages=%d failures=%d\n",
		snap.Fallback.Healthy, snap.Fallback.MessagesReceived, snap.Fallback.ConsecutiveFailures)
}
