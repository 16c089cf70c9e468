package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/feedrouter/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query journaled routing history",
	Long: `Query and display routing records from a SQLite journal.

Subcommands:
  transition - Get details of a specific transition by ID
  recent     - List the most recent transitions
  day        - List transitions and rejections for a specific day

Examples:
  feedrouter journal transition <id>
  feedrouter journal recent --limit 20
  feedrouter journal day 2026-03-02`,
}

var journalTransitionCmd = &cobra.Command{
	Use:   "transition <id>",
	Short: "Get details of a specific transition",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTransition,
}

var journalRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recent transitions",
	Args:  cobra.NoArgs,
	RunE:  runJournalRecent,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List transitions and rejections for a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var (
	journalDBPath string
	journalLimit  int
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTransitionCmd)
	journalCmd.AddCommand(journalRecentCmd)
	journalCmd.AddCommand(journalDayCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./feedrouter.sqlite", "path to SQLite journal DB")
	journalRecentCmd.Flags().IntVarP(&journalLimit, "limit", "n", 10, "number of transitions to list")
}

func runJournalTransition(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	rec, err := j.GetTransition(args[0])
	if err != nil {
		return fmt.Errorf("get transition: %w", err)
	}

	fmt.Println(journal.FormatTransitionOrg(rec))
	return nil
}

func runJournalRecent(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	recs, err := j.RecentTransitions(journalLimit)
	if err != nil {
		return fmt.Errorf("query transitions: %w", err)
	}

	fmt.Println(journal.FormatTransitionsOrg(recs))
	return nil
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	start, end, err := dayBounds(time.Local, args[0])
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	trans, err := j.ListTransitionsBetween(start, end)
	if err != nil {
		return fmt.Errorf("query transitions: %w", err)
	}
	rejects, err := j.ListRejectionsBetween(start, end)
	if err != nil {
		return fmt.Errorf("query rejections: %w", err)
	}

	fmt.Println(journal.FormatTransitionsOrg(trans))
	fmt.Println()
	fmt.Println(journal.FormatRejectionsOrg(rejects))
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)
	return start, end, nil
}
