package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/toggl-worklog-sync/internal/ledger"
	"github.com/Tiliavir/toggl-worklog-sync/internal/timecalc"
)

var (
	ledgerTarget string
	ledgerYes    bool
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect or reset the record of synced entries",
}

var ledgerStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how much time the ledger records",
	Args:  cobra.NoArgs,
	RunE:  runLedgerStats,
}

var ledgerClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every synced entry (the next sync sends everything again)",
	Args:  cobra.NoArgs,
	RunE:  runLedgerClear,
}

func init() {
	ledgerCmd.PersistentFlags().StringVar(&ledgerTarget, "target", "", "Ledger of this target: jira or timesheet (default from config)")
	ledgerClearCmd.Flags().BoolVar(&ledgerYes, "yes", false, "Do not ask for confirmation")

	ledgerCmd.AddCommand(ledgerStatsCmd)
	ledgerCmd.AddCommand(ledgerClearCmd)
	ledgerCmd.AddCommand(ledgerExportCmd)
}

// openLedger opens the ledger selected by --target. The returned func closes
// the underlying store.
func openLedger(cmd *cobra.Command) (*ledger.Ledger, string, func() error) {
	cfg, _, target, err := loadSettings(ledgerTarget)
	if err != nil {
		fail(err)
	}
	store, path, closeStore, err := openStore(cfg, target)
	if err != nil {
		fail(err)
	}
	led, err := ledger.Open(cmd.Context(), store, target)
	if err != nil {
		closeStore()
		fail(err)
	}
	return led, path, closeStore
}

func runLedgerStats(cmd *cobra.Command, args []string) error {
	led, path, closeStore := openLedger(cmd)
	defer closeStore()

	s := led.Stats()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Ledger %s\n", path)
	fmt.Fprintln(out, "--------------------------------")
	fmt.Fprintf(out, "%-20s%d\n", "Entries", s.TotalEntries)
	fmt.Fprintf(out, "%-20s%s\n", "Time", timecalc.FormatDuration(s.TotalSeconds))
	fmt.Fprintf(out, "%-20s%d\n", "Issues", s.UniqueIssues)
	for _, k := range s.Issues {
		fmt.Fprintf(out, "  %s\n", k)
	}
	return nil
}

func runLedgerClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, _, target, err := loadSettings(ledgerTarget)
	if err != nil {
		fail(err)
	}
	store, path, closeStore, err := openStore(cfg, target)
	if err != nil {
		fail(err)
	}
	defer closeStore()

	// An unreadable ledger can still be cleared; that is the way out of it.
	var what string
	if led, err := ledger.Open(ctx, store, target); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		what = "the unreadable ledger"
	} else {
		what = fmt.Sprintf("all %d synced entries", led.Len())
	}

	if !ledgerYes {
		confirmed := false
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Forget %s in %s?", what, path)).
					Description("The next sync will submit this time again.").
					Affirmative("Clear").
					Negative("Cancel").
					Value(&confirmed),
			),
		).Run()
		if err != nil && !errors.Is(err, huh.ErrUserAborted) {
			return err
		}
		if !confirmed {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
	}

	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing ledger: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s from %s\n", what, path)
	return nil
}
