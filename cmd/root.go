package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/toggl-worklog-sync/internal/logging"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "tws",
	Short: "Toggl worklog sync – push Toggl Track time to Jira or a timesheet",
	Long: `tws reads time entries from Toggl Track, groups them, and records them
as Jira work logs or tagged timesheet entries. A local ledger in ~/.tws/
remembers what was already sent, so repeated runs never log time twice.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(logging.New(os.Stderr, verbose))
	},
}

// Execute is the entry point called from main.
// An interrupt cancels the running command; items not yet submitted are
// reported as failed.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logging")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(ledgerCmd)
}
