package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/toggl-worklog-sync/internal/ledger"
	"github.com/Tiliavir/toggl-worklog-sync/internal/syncer"
	"github.com/Tiliavir/toggl-worklog-sync/internal/timecalc"
)

var (
	syncFrom   string
	syncTo     string
	syncWeek   bool
	syncTarget string
	syncDryRun bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Send unsynced Toggl time to the target system",
	Long: `Fetch Toggl entries for the window, skip everything the ledger already
records, and submit the rest. Each accepted work log is written to the ledger
immediately, so an interrupted or partly failed run can simply be repeated.

--from and --to accept a day count ("7" = seven days ago), a date
("2026-02-27") or an expression such as "last monday".`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	addWindowFlags(syncCmd, &syncFrom, &syncTo, &syncWeek)
	syncCmd.Flags().StringVar(&syncTarget, "target", "", "Target system: jira or timesheet (default from config)")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Prepare work logs without sending or recording them")
}

func addWindowFlags(c *cobra.Command, from, to *string, week *bool) {
	c.Flags().StringVar(from, "from", "", "Window start: day count, date or expression; default today")
	c.Flags().StringVar(to, "to", "", "Window end (inclusive); defaults to today")
	c.Flags().BoolVar(week, "week", false, "Use the current week")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, loc, target, err := loadSettings(syncTarget)
	if err != nil {
		fail(err)
	}
	from, to, err := resolveWindow(syncFrom, syncTo, syncWeek, time.Now().In(loc))
	if err != nil {
		fail(err)
	}

	runID := uuid.NewString()
	logger := slog.Default().With("run", runID)

	store, path, closeStore, err := openStore(cfg, target)
	if err != nil {
		fail(err)
	}
	defer closeStore()

	led, err := ledger.Open(ctx, store, target, ledger.WithRunID(runID))
	if err != nil {
		fail(err)
	}
	coord, err := newCoordinator(ctx, cfg, target, logger)
	if err != nil {
		fail(err)
	}
	logger.Debug("ledger opened", "path", path, "records", led.Len())

	dryTag := ""
	if syncDryRun {
		dryTag = " [dry-run]"
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Syncing Toggl entries to %s (%s → %s)%s...\n\n",
		target, from.Format(timecalc.DateLayout), to.AddDate(0, 0, -1).Format(timecalc.DateLayout), dryTag)

	runner := &syncer.Runner{
		Source:      newSource(cfg, logger),
		Ledger:      led,
		Coordinator: coord,
		Logger:      logger,
	}
	res, err := runner.Run(ctx, syncer.Options{
		From:     from,
		To:       to,
		Target:   target,
		DryRun:   syncDryRun,
		Location: loc,
	})
	if err != nil {
		closeStore()
		fail(err)
	}

	renderPlan(out, res.Plan)
	renderResult(out, res)

	if res.Failed > 0 || res.CommitErrors > 0 {
		closeStore()
		os.Exit(2)
	}
	return nil
}
