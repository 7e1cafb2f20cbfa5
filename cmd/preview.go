package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/toggl-worklog-sync/internal/ledger"
	"github.com/Tiliavir/toggl-worklog-sync/internal/syncer"
	"github.com/Tiliavir/toggl-worklog-sync/internal/timecalc"
)

var (
	previewFrom   string
	previewTo     string
	previewWeek   bool
	previewTarget string
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show how unsynced time would be grouped, without contacting the target",
	Args:  cobra.NoArgs,
	RunE:  runPreview,
}

func init() {
	addWindowFlags(previewCmd, &previewFrom, &previewTo, &previewWeek)
	previewCmd.Flags().StringVar(&previewTarget, "target", "", "Target system: jira or timesheet (default from config)")
}

func runPreview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, loc, target, err := loadSettings(previewTarget)
	if err != nil {
		fail(err)
	}
	now := time.Now().In(loc)
	from, to, err := resolveWindow(previewFrom, previewTo, previewWeek, now)
	if err != nil {
		fail(err)
	}

	store, _, closeStore, err := openStore(cfg, target)
	if err != nil {
		fail(err)
	}
	defer closeStore()

	led, err := ledger.Open(ctx, store, target)
	if err != nil {
		fail(err)
	}

	plan, err := syncer.BuildPlan(ctx, newSource(cfg, slog.Default()), led, syncer.Options{
		From:     from,
		To:       to,
		Target:   target,
		Location: loc,
	})
	if err != nil {
		fail(err)
	}

	out := cmd.OutOrStdout()
	label := fmt.Sprintf("%s → %s", from.Format(timecalc.DateLayout), to.AddDate(0, 0, -1).Format(timecalc.DateLayout))
	if previewWeek {
		label = "Week " + timecalc.ISOWeekLabel(now)
	}
	fmt.Fprintf(out, "%s, target %s\n\n", label, target)

	renderPlan(out, plan)
	fmt.Fprintln(out)
	renderTable(out, summaryTable(plan.Summary))
	return nil
}
