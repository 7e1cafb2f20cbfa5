package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/toggl-worklog-sync/internal/ledger"
	"github.com/Tiliavir/toggl-worklog-sync/internal/model"
	"github.com/Tiliavir/toggl-worklog-sync/internal/timecalc"
	"github.com/Tiliavir/toggl-worklog-sync/internal/worklog"
)

var (
	listFrom   string
	listTo     string
	listWeek   bool
	listTarget string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List Toggl entries with their issue, tags and sync state",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	addWindowFlags(listCmd, &listFrom, &listTo, &listWeek)
	listCmd.Flags().StringVar(&listTarget, "target", "", "Ledger to check sync state against (default from config)")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, loc, target, err := loadSettings(listTarget)
	if err != nil {
		fail(err)
	}
	from, to, err := resolveWindow(listFrom, listTo, listWeek, time.Now().In(loc))
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

	raws, err := newSource(cfg, slog.Default()).FetchEntries(ctx, from, to)
	if err != nil {
		fail(err)
	}
	entries := worklog.NormalizeAll(raws)
	for i := range entries {
		entries[i].StartedAt = entries[i].StartedAt.In(loc)
	}

	printList(cmd.OutOrStdout(), entries, led.IsSynced)
	return nil
}

// printList groups entries by date and prints them with their markers:
// ✓ synced, ● running, then issue key and tags.
func printList(w io.Writer, entries []model.NormalizedEntry, synced func(model.NormalizedEntry) bool) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No entries found.")
		return
	}

	var currentDay string
	for _, e := range entries {
		day := timecalc.DateKey(e.StartedAt)
		if day != currentDay {
			fmt.Fprintln(w, day)
			currentDay = day
		}

		mark := " "
		switch {
		case synced(e):
			mark = "✓"
		case e.Running:
			mark = "●"
		}

		endStr := "ongoing"
		durStr := ""
		if !e.Running {
			endStr = e.End().Format("15:04")
			durStr = fmt.Sprintf(" (%s)", timecalc.FormatDuration(e.DurationSeconds))
		}

		issue := "-"
		if e.HasJiraIssue {
			issue = e.Issue()
		}
		tags := ""
		if e.HasTags {
			tags = "  [" + strings.Join(e.Tags, ", ") + "]"
		}

		desc := e.Description
		if desc == "" {
			desc = worklog.NoDescription
		}
		fmt.Fprintf(w, "%s %s–%s  %-10s %s%s%s\n", mark, e.StartedAt.Format("15:04"), endStr, issue, desc, tags, durStr)
	}
}
