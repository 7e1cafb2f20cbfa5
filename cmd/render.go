package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"

	"github.com/Tiliavir/toggl-worklog-sync/internal/model"
	"github.com/Tiliavir/toggl-worklog-sync/internal/syncer"
	"github.com/Tiliavir/toggl-worklog-sync/internal/timecalc"
	"github.com/Tiliavir/toggl-worklog-sync/internal/worklog"
)

func renderTable(w io.Writer, data pterm.TableData) {
	out, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
	if err != nil {
		fmt.Fprintln(w, err)
		return
	}
	fmt.Fprintln(w, out)
}

// summaryTable renders the per-category totals of a run.
func summaryTable(s worklog.Summary) pterm.TableData {
	row := func(name string, c worklog.CategoryTotal) []string {
		return []string{name, fmt.Sprint(c.Groups), fmt.Sprint(c.Entries), c.Formatted}
	}
	return pterm.TableData{
		{"Category", "Groups", "Entries", "Time"},
		row("Already synced", s.Synced),
		row("By issue", s.ByIssue),
		row("Without issue", s.WithoutIssue),
		row("Without tags", s.WithoutTags),
		{"Total", "", "", s.Total},
	}
}

// groupsTable lists groups with their time and first description.
func groupsTable(groups []model.Group) pterm.TableData {
	data := pterm.TableData{{"Group", "Date", "Entries", "Time", "Description"}}
	for _, g := range groups {
		desc := ""
		if len(g.Entries) > 0 {
			desc = g.Entries[0].Description
		}
		data = append(data, []string{g.Key, g.Date, fmt.Sprint(len(g.Entries)), timecalc.FormatDuration(g.TotalSeconds), desc})
	}
	return data
}

// payloadsTable lists prepared payloads, as sent or as they would be sent.
func payloadsTable(payloads []model.WorkLogPayload) pterm.TableData {
	data := pterm.TableData{{"Issue", "Started", "Time", "Tags", "Comment"}}
	for _, p := range payloads {
		issue := p.IssueKey
		if p.IssueID != nil {
			issue += " (" + *p.IssueID + ")"
		}
		data = append(data, []string{
			issue,
			p.Started.Format("2006-01-02 15:04"),
			timecalc.FormatDuration(p.DurationSeconds),
			fmt.Sprint(len(p.TagIDs)),
			firstLine(p.Comment),
		})
	}
	return data
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

func renderPlan(w io.Writer, plan syncer.Plan) {
	if len(plan.ByIssue) > 0 {
		fmt.Fprint(w, pterm.DefaultSection.Sprintln("Pending by issue"))
		renderTable(w, groupsTable(plan.ByIssue))
	}
	if len(plan.WithoutIssue) > 0 {
		fmt.Fprint(w, pterm.DefaultSection.Sprintln("Pending without issue"))
		renderTable(w, groupsTable(plan.WithoutIssue))
	}
	if len(plan.WithoutTags) > 0 {
		fmt.Fprint(w, pterm.DefaultSection.Sprintln("Without tags (not sent)"))
		renderTable(w, groupsTable(plan.WithoutTags))
	}
	if len(plan.Running) > 0 {
		fmt.Fprint(w, pterm.Warning.Sprintfln("%d running timer(s) skipped; they sync once stopped", len(plan.Running)))
	}
	if len(plan.Empty) > 0 {
		fmt.Fprint(w, pterm.Info.Sprintfln("%d entr(y/ies) without recorded time skipped", len(plan.Empty)))
	}
}

func renderResult(w io.Writer, res syncer.Result) {
	fmt.Fprint(w, pterm.DefaultSection.Sprintln("Summary"))
	renderTable(w, summaryTable(res.Plan.Summary))

	if res.DryRun {
		if len(res.Payloads) > 0 {
			fmt.Fprint(w, pterm.DefaultSection.Sprintln("Would submit"))
			renderTable(w, payloadsTable(res.Payloads))
		}
		fmt.Fprint(w, pterm.Info.Sprintfln("dry run: %d work log(s) prepared, nothing sent", len(res.Payloads)))
		return
	}

	for _, s := range res.Batch.Successful {
		fmt.Fprint(w, pterm.Success.Sprintfln("%s %s (%s) → %s",
			s.Payload.IssueKey, s.Payload.Started.Format("2006-01-02"),
			timecalc.FormatDuration(s.Payload.DurationSeconds), s.DownstreamID))
	}
	for _, f := range res.Batch.Failed {
		fmt.Fprint(w, pterm.Error.Sprintfln("%s %s: %s",
			f.Payload.IssueKey, f.Payload.Started.Format("2006-01-02"), f.Message))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %d created\n", res.Created)
	fmt.Fprintf(w, "  %d already synced\n", res.AlreadySynced)
	fmt.Fprintf(w, "  %d skipped\n", res.Skipped)
	if res.Failed > 0 {
		fmt.Fprintf(w, "  %d failed\n", res.Failed)
	}
	if res.CommitErrors > 0 {
		fmt.Fprintf(w, "  %d not recorded in the ledger\n", res.CommitErrors)
	}
}
