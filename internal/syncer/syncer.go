// Package syncer runs one sync: fetch entries for a window, drop what the
// ledger already knows, group the rest, submit, and commit every accepted
// work log to the ledger as soon as it is accepted.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Tiliavir/toggl-worklog-sync/internal/ledger"
	"github.com/Tiliavir/toggl-worklog-sync/internal/model"
	"github.com/Tiliavir/toggl-worklog-sync/internal/submit"
	"github.com/Tiliavir/toggl-worklog-sync/internal/syncerr"
	"github.com/Tiliavir/toggl-worklog-sync/internal/worklog"
)

// Source delivers raw entries that started in [from, to).
type Source interface {
	FetchEntries(ctx context.Context, from, to time.Time) ([]model.RawEntry, error)
}

// Options configures a sync run.
type Options struct {
	From   time.Time
	To     time.Time
	Target model.Target
	DryRun bool
	// Location decides which calendar day an entry belongs to. Nil means UTC.
	Location *time.Location
}

func (o Options) validate() error {
	if o.From.IsZero() || o.To.IsZero() {
		return fmt.Errorf("%w: sync window needs both a start and an end", syncerr.ErrInvalidInput)
	}
	if o.To.Before(o.From) {
		return fmt.Errorf("%w: window end %s is before start %s", syncerr.ErrInvalidInput,
			o.To.Format(time.DateOnly), o.From.Format(time.DateOnly))
	}
	if _, err := model.ParseTarget(string(o.Target)); err != nil {
		return fmt.Errorf("%w: %v", syncerr.ErrInvalidInput, err)
	}
	return nil
}

// Plan is the grouped view of a window before anything is submitted.
type Plan struct {
	Target model.Target
	From   time.Time
	To     time.Time

	Entries []model.NormalizedEntry
	Synced  []model.NormalizedEntry
	// Running holds pending entries whose timer is still running. They are
	// never submitted and are picked up by a later run once stopped.
	Running []model.NormalizedEntry
	// Empty holds stopped pending entries with no recorded time. There is
	// nothing to log for them.
	Empty []model.NormalizedEntry

	SyncedGroups []model.Group
	// ByIssue and WithoutIssue split the pending entries that will be
	// submitted (or, for the issue target, cannot be) by issue reference.
	ByIssue      []model.Group
	WithoutIssue []model.Group
	// WithoutTags is only filled for the timesheet target; those entries are
	// not submitted.
	WithoutTags []model.Group

	Summary worklog.Summary
}

// BuildPlan fetches and classifies entries. It submits nothing and writes
// nothing.
func BuildPlan(ctx context.Context, src Source, led *ledger.Ledger, opts Options) (Plan, error) {
	if err := opts.validate(); err != nil {
		return Plan{}, err
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	raws, err := src.FetchEntries(ctx, opts.From, opts.To)
	if err != nil {
		return Plan{}, fmt.Errorf("fetching entries: %w", err)
	}

	entries := worklog.NormalizeAll(raws)
	for i := range entries {
		entries[i].StartedAt = entries[i].StartedAt.In(loc)
	}

	p := Plan{Target: opts.Target, From: opts.From, To: opts.To, Entries: entries}

	synced, pending := led.FilterUnsynced(entries)
	p.Synced = synced

	var submittable []model.NormalizedEntry
	for _, e := range pending {
		switch {
		case e.Running:
			p.Running = append(p.Running, e)
			continue
		case e.DurationSeconds == 0:
			p.Empty = append(p.Empty, e)
			continue
		}
		submittable = append(submittable, e)
	}

	p.SyncedGroups = groupAll(synced)

	if opts.Target == model.TargetTimesheet {
		var untagged []model.NormalizedEntry
		submittable, untagged = worklog.PartitionByTags(submittable)
		p.WithoutTags = worklog.GroupByDescription(untagged)
	}
	withIssue, withoutIssue := worklog.PartitionByIssue(submittable)
	p.ByIssue = worklog.GroupByIssueAndDate(withIssue)
	p.WithoutIssue = worklog.GroupByDescription(withoutIssue)

	p.Summary = worklog.Summarize(worklog.SummaryInput{
		Synced:       p.SyncedGroups,
		ByIssue:      p.ByIssue,
		WithoutIssue: p.WithoutIssue,
		WithoutTags:  p.WithoutTags,
	})
	return p, nil
}

func groupAll(entries []model.NormalizedEntry) []model.Group {
	withIssue, withoutIssue := worklog.PartitionByIssue(entries)
	return append(worklog.GroupByIssueAndDate(withIssue), worklog.GroupByDescription(withoutIssue)...)
}

// IssueKeys returns the distinct issue keys of the plan's submittable groups.
func (p Plan) IssueKeys() []string {
	seen := map[string]struct{}{}
	var keys []string
	for _, g := range p.ByIssue {
		if _, ok := seen[g.IssueKey]; ok {
			continue
		}
		seen[g.IssueKey] = struct{}{}
		keys = append(keys, g.IssueKey)
	}
	return keys
}

// Result holds the outcome of a run.
type Result struct {
	Plan     Plan
	Payloads []model.WorkLogPayload
	Batch    model.BatchResult
	DryRun   bool

	Created       int
	AlreadySynced int
	Skipped       int
	Failed        int
	CommitErrors  int
}

// Runner wires a source, a ledger and a coordinator for one run.
type Runner struct {
	Source      Source
	Ledger      *ledger.Ledger
	Coordinator *submit.Coordinator
	Logger      *slog.Logger
}

// Run executes one sync. Validation and fetch errors abort before anything is
// submitted; per-item failures end up in Result.Batch.Failed.
func (r *Runner) Run(ctx context.Context, opts Options) (Result, error) {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}

	plan, err := BuildPlan(ctx, r.Source, r.Ledger, opts)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		Plan:          plan,
		DryRun:        opts.DryRun,
		AlreadySynced: len(plan.Synced),
		Skipped:       len(plan.Running) + len(plan.Empty),
	}
	log.Info("planned sync",
		"target", opts.Target,
		"entries", len(plan.Entries),
		"already_synced", res.AlreadySynced,
		"running", len(plan.Running),
		"empty", len(plan.Empty))

	res.Payloads = r.payloads(ctx, plan)
	if opts.DryRun || len(res.Payloads) == 0 {
		return res, nil
	}

	// A work log accepted downstream is always recorded, even when the run
	// is being cancelled.
	r.Coordinator.AfterSubmit = func(ctx context.Context, s model.Submission) error {
		if err := r.Ledger.MarkSynced(context.WithoutCancel(ctx), s.Payload.Entries, s.Payload.IssueKey, s.DownstreamID); err != nil {
			res.CommitErrors++
			return err
		}
		return nil
	}
	res.Batch = r.Coordinator.SubmitAll(ctx, res.Payloads)
	res.Created = len(res.Batch.Successful)
	res.Failed = len(res.Batch.Failed)

	log.Info("sync finished", "created", res.Created, "failed", res.Failed, "commit_errors", res.CommitErrors)
	return res, nil
}

// payloads runs the upfront lookups and builds one payload per issue group
// (issue target) or per tagged entry (timesheet target). Lookup failures
// degrade the payloads and are already logged by the coordinator.
func (r *Runner) payloads(ctx context.Context, plan Plan) []model.WorkLogPayload {
	c := r.Coordinator
	var out []model.WorkLogPayload
	switch plan.Target {
	case model.TargetJira:
		for _, g := range plan.ByIssue {
			out = append(out, c.IssueLogPayload(g))
		}
	case model.TargetTimesheet:
		_ = c.LoadTags(ctx)
		_ = c.PrefetchIssueIDs(ctx, plan.IssueKeys())
		for _, e := range worklog.Entries(append(append([]model.Group{}, plan.ByIssue...), plan.WithoutIssue...)) {
			out = append(out, c.TaggedPayload(e))
		}
	}
	return out
}
