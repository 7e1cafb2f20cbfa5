// Package ledger records which upstream entries have already been written to a
// downstream system. It is the only place that answers "was this interval
// synced before"; the submission path never asks the downstream system.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/Tiliavir/toggl-worklog-sync/internal/model"
)

// Store persists ledger records. Append must not return before the records
// are durable. Records whose identity already exists are ignored.
type Store interface {
	ReadAll(ctx context.Context) ([]model.LedgerRecord, error)
	Append(ctx context.Context, records []model.LedgerRecord) error
	Clear(ctx context.Context) error
}

// Stats is an aggregate over all ledger records.
type Stats struct {
	TotalEntries int      `json:"total_entries"`
	TotalSeconds int64    `json:"total_seconds"`
	UniqueIssues int      `json:"unique_issues"`
	Issues       []string `json:"issues"`
}

// Ledger is an in-memory index over a Store. It is not safe for concurrent use.
type Ledger struct {
	store  Store
	target model.Target
	runID  string
	now    func() time.Time
	index  map[string]model.LedgerRecord
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithRunID stamps new records with the given run identifier.
func WithRunID(id string) Option {
	return func(l *Ledger) { l.runID = id }
}

// WithClock overrides the clock used for SyncedAt.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// Open reads all records from store and returns a ledger for target.
func Open(ctx context.Context, store Store, target model.Target, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		store:  store,
		target: target,
		now:    time.Now,
		index:  map[string]model.LedgerRecord{},
	}
	for _, opt := range opts {
		opt(l)
	}

	records, err := store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	for _, r := range records {
		if _, seen := l.index[r.Identity]; !seen {
			l.index[r.Identity] = r
		}
	}
	return l, nil
}

// Identity derives a stable token for an entry from its start time and issue
// key, or its description when there is no issue key. The upstream entry ID is
// not used since it may change between fetches of the same interval.
func Identity(e model.NormalizedEntry) string {
	var subject string
	if e.IssueKey != nil {
		subject = "issue:" + *e.IssueKey
	} else {
		subject = "desc:" + e.Description
	}
	sum := sha256.Sum256([]byte(e.StartedAt.UTC().Format(time.RFC3339) + "|" + subject))
	return hex.EncodeToString(sum[:])
}

// IsSynced reports whether e already has a record.
func (l *Ledger) IsSynced(e model.NormalizedEntry) bool {
	_, ok := l.index[Identity(e)]
	return ok
}

// FilterUnsynced partitions entries into those already recorded and those
// still pending. Input order is preserved in both outputs.
func (l *Ledger) FilterUnsynced(entries []model.NormalizedEntry) (synced, unsynced []model.NormalizedEntry) {
	for _, e := range entries {
		if l.IsSynced(e) {
			synced = append(synced, e)
		} else {
			unsynced = append(unsynced, e)
		}
	}
	return synced, unsynced
}

// MarkSynced records that entries were written to the downstream work log
// workLogID. It returns once the store has persisted the records; an empty
// entry list is a no-op.
func (l *Ledger) MarkSynced(ctx context.Context, entries []model.NormalizedEntry, issueKey, workLogID string) error {
	if len(entries) == 0 {
		return nil
	}

	now := l.now().UTC()
	records := make([]model.LedgerRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, model.LedgerRecord{
			Identity:        Identity(e),
			EntryID:         e.ID,
			IssueKey:        issueKey,
			WorkLogID:       workLogID,
			Target:          l.target,
			DurationSeconds: e.DurationSeconds,
			SyncedAt:        now,
			RunID:           l.runID,
		})
	}

	if err := l.store.Append(ctx, records); err != nil {
		return fmt.Errorf("recording %d ledger entries for work log %s: %w", len(records), workLogID, err)
	}
	for _, r := range records {
		if _, seen := l.index[r.Identity]; !seen {
			l.index[r.Identity] = r
		}
	}
	return nil
}

// Clear irreversibly drops every record. Callers are expected to confirm first.
func (l *Ledger) Clear(ctx context.Context) error {
	if err := l.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing ledger: %w", err)
	}
	l.index = map[string]model.LedgerRecord{}
	return nil
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	return len(l.index)
}

// Records returns all records ordered by SyncedAt, then identity.
func (l *Ledger) Records() []model.LedgerRecord {
	out := make([]model.LedgerRecord, 0, len(l.index))
	for _, r := range l.index {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SyncedAt.Equal(out[j].SyncedAt) {
			return out[i].SyncedAt.Before(out[j].SyncedAt)
		}
		return out[i].Identity < out[j].Identity
	})
	return out
}

// Stats aggregates all records.
func (l *Ledger) Stats() Stats {
	var s Stats
	issues := map[string]struct{}{}
	for _, r := range l.index {
		s.TotalEntries++
		s.TotalSeconds += r.DurationSeconds
		if r.IssueKey != "" {
			issues[r.IssueKey] = struct{}{}
		}
	}
	s.Issues = make([]string, 0, len(issues))
	for k := range issues {
		s.Issues = append(s.Issues, k)
	}
	sort.Strings(s.Issues)
	s.UniqueIssues = len(s.Issues)
	return s
}
