// Package worklog turns upstream time entries into work-log candidates:
// normalization, grouping and summary totals. Everything here is pure.
package worklog

import (
	"regexp"

	"github.com/Tiliavir/toggl-worklog-sync/internal/model"
)

// issueKeyRe matches project-key style references such as "AB-12".
var issueKeyRe = regexp.MustCompile(`[A-Z][A-Z0-9]+-[0-9]+`)

// ExtractIssueKey returns the first issue reference in s, or nil.
func ExtractIssueKey(s string) *string {
	m := issueKeyRe.FindString(s)
	if m == "" {
		return nil
	}
	return &m
}

// Normalize converts a raw entry into its canonical shape. Negative durations
// (running timers) become zero and mark the entry as running.
func Normalize(raw model.RawEntry) model.NormalizedEntry {
	dur := raw.Duration
	if dur < 0 {
		dur = 0
	}
	key := ExtractIssueKey(raw.Description)
	tags := make([]string, len(raw.Tags))
	copy(tags, raw.Tags)

	return model.NormalizedEntry{
		ID:              raw.ID,
		Description:     raw.Description,
		DurationSeconds: dur,
		StartedAt:       raw.Start,
		IssueKey:        key,
		HasJiraIssue:    key != nil,
		HasTags:         len(raw.Tags) > 0,
		Tags:            tags,
		Running:         raw.Duration < 0,
	}
}

// NormalizeAll normalizes every raw entry, preserving order.
func NormalizeAll(raws []model.RawEntry) []model.NormalizedEntry {
	out := make([]model.NormalizedEntry, 0, len(raws))
	for _, r := range raws {
		out = append(out, Normalize(r))
	}
	return out
}
