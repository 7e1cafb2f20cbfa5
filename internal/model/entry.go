package model

import "time"

// RawEntry is a time entry as delivered by the upstream time tracker.
// Duration is negative while the timer is still running.
type RawEntry struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Duration    int64     `json:"duration"`
	Start       time.Time `json:"start"`
	Tags        []string  `json:"tags"`
}

// NormalizedEntry is the canonical shape every later stage works on.
// Build it with worklog.Normalize; do not mutate it afterwards.
type NormalizedEntry struct {
	ID              string    `json:"id"`
	Description     string    `json:"description"`
	DurationSeconds int64     `json:"duration_seconds"`
	StartedAt       time.Time `json:"started_at"`
	IssueKey        *string   `json:"issue_key"`
	HasJiraIssue    bool      `json:"has_jira_issue"`
	HasTags         bool      `json:"has_tags"`
	Tags            []string  `json:"tags"`
	// Running is set while the upstream timer has not been stopped.
	Running bool `json:"running"`
}

// Issue returns the issue key or "" when the entry has none.
func (e NormalizedEntry) Issue() string {
	if e.IssueKey == nil {
		return ""
	}
	return *e.IssueKey
}

// End returns StartedAt plus the entry duration.
func (e NormalizedEntry) End() time.Time {
	return e.StartedAt.Add(time.Duration(e.DurationSeconds) * time.Second)
}

// Group is a set of entries sharing a grouping key.
type Group struct {
	Key          string            `json:"key"`
	IssueKey     string            `json:"issue_key,omitempty"`
	Description  string            `json:"description,omitempty"`
	Date         string            `json:"date,omitempty"`
	Entries      []NormalizedEntry `json:"entries"`
	TotalSeconds int64             `json:"total_seconds"`
}

// Add appends e and keeps TotalSeconds equal to the sum of entry durations.
func (g *Group) Add(e NormalizedEntry) {
	g.Entries = append(g.Entries, e)
	g.TotalSeconds += e.DurationSeconds
}

// Start returns the start of the first entry.
func (g Group) Start() time.Time {
	if len(g.Entries) == 0 {
		return time.Time{}
	}
	return g.Entries[0].StartedAt
}

// End returns the end of the last entry.
func (g Group) End() time.Time {
	if len(g.Entries) == 0 {
		return time.Time{}
	}
	return g.Entries[len(g.Entries)-1].End()
}
