package model

import (
	"fmt"
	"time"
)

// Target names a downstream system.
type Target string

const (
	// TargetJira records one issue work log per issue and day.
	TargetJira Target = "jira"
	// TargetTimesheet records one tagged time entry per upstream entry.
	TargetTimesheet Target = "timesheet"
)

// ParseTarget validates a target name.
func ParseTarget(s string) (Target, error) {
	switch Target(s) {
	case TargetJira, TargetTimesheet:
		return Target(s), nil
	}
	return "", fmt.Errorf("unknown target %q (want %q or %q)", s, TargetJira, TargetTimesheet)
}

// Tag is a tag known to the tagged-entry system.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// WorkLogPayload is a prepared create request for a downstream system.
type WorkLogPayload struct {
	Target          Target            `json:"target"`
	IssueKey        string            `json:"issue_key,omitempty"`
	IssueID         *string           `json:"issue_id"`
	Started         time.Time         `json:"started"`
	DurationSeconds int64             `json:"duration_seconds"`
	Comment         string            `json:"comment"`
	TagIDs          []string          `json:"tag_ids,omitempty"`
	Entries         []NormalizedEntry `json:"-"`
}

// Submission is a payload the downstream system accepted.
type Submission struct {
	Payload      WorkLogPayload `json:"payload"`
	DownstreamID string         `json:"downstream_id"`
}

// Failure is a payload the downstream system rejected or never received.
type Failure struct {
	Payload WorkLogPayload `json:"payload"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
}

// BatchResult holds the outcome of submitting a list of payloads.
type BatchResult struct {
	Successful []Submission `json:"successful"`
	Failed     []Failure    `json:"failed"`
}
