package model

import "time"

// LedgerRecord maps one upstream entry to the downstream work log it was
// recorded in.
type LedgerRecord struct {
	Identity        string    `json:"identity"`
	EntryID         string    `json:"entry_id"`
	IssueKey        string    `json:"issue_key,omitempty"`
	WorkLogID       string    `json:"work_log_id"`
	Target          Target    `json:"target"`
	DurationSeconds int64     `json:"duration_seconds"`
	SyncedAt        time.Time `json:"synced_at"`
	RunID           string    `json:"run_id,omitempty"`
}
