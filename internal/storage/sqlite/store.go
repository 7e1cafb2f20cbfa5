// Package sqlite is a SQLite-backed ledger store.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Tiliavir/toggl-worklog-sync/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Store keeps ledger records in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.
//
// The database runs in WAL mode with synchronous = FULL so a committed append
// survives a crash.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One writer per run.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ReadAll returns every record ordered by identity.
func (s *Store) ReadAll(ctx context.Context) ([]model.LedgerRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identity, entry_id, issue_key, work_log_id, target, duration_seconds, synced_at, run_id
		FROM ledger
		ORDER BY identity
	`)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	defer rows.Close()

	var out []model.LedgerRecord
	for rows.Next() {
		var (
			r        model.LedgerRecord
			target   string
			syncedAt string
		)
		if err := rows.Scan(&r.Identity, &r.EntryID, &r.IssueKey, &r.WorkLogID, &target, &r.DurationSeconds, &syncedAt, &r.RunID); err != nil {
			return nil, fmt.Errorf("read ledger: %w", err)
		}
		r.Target = model.Target(target)
		r.SyncedAt, err = time.Parse(time.RFC3339Nano, syncedAt)
		if err != nil {
			return nil, fmt.Errorf("read ledger: bad synced_at %q for %s: %w", syncedAt, r.Identity, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return out, nil
}

// Append inserts records in one transaction. Existing identities are left
// untouched (ON CONFLICT DO NOTHING).
func (s *Store) Append(ctx context.Context, records []model.LedgerRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger
		(identity, entry_id, issue_key, work_log_id, target, duration_seconds, synced_at, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.Identity,
			r.EntryID,
			r.IssueKey,
			r.WorkLogID,
			string(r.Target),
			r.DurationSeconds,
			r.SyncedAt.UTC().Format(time.RFC3339Nano),
			r.RunID,
		); err != nil {
			return fmt.Errorf("append ledger: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append ledger: commit: %w", err)
	}
	return nil
}

// Clear deletes every record.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ledger`); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	return nil
}
