package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Tiliavir/toggl-worklog-sync/internal/model"
)

// ErrCorrupt marks a ledger file that exists but cannot be decoded.
var ErrCorrupt = errors.New("corrupt ledger file")

// ledgerFileVersion is written into every ledger file.
const ledgerFileVersion = 1

// BaseDir returns the root data directory (~/.tws).
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".tws"), nil
}

// LedgerPath returns the JSON ledger path for a target inside base.
func LedgerPath(base string, target model.Target) string {
	return filepath.Join(base, "ledger-"+string(target)+".json")
}

// SQLitePath returns the SQLite ledger path for a target inside base.
func SQLitePath(base string, target model.Target) string {
	return filepath.Join(base, "ledger-"+string(target)+".db")
}

// ledgerFile is the top-level structure of a JSON ledger file.
type ledgerFile struct {
	Version int                           `json:"version"`
	Records map[string]model.LedgerRecord `json:"records"`
}

// FileStore keeps ledger records in a single JSON file keyed by identity.
// Every write replaces the file atomically.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the file at path. The file is created
// on first append.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// ReadAll returns every record, ordered by identity.
func (s *FileStore) ReadAll(_ context.Context) ([]model.LedgerRecord, error) {
	lf, err := s.load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(lf.Records))
	for k := range lf.Records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]model.LedgerRecord, 0, len(keys))
	for _, k := range keys {
		out = append(out, lf.Records[k])
	}
	return out, nil
}

// Append adds records whose identity is not yet present and persists the file.
func (s *FileStore) Append(_ context.Context, records []model.LedgerRecord) error {
	if len(records) == 0 {
		return nil
	}
	lf, err := s.load()
	if err != nil {
		return err
	}
	added := false
	for _, r := range records {
		if _, exists := lf.Records[r.Identity]; exists {
			continue
		}
		lf.Records[r.Identity] = r
		added = true
	}
	if !added {
		return nil
	}
	return s.save(lf)
}

// Clear replaces the file with an empty ledger. An unreadable file is first
// moved to path.corrupt.
func (s *FileStore) Clear(_ context.Context) error {
	if _, err := s.load(); errors.Is(err, ErrCorrupt) {
		if err := os.Rename(s.path, s.path+".corrupt"); err != nil {
			return fmt.Errorf("storage error backing up corrupt ledger: %w", err)
		}
	}
	return s.save(ledgerFile{Version: ledgerFileVersion, Records: map[string]model.LedgerRecord{}})
}

// load reads the ledger file. Returns an empty ledger if not found.
func (s *FileStore) load() (ledgerFile, error) {
	empty := ledgerFile{Version: ledgerFileVersion, Records: map[string]model.LedgerRecord{}}
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return empty, nil
	}
	if err != nil {
		return ledgerFile{}, fmt.Errorf("storage error reading %s: %w", s.path, err)
	}

	var lf ledgerFile
	if err := json.Unmarshal(data, &lf); err != nil {
		// The file stays in place so every later run fails the same way
		// until the user repairs or clears it.
		return ledgerFile{}, fmt.Errorf("%w: %s: %v (repair the file or run `tws ledger clear`)", ErrCorrupt, s.path, err)
	}
	if lf.Records == nil {
		lf.Records = map[string]model.LedgerRecord{}
	}
	return lf, nil
}

// save atomically writes the ledger file and syncs it to disk before renaming.
func (s *FileStore) save(lf ledgerFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("storage error creating directories: %w", err)
	}

	data, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return fmt.Errorf("storage error marshalling JSON: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := writeSynced(tmpPath, data); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error renaming temp file: %w", err)
	}
	return nil
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
