package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Tiliavir/toggl-worklog-sync/internal/model"
	"github.com/Tiliavir/toggl-worklog-sync/internal/toggl"
)

// Config is the root configuration for tws, stored in ~/.tws/config.json.
// The file supports single-line // comments for documentation purposes.
// Every key can be overridden from the environment as TWS_<SECTION>_<KEY>,
// e.g. TWS_TOGGL_API_TOKEN.
type Config struct {
	Toggl     TogglConfig     `json:"toggl" mapstructure:"toggl"`
	Jira      JiraConfig      `json:"jira" mapstructure:"jira"`
	Timesheet TimesheetConfig `json:"timesheet" mapstructure:"timesheet"`
	Ledger    LedgerConfig    `json:"ledger" mapstructure:"ledger"`
	Sync      SyncConfig      `json:"sync" mapstructure:"sync"`
}

// TogglConfig holds the Toggl Track source settings.
type TogglConfig struct {
	APIToken string `json:"api_token" mapstructure:"api_token"`
	BaseURL  string `json:"base_url" mapstructure:"base_url"`
}

// JiraConfig holds the issue tracker settings.
type JiraConfig struct {
	BaseURL  string `json:"base_url" mapstructure:"base_url"`
	APIToken string `json:"api_token" mapstructure:"api_token"`
}

// TimesheetConfig holds the tagged time-entry service settings. When ClientID
// and ClientSecret are set, tokens are fetched from TokenURL; otherwise
// APIToken is used as is.
type TimesheetConfig struct {
	BaseURL      string `json:"base_url" mapstructure:"base_url"`
	APIToken     string `json:"api_token" mapstructure:"api_token"`
	ClientID     string `json:"client_id" mapstructure:"client_id"`
	ClientSecret string `json:"client_secret" mapstructure:"client_secret"`
	TokenURL     string `json:"token_url" mapstructure:"token_url"`
}

// LedgerConfig selects where sync records are kept.
type LedgerConfig struct {
	// Backend is "file" (JSON) or "sqlite".
	Backend string `json:"backend" mapstructure:"backend"`
	// Dir holds the ledger files. Empty means ~/.tws.
	Dir string `json:"dir" mapstructure:"dir"`
}

// SyncConfig holds run defaults.
type SyncConfig struct {
	Target string `json:"target" mapstructure:"target"`
	// Timezone is the IANA zone used to decide an entry's calendar day.
	// Empty = the local zone of the machine.
	Timezone          string  `json:"timezone" mapstructure:"timezone"`
	RequestsPerSecond float64 `json:"requests_per_second" mapstructure:"requests_per_second"`
}

const (
	// BackendFile keeps the ledger in an atomically rewritten JSON file.
	BackendFile = "file"
	// BackendSQLite keeps the ledger in a SQLite database.
	BackendSQLite = "sqlite"
	// DefaultRequestsPerSecond paces downstream creates.
	DefaultRequestsPerSecond = 5.0
)

// defaults lists every key with its built-in value. Keys must be known to
// viper for environment overrides to reach Unmarshal.
var defaults = map[string]any{
	"toggl.api_token":          "",
	"toggl.base_url":           toggl.DefaultBaseURL,
	"jira.base_url":            "",
	"jira.api_token":           "",
	"timesheet.base_url":       "",
	"timesheet.api_token":      "",
	"timesheet.client_id":      "",
	"timesheet.client_secret":  "",
	"timesheet.token_url":      "",
	"ledger.backend":           BackendFile,
	"ledger.dir":               "",
	"sync.target":              string(model.TargetJira),
	"sync.timezone":            "",
	"sync.requests_per_second": DefaultRequestsPerSecond,
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing,
// allowing human-readable documentation inside the file.
const configTemplate = `// tws configuration – ~/.tws/config.json
//
// Secrets may be left empty here and supplied through the environment instead:
// TWS_TOGGL_API_TOKEN, TWS_JIRA_API_TOKEN, TWS_TIMESHEET_CLIENT_SECRET, ...
{
  // ── Toggl Track (source of time entries) ───────────────────────────────
  "toggl": {
    // Personal API token from https://track.toggl.com/profile
    "api_token": "",
    "base_url": "https://api.track.toggl.com"
  },

  // ── Jira (target "jira": one work log per issue and day) ───────────────
  "jira": {
    // e.g. "https://jira.example.com"
    "base_url": "",
    // Personal access token, sent as a bearer token.
    "api_token": ""
  },

  // ── Timesheet service (target "timesheet": one tagged entry per entry) ─
  "timesheet": {
    "base_url": "",
    // Either a static bearer token ...
    "api_token": "",
    // ... or OAuth2 client credentials.
    "client_id": "",
    "client_secret": "",
    "token_url": ""
  },

  // ── Sync ledger ─────────────────────────────────────────────────────────
  "ledger": {
    // "file" (JSON, default) or "sqlite"
    "backend": "file",
    // Directory for ledger files. Leave empty for ~/.tws
    "dir": ""
  },

  // ── Run defaults ────────────────────────────────────────────────────────
  "sync": {
    // Default target: "jira" or "timesheet". Override with --target.
    "target": "jira",
    // IANA timezone deciding which day an entry belongs to, e.g. "Europe/Berlin".
    // Leave empty to use the local timezone.
    "timezone": "",
    // Maximum create requests per second sent downstream.
    "requests_per_second": 5
  }
}
`

// FilePath returns the path to ~/.tws/config.json.
func FilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".tws", "config.json"), nil
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// Load reads ~/.tws/config.json, creating it with annotated defaults on first
// run.
func Load() (Config, error) {
	path, err := FilePath()
	if err != nil {
		return Config{}, err
	}
	return LoadFile(path)
}

// LoadFile reads the config at path, applying defaults and TWS_* environment
// overrides. A missing file is created from the annotated template.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
		data = []byte(configTemplate)
	} else if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	v := viper.New()
	v.SetConfigType("json")
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix("TWS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadConfig(bytes.NewReader(stripLineComments(data))); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values that have a fixed set of choices.
func (c Config) Validate() error {
	if _, err := model.ParseTarget(c.Sync.Target); err != nil {
		return fmt.Errorf("sync.target: %w", err)
	}
	switch c.Ledger.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("ledger.backend: unknown backend %q (want %q or %q)", c.Ledger.Backend, BackendFile, BackendSQLite)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the configured timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Sync.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Sync.Timezone)
	if err != nil {
		return nil, fmt.Errorf("sync.timezone: %w", err)
	}
	return loc, nil
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
