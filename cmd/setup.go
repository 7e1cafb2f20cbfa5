package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Tiliavir/toggl-worklog-sync/internal/config"
	"github.com/Tiliavir/toggl-worklog-sync/internal/jira"
	"github.com/Tiliavir/toggl-worklog-sync/internal/ledger"
	"github.com/Tiliavir/toggl-worklog-sync/internal/model"
	"github.com/Tiliavir/toggl-worklog-sync/internal/storage"
	"github.com/Tiliavir/toggl-worklog-sync/internal/storage/sqlite"
	"github.com/Tiliavir/toggl-worklog-sync/internal/submit"
	"github.com/Tiliavir/toggl-worklog-sync/internal/syncerr"
	"github.com/Tiliavir/toggl-worklog-sync/internal/timesheet"
	"github.com/Tiliavir/toggl-worklog-sync/internal/toggl"
)

// fail prints err and exits with status 1. Used for setup and validation
// errors that stop a command before any work is done.
func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

// loadSettings reads the config and returns it with the configured timezone
// and the target chosen by flag (or the configured default).
func loadSettings(targetFlag string) (config.Config, *time.Location, model.Target, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, "", err
	}
	loc, err := cfg.Location()
	if err != nil {
		return config.Config{}, nil, "", err
	}
	name := cfg.Sync.Target
	if targetFlag != "" {
		name = targetFlag
	}
	target, err := model.ParseTarget(name)
	if err != nil {
		return config.Config{}, nil, "", fmt.Errorf("%w: %v", syncerr.ErrInvalidInput, err)
	}
	return cfg, loc, target, nil
}

// openStore opens the ledger store for target. The returned close func must
// be called when the command is done.
func openStore(cfg config.Config, target model.Target) (ledger.Store, string, func() error, error) {
	dir := cfg.Ledger.Dir
	if dir == "" {
		base, err := storage.BaseDir()
		if err != nil {
			return nil, "", nil, err
		}
		dir = base
	}

	switch cfg.Ledger.Backend {
	case config.BackendSQLite:
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, "", nil, fmt.Errorf("creating ledger directory: %w", err)
		}
		path := storage.SQLitePath(dir, target)
		st, err := sqlite.Open(path)
		if err != nil {
			return nil, "", nil, err
		}
		return st, path, st.Close, nil
	default:
		path := storage.LedgerPath(dir, target)
		return storage.NewFileStore(path), path, func() error { return nil }, nil
	}
}

func newSource(cfg config.Config, logger *slog.Logger) *toggl.Client {
	return toggl.NewClient(cfg.Toggl.APIToken,
		toggl.WithBaseURL(cfg.Toggl.BaseURL),
		toggl.WithLogger(logger))
}

// newCoordinator builds the downstream client for target and a coordinator
// around it. The Jira client doubles as the issue resolver for timesheet
// entries when Jira is configured.
func newCoordinator(ctx context.Context, cfg config.Config, target model.Target, logger *slog.Logger) (*submit.Coordinator, error) {
	opts := []submit.Option{
		submit.WithLogger(logger),
		submit.WithRateLimit(cfg.Sync.RequestsPerSecond),
	}

	var jc *jira.Client
	if cfg.Jira.BaseURL != "" {
		jc = jira.NewClient(ctx, cfg.Jira.BaseURL, cfg.Jira.APIToken, logger)
	}

	switch target {
	case model.TargetJira:
		if jc == nil {
			return nil, fmt.Errorf("%w: jira.base_url is not configured", syncerr.ErrInvalidInput)
		}
		return submit.New(jc, opts...), nil
	case model.TargetTimesheet:
		if cfg.Timesheet.BaseURL == "" {
			return nil, fmt.Errorf("%w: timesheet.base_url is not configured", syncerr.ErrInvalidInput)
		}
		tc := timesheet.NewClient(ctx, cfg.Timesheet.BaseURL, timesheet.Credentials{
			Token:        cfg.Timesheet.APIToken,
			ClientID:     cfg.Timesheet.ClientID,
			ClientSecret: cfg.Timesheet.ClientSecret,
			TokenURL:     cfg.Timesheet.TokenURL,
		}, logger)
		opts = append(opts, submit.WithTagLister(tc))
		if jc != nil {
			opts = append(opts, submit.WithIssueResolver(jc))
		}
		return submit.New(tc, opts...), nil
	}
	return nil, fmt.Errorf("%w: unknown target %q", syncerr.ErrInvalidInput, target)
}
