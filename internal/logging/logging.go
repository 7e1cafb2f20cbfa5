// Package logging builds the slog logger used across tws, rendered by pterm.
package logging

import (
	"io"
	"log/slog"

	"github.com/pterm/pterm"
)

// New returns a logger writing to w. Debug records are shown only when
// verbose is set.
func New(w io.Writer, verbose bool) *slog.Logger {
	level := pterm.LogLevelInfo
	if verbose {
		level = pterm.LogLevelDebug
	}
	pl := pterm.DefaultLogger.WithLevel(level).WithWriter(w)
	return slog.New(pterm.NewSlogHandler(pl))
}
