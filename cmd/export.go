package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/toggl-worklog-sync/internal/model"
)

var exportFormat string

var ledgerExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export ledger records to stdout",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	ledgerExportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json")
}

func runExport(cmd *cobra.Command, args []string) error {
	led, _, closeStore := openLedger(cmd)
	defer closeStore()

	records := led.Records()
	out := cmd.OutOrStdout()

	switch exportFormat {
	case "json":
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("error encoding JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
	case "csv":
		printCSV(out, records)
	default:
		return fmt.Errorf("unknown format %q (want csv or json)", exportFormat)
	}
	return nil
}

func printCSV(w io.Writer, records []model.LedgerRecord) {
	fmt.Fprintln(w, "synced_at,target,issue,entry_id,work_log_id,duration_minutes,run_id,identity")
	for _, r := range records {
		fmt.Fprintf(w, "%s,%s,%s,%s,%s,%d,%s,%s\n",
			csvEscape(r.SyncedAt.Format(time.RFC3339)),
			csvEscape(string(r.Target)),
			csvEscape(r.IssueKey),
			csvEscape(r.EntryID),
			csvEscape(r.WorkLogID),
			r.DurationSeconds/60,
			csvEscape(r.RunID),
			csvEscape(r.Identity),
		)
	}
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	needsQuote := false
	for _, c := range s {
		if c == ',' || c == '"' || c == '\n' || c == '\r' {
			needsQuote = true
			break
		}
	}
	if !needsQuote {
		return s
	}
	// Escape internal double quotes by doubling them.
	escaped := ""
	for _, c := range s {
		if c == '"' {
			escaped += "\""
		}
		escaped += string(c)
	}
	return `"` + escaped + `"`
}
