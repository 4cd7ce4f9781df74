package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/envcrypt/envcrypt/internal/audit"
	kerrors "github.com/envcrypt/envcrypt/internal/errors"
	"github.com/envcrypt/envcrypt/internal/ui"
	"github.com/envcrypt/envcrypt/internal/workflows"
)

var (
	logDir       string
	logLimit     int
	logReverse   bool
	logUser      string
	logOperation string
	logSince     string
	logUntil     string
	logJSON      bool
)

func init() {
	logCmd.Flags().StringVar(&logDir, "dir", "", "project directory (default: nearest project directory)")
	logCmd.Flags().IntVarP(&logLimit, "number", "n", 0, "limit number of entries shown")
	logCmd.Flags().BoolVar(&logReverse, "reverse", false, "show most recent entries first")
	logCmd.Flags().StringVar(&logUser, "user", "", "filter by user name")
	logCmd.Flags().StringVar(&logOperation, "operation", "", "filter by operation type (comma-separated)")
	logCmd.Flags().StringVar(&logSince, "since", "", "show entries after date (YYYY-MM-DD)")
	logCmd.Flags().StringVar(&logUntil, "until", "", "show entries before date (YYYY-MM-DD)")
	logCmd.Flags().BoolVar(&logJSON, "json", false, "output as JSON array")
}

func resetLogCommandState() {
	logDir = ""
	logLimit = 0
	logReverse = false
	logUser = ""
	logOperation = ""
	logSince = ""
	logUntil = ""
	logJSON = false
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View the audit log",
	Long: `Displays the audit log of encrypt and decrypt runs.

The audit log is only written when enabled in .envcrypt.toml:

  [audit]
  enabled = true

Examples:
  envcrypt log                              # View full log
  envcrypt log -n 10                        # Last 10 entries
  envcrypt log --reverse                    # Most recent first
  envcrypt log --operation encrypt          # Filter by operation
  envcrypt log --since 2024-01-01           # Filter by date
  envcrypt log --json                       # JSON output`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting log command")
		out := cmd.OutOrStdout()

		dir, err := resolveDir(logDir)
		if err != nil {
			return report(out, err)
		}

		result, err := workflows.Log(cmd.Context(), workflows.LogOptions{
			Dir:        dir,
			Limit:      logLimit,
			Reverse:    logReverse,
			User:       logUser,
			Operations: logOperation,
			Since:      logSince,
			Until:      logUntil,
			Logger:     Logger,
		})
		if errors.Is(err, kerrors.ErrNoAuditLog) {
			fmt.Fprintln(out, ui.Info.Sprint("ℹ")+" No audit log found. Enable it with "+ui.Code.Sprint("envcrypt init --audit"))
			return nil
		}
		if err != nil {
			return report(out, err)
		}

		Logger.Debugf("Parsed %d entries, %d after filtering", result.TotalEntriesBeforeFilter, len(result.Entries))

		if logJSON {
			return outputLogJSON(out, result.Entries)
		}

		if len(result.Entries) == 0 {
			if result.TotalEntriesBeforeFilter == 0 {
				fmt.Fprintln(out, "No audit log entries found.")
			} else {
				fmt.Fprintln(out, "No audit log entries found matching the filters.")
			}
			return nil
		}

		for _, e := range result.Entries {
			fmt.Fprintf(out, "%-19s  %-16s  %-8s  %s  %s\n",
				workflows.FormatDateTime(e.Timestamp), e.User, e.Operation,
				ui.Hash.Sprint(ui.ShortHash(e.Hash)), workflows.FormatDetails(e))
		}
		return nil
	},
}

func outputLogJSON(out io.Writer, entries []audit.Entry) error {
	if entries == nil {
		entries = []audit.Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entries to JSON: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}
