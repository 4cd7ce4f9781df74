package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/envcrypt/envcrypt/internal/ui"
	"github.com/envcrypt/envcrypt/internal/workflows"
)

var (
	doctorJSONOutput bool
	doctorDir        string
)

// errDoctorFailed is returned when at least one health check reports an error.
var errDoctorFailed = errors.New("health checks found errors")

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSONOutput, "json", false, "output in JSON format")
	doctorCmd.Flags().StringVar(&doctorDir, "dir", "", "project directory (default: nearest project directory)")
}

func resetDoctorCommandState() {
	doctorJSONOutput = false
	doctorDir = ""
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on the protected directory",
	Long: `Runs a series of read-only health checks and reports issues.

The doctor command checks:
  - Settings file validity
  - Encrypted file presence, format and content hash
  - State file freshness and permissions
  - Gitignore configuration for plaintext and state files
  - Plaintext files not yet encrypted

Exits with status 1 when any check reports an error. Warnings alone exit 0.

Use --json for machine-readable output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting doctor command")
		out := cmd.OutOrStdout()

		dir, err := resolveDir(doctorDir)
		if err != nil {
			return report(out, err)
		}

		result, err := workflows.Doctor(cmd.Context(), workflows.DoctorOptions{
			Dir:    dir,
			Logger: Logger,
		})
		if err != nil {
			return report(out, err)
		}

		for _, check := range result.Checks {
			Logger.Debugf("Check %s: status=%s, message=%s", check.Name, check.Status.String(), check.Message)
		}

		if doctorJSONOutput {
			encoder := json.NewEncoder(out)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(result); err != nil {
				return err
			}
		} else {
			printDoctorResults(out, result)
		}

		if result.Summary.Errors > 0 {
			return &reportedError{err: errDoctorFailed}
		}
		return nil
	},
}

func printDoctorResults(out io.Writer, result *workflows.DoctorResult) {
	fmt.Fprintln(out, "Running health checks...")
	fmt.Fprintln(out)

	for _, check := range result.Checks {
		var statusIcon string
		switch check.Status {
		case workflows.CheckPass:
			statusIcon = ui.Success.Sprint("✓")
		case workflows.CheckWarning:
			statusIcon = ui.Warning.Sprint("⚠")
		case workflows.CheckError:
			statusIcon = ui.Error.Sprint("✗")
		}
		fmt.Fprintf(out, "%s %s: %s\n", statusIcon, check.Name, check.Message)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Summary: %d passed", result.Summary.Passed)
	if result.Summary.Warnings > 0 {
		fmt.Fprintf(out, ", %s", ui.Warning.Sprintf("%d warning(s)", result.Summary.Warnings))
	}
	if result.Summary.Errors > 0 {
		fmt.Fprintf(out, ", %s", ui.Error.Sprintf("%d error(s)", result.Summary.Errors))
	}
	fmt.Fprintln(out)

	if len(result.Suggestions) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Suggestions:")
		for _, suggestion := range result.Suggestions {
			fmt.Fprintf(out, "  %s %s\n", ui.Info.Sprint("→"), suggestion)
		}
	}
}
