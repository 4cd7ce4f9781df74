package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/envcrypt/envcrypt/internal/ui"
	"github.com/envcrypt/envcrypt/internal/workflows"
)

var (
	statusJSONOutput bool
	statusDir        string
)

func init() {
	statusCmd.Flags().BoolVar(&statusJSONOutput, "json", false, "output in JSON format")
	statusCmd.Flags().StringVar(&statusDir, "dir", "", "directory to inspect (default: nearest project directory)")
}

func resetStatusCommandState() {
	statusJSONOutput = false
	statusDir = ""
}

// FileStatus describes where a secret file currently exists.
type FileStatus string

const (
	// StatusEncrypted means the file exists locally and in the encrypted file.
	StatusEncrypted FileStatus = "encrypted"
	// StatusUnencrypted means the file exists locally but not in the encrypted file.
	StatusUnencrypted FileStatus = "unencrypted"
	// StatusEncryptedOnly means the file is in the encrypted file but missing locally.
	StatusEncryptedOnly FileStatus = "encrypted_only"
)

// FileStatusInfo pairs a file name with its status.
type FileStatusInfo struct {
	Name   string     `json:"name"`
	Status FileStatus `json:"status"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how the local files relate to the encrypted file",
	Long: `Shows whether the encrypted file exists, whether your last decrypt saw its
current contents, and which .env files are only local or only encrypted.

Each file has one of three statuses:
  - encrypted:      present locally and in the encrypted file
  - unencrypted:    present locally only (run encrypt to include it)
  - encrypted_only: in the encrypted file only (run decrypt to restore it)

Status never writes anything. Use --json for machine-readable output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting status command")
		out := cmd.OutOrStdout()

		dir, err := resolveDir(statusDir)
		if err != nil {
			return report(out, err)
		}

		result, err := workflows.Status(cmd.Context(), workflows.StatusOptions{
			Dir:    dir,
			Logger: Logger,
		})
		if err != nil {
			return report(out, err)
		}

		if statusJSONOutput {
			encoder := json.NewEncoder(out)
			encoder.SetIndent("", "  ")
			return encoder.Encode(result)
		}

		printStatus(out, result)
		return nil
	},
}

// fileStatuses merges the local and encrypted file lists, sorted by name.
func fileStatuses(result *workflows.StatusResult) []FileStatusInfo {
	statuses := make(map[string]FileStatus)
	for _, name := range result.LocalFiles {
		statuses[name] = StatusUnencrypted
	}
	for _, name := range result.BundleFiles {
		statuses[name] = StatusEncrypted
	}
	for _, name := range result.MissingLocally {
		statuses[name] = StatusEncryptedOnly
	}

	files := make([]FileStatusInfo, 0, len(statuses))
	for name, status := range statuses {
		files = append(files, FileStatusInfo{Name: name, Status: status})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files
}

func printStatus(out io.Writer, result *workflows.StatusResult) {
	fmt.Fprintf(out, "Project: %s\n", ui.Highlight.Sprint(result.ProjectName))
	fmt.Fprintf(out, "Directory: %s\n\n", ui.Path.Sprint(result.Dir))

	switch {
	case !result.BundleExists:
		fmt.Fprintln(out, ui.Warning.Sprint("⚠")+" No encrypted file yet (run "+ui.Code.Sprint("envcrypt encrypt")+")")
	case result.BundleError != "":
		fmt.Fprintln(out, ui.Error.Sprint("✗")+" Encrypted file is unreadable: "+result.BundleError)
	default:
		fmt.Fprintln(out, "Encrypted file: "+ui.Path.Sprint(result.BundlePath)+" "+ui.Hash.Sprint(ui.ShortHash(result.BundleHash)))
		if !result.HashVerified {
			fmt.Fprintln(out, ui.Warning.Sprint("⚠")+" Content hash does not match the encrypted records")
		}
		switch {
		case result.InSync:
			fmt.Fprintln(out, ui.Success.Sprint("✓")+" In sync with your last decrypt")
		case result.Stale:
			fmt.Fprintln(out, ui.Warning.Sprint("⚠")+" Changed since your last decrypt (run "+ui.Code.Sprint("envcrypt decrypt")+")")
		default:
			fmt.Fprintln(out, ui.Muted.Sprint("◌")+" Never decrypted on this machine")
		}
	}
	if result.HasRememberedKey {
		fmt.Fprintln(out, ui.Info.Sprint("→")+" A passphrase is remembered for this directory")
	}
	fmt.Fprintln(out)

	files := fileStatuses(result)
	if len(files) == 0 {
		fmt.Fprintln(out, ui.Success.Sprint("✓")+" No secret files found.")
		return
	}

	pathWidth := 30
	for _, file := range files {
		if len(file.Name) > pathWidth {
			pathWidth = len(file.Name)
		}
	}

	fmt.Fprintf(out, "  %-*s  %s\n", pathWidth, "FILE", "STATUS")
	for _, file := range files {
		var statusStr string
		switch file.Status {
		case StatusEncrypted:
			statusStr = ui.Success.Sprint("✓") + " encrypted"
		case StatusUnencrypted:
			statusStr = ui.Error.Sprint("✗") + " not encrypted"
		case StatusEncryptedOnly:
			statusStr = ui.Muted.Sprint("◌") + " encrypted only (no plaintext)"
		}
		fmt.Fprintf(out, "  %-*s  %s\n", pathWidth, file.Name, statusStr)
	}
}
