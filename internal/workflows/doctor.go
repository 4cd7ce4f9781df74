package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/envcrypt/envcrypt/internal/configs"
	kerrors "github.com/envcrypt/envcrypt/internal/errors"
	logger "github.com/envcrypt/envcrypt/internal/logging"
	"github.com/envcrypt/envcrypt/internal/secrets"
)

// CheckStatus represents the result status of a health check.
type CheckStatus int

const (
	// CheckPass means the check passed.
	CheckPass CheckStatus = iota
	// CheckWarning means the check found a non-critical issue.
	CheckWarning
	// CheckError means the check found a critical issue.
	CheckError
)

// String returns a string representation of CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarning:
		return "warning"
	case CheckError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for CheckStatus.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CheckResult holds the result of a single health check.
type CheckResult struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// DoctorResult holds the complete result of the doctor workflow.
type DoctorResult struct {
	Checks      []CheckResult `json:"checks"`
	Summary     DoctorSummary `json:"summary"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

// DoctorSummary holds counts of checks by status.
type DoctorSummary struct {
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// DoctorOptions configures the doctor workflow.
type DoctorOptions struct {
	// Dir is the project directory. Empty means the working directory.
	Dir string

	Logger logger.Logger
}

// doctorContext is what the individual checks inspect. The bundle and state
// are loaded once and shared.
type doctorContext struct {
	*project
	bundle    *secrets.Bundle
	bundleErr error
	state     *configs.StateRecord
}

// Doctor runs health checks on a protected directory. It never writes.
//
// The doctor workflow checks:
//   - Settings file validity
//   - Encrypted file presence, format and content hash
//   - State file readability, freshness and permissions
//   - Gitignore rules for plaintext, state and encrypted files
//   - Plaintext files missing from the encrypted file
func Doctor(ctx context.Context, opts DoctorOptions) (*DoctorResult, error) {
	p, err := loadProject(opts.Dir, opts.Logger)
	if errors.Is(err, kerrors.ErrInvalidSettings) {
		// Nothing else can be trusted without settings.
		return summarize([]CheckResult{{
			Name:       "Settings",
			Status:     CheckError,
			Message:    err.Error(),
			Suggestion: fmt.Sprintf("Fix %s or run 'envcrypt init --force' to reset it", configs.SettingsFileName),
		}}), nil
	}
	if err != nil {
		return nil, err
	}

	dc := &doctorContext{project: p}
	dc.bundle, dc.bundleErr = secrets.ReadBundle(p.bundlePath())
	if _, dc.state, err = p.stateHash(); err != nil {
		return nil, err
	}

	checks := []func() CheckResult{
		dc.checkSettings,
		dc.checkBundle,
		dc.checkContentHash,
		dc.checkStateFile,
		dc.checkStatePermissions,
		dc.checkGitignore,
		dc.checkUnencryptedFiles,
	}

	var results []CheckResult
	for _, check := range checks {
		results = append(results, check())
	}

	return summarize(results), nil
}

func summarize(results []CheckResult) *DoctorResult {
	// Collect suggestions (deduplicated).
	var suggestions []string
	seen := make(map[string]bool)
	for _, result := range results {
		if result.Suggestion != "" && result.Status != CheckPass && !seen[result.Suggestion] {
			suggestions = append(suggestions, result.Suggestion)
			seen[result.Suggestion] = true
		}
	}

	return &DoctorResult{
		Checks:      results,
		Summary:     calculateDoctorSummary(results),
		Suggestions: suggestions,
	}
}

func (dc *doctorContext) checkSettings() CheckResult {
	if _, err := os.Stat(filepath.Join(dc.dir, configs.SettingsFileName)); errors.Is(err, os.ErrNotExist) {
		return CheckResult{
			Name:    "Settings",
			Status:  CheckPass,
			Message: "Using default settings",
		}
	}
	return CheckResult{
		Name:    "Settings",
		Status:  CheckPass,
		Message: configs.SettingsFileName + " is valid",
	}
}

func (dc *doctorContext) checkBundle() CheckResult {
	name := dc.settings.Bundle.Name

	switch {
	case errors.Is(dc.bundleErr, kerrors.ErrBundleNotFound):
		return CheckResult{
			Name:       "Encrypted file",
			Status:     CheckWarning,
			Message:    name + " not found",
			Suggestion: "Run 'envcrypt encrypt' to create it",
		}
	case dc.bundleErr != nil:
		return CheckResult{
			Name:       "Encrypted file",
			Status:     CheckError,
			Message:    dc.bundleErr.Error(),
			Suggestion: fmt.Sprintf("Restore %s from version control", name),
		}
	}

	for fileName, raw := range dc.bundle.Files {
		if !secrets.IsSafeFileName(fileName) || dc.settings.IsReserved(fileName) {
			return CheckResult{
				Name:       "Encrypted file",
				Status:     CheckError,
				Message:    fmt.Sprintf("%s holds an unsafe file name %q", name, fileName),
				Suggestion: fmt.Sprintf("Restore %s from version control", name),
			}
		}
		if _, err := secrets.DecodeRecord(raw); err != nil {
			return CheckResult{
				Name:       "Encrypted file",
				Status:     CheckError,
				Message:    fmt.Sprintf("Record for %s is malformed: %v", fileName, err),
				Suggestion: fmt.Sprintf("Restore %s from version control", name),
			}
		}
	}

	return CheckResult{
		Name:    "Encrypted file",
		Status:  CheckPass,
		Message: fmt.Sprintf("%s holds %d file(s)", name, len(dc.bundle.Files)),
	}
}

func (dc *doctorContext) checkContentHash() CheckResult {
	if dc.bundleErr != nil {
		return CheckResult{
			Name:    "Content hash",
			Status:  CheckWarning,
			Message: "Skipped, no readable encrypted file",
		}
	}
	if !dc.bundle.Verify() {
		return CheckResult{
			Name:       "Content hash",
			Status:     CheckWarning,
			Message:    "Stored hash does not match the encrypted records",
			Suggestion: "Decrypt and re-encrypt to rewrite the hash",
		}
	}
	return CheckResult{
		Name:    "Content hash",
		Status:  CheckPass,
		Message: "Stored hash matches the encrypted records",
	}
}

func (dc *doctorContext) checkStateFile() CheckResult {
	name := dc.settings.Bundle.State
	_, statErr := os.Stat(filepath.Join(dc.dir, name))

	switch {
	case errors.Is(statErr, os.ErrNotExist):
		return CheckResult{
			Name:       "State file",
			Status:     CheckWarning,
			Message:    name + " not found, this machine has never decrypted",
			Suggestion: "Run 'envcrypt decrypt' before editing secrets",
		}
	case dc.state == nil:
		return CheckResult{
			Name:       "State file",
			Status:     CheckWarning,
			Message:    name + " is not valid JSON and will be rewritten",
			Suggestion: "Run 'envcrypt decrypt' to rewrite it",
		}
	case dc.bundle != nil && dc.state.HasHash() && dc.state.LastDecryptedHash != dc.bundle.ContentHash:
		return CheckResult{
			Name:       "State file",
			Status:     CheckWarning,
			Message:    "The encrypted file changed since your last decrypt",
			Suggestion: "Run 'envcrypt decrypt' before editing secrets",
		}
	}

	return CheckResult{
		Name:    "State file",
		Status:  CheckPass,
		Message: name + " is up to date",
	}
}

func (dc *doctorContext) checkStatePermissions() CheckResult {
	if dc.state == nil || dc.state.Key == "" {
		return CheckResult{
			Name:    "State file permissions",
			Status:  CheckPass,
			Message: "No passphrase remembered",
		}
	}

	path := filepath.Join(dc.dir, dc.settings.Bundle.State)
	info, err := os.Stat(path)
	if err != nil {
		return CheckResult{
			Name:    "State file permissions",
			Status:  CheckError,
			Message: fmt.Sprintf("Failed to stat %s: %v", path, err),
		}
	}

	if mode := info.Mode().Perm(); mode&0077 != 0 {
		return CheckResult{
			Name:       "State file permissions",
			Status:     CheckError,
			Message:    fmt.Sprintf("%s holds a passphrase but has mode %04o", dc.settings.Bundle.State, mode),
			Suggestion: fmt.Sprintf("Run 'chmod 600 %s'", path),
		}
	}

	return CheckResult{
		Name:    "State file permissions",
		Status:  CheckPass,
		Message: "Remembered passphrase is readable only by you",
	}
}

func (dc *doctorContext) checkGitignore() CheckResult {
	content, err := os.ReadFile(filepath.Join(dc.dir, ".gitignore"))
	if errors.Is(err, os.ErrNotExist) {
		return CheckResult{
			Name:       "Gitignore configuration",
			Status:     CheckWarning,
			Message:    "No .gitignore file found",
			Suggestion: fmt.Sprintf("Create a .gitignore with: .env*, !%s", dc.settings.Bundle.Name),
		}
	}
	if err != nil {
		return CheckResult{
			Name:       "Gitignore configuration",
			Status:     CheckError,
			Message:    fmt.Sprintf("Failed to read .gitignore: %v", err),
			Suggestion: "Check that the .gitignore file is accessible",
		}
	}

	lines := strings.Split(string(content), "\n")
	suggestion := fmt.Sprintf("Add to .gitignore: .env*, !%s", dc.settings.Bundle.Name)

	if gitignored(lines, dc.settings.Bundle.Name) {
		return CheckResult{
			Name:       "Gitignore configuration",
			Status:     CheckError,
			Message:    dc.settings.Bundle.Name + " is ignored and will not be committed",
			Suggestion: suggestion,
		}
	}
	if !gitignored(lines, dc.settings.Bundle.State) {
		return CheckResult{
			Name:       "Gitignore configuration",
			Status:     CheckWarning,
			Message:    dc.settings.Bundle.State + " is not ignored",
			Suggestion: suggestion,
		}
	}
	if !gitignored(lines, ".env") {
		return CheckResult{
			Name:       "Gitignore configuration",
			Status:     CheckWarning,
			Message:    ".env is not ignored",
			Suggestion: suggestion,
		}
	}

	return CheckResult{
		Name:    "Gitignore configuration",
		Status:  CheckPass,
		Message: "Plaintext and state files are ignored",
	}
}

// gitignored approximates git's rules for a file at the top of the
// repository: the last matching pattern wins and a leading ! negates.
// Directory-only patterns are skipped.
func gitignored(lines []string, name string) bool {
	ignored := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasSuffix(line, "/") {
			continue
		}

		negated := strings.HasPrefix(line, "!")
		pattern := strings.TrimPrefix(strings.TrimPrefix(line, "!"), "/")
		pattern = strings.TrimPrefix(pattern, "**/")

		if ok, _ := doublestar.Match(pattern, name); ok {
			ignored = !negated
		}
	}
	return ignored
}

func (dc *doctorContext) checkUnencryptedFiles() CheckResult {
	local, err := secrets.FindSecretFiles(dc.dir, dc.settings.Selector())
	if err != nil {
		return CheckResult{
			Name:    "Unencrypted files",
			Status:  CheckError,
			Message: err.Error(),
		}
	}

	var missing []string
	for _, name := range local {
		if dc.bundle == nil {
			missing = append(missing, name)
			continue
		}
		if _, ok := dc.bundle.Files[name]; !ok {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return CheckResult{
			Name:       "Unencrypted files",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("%d file(s) not in the encrypted file: %s", len(missing), strings.Join(missing, ", ")),
			Suggestion: "Run 'envcrypt encrypt' to include them",
		}
	}

	return CheckResult{
		Name:    "Unencrypted files",
		Status:  CheckPass,
		Message: "Every local secret file is encrypted",
	}
}

func calculateDoctorSummary(results []CheckResult) DoctorSummary {
	var summary DoctorSummary
	for _, result := range results {
		switch result.Status {
		case CheckPass:
			summary.Passed++
		case CheckWarning:
			summary.Warnings++
		case CheckError:
			summary.Errors++
		}
	}
	return summary
}
