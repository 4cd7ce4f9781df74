package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kerrors "github.com/envcrypt/envcrypt/internal/errors"
	"github.com/envcrypt/envcrypt/internal/secrets"
)

const (
	// DefaultBundleName is the committed, encrypted bundle.
	DefaultBundleName = ".envcrypt"

	// DefaultStateName is the per-machine sidecar. It should not be committed.
	DefaultStateName = ".envcrypt.config"

	// SettingsFileName is the optional per-directory settings file.
	SettingsFileName = ".envcrypt.toml"

	// AuditLogName is the optional audit trail.
	AuditLogName = ".envcrypt.audit.jsonl"
)

// Settings configures one protected directory.
type Settings struct {
	Files   FileSettings   `toml:"files"`
	Bundle  BundleSettings `toml:"bundle"`
	Workers WorkerSettings `toml:"workers"`
	Audit   AuditSettings  `toml:"audit"`
}

type FileSettings struct {
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

type BundleSettings struct {
	Name  string `toml:"name"`
	State string `toml:"state"`
}

type WorkerSettings struct {
	// Parallelism caps concurrent per-file work. Zero means one per CPU.
	Parallelism int `toml:"parallelism"`
}

type AuditSettings struct {
	Enabled bool `toml:"enabled"`
}

// DefaultSettings returns the settings used when no settings file exists.
func DefaultSettings() *Settings {
	return &Settings{
		Files: FileSettings{
			Include: append([]string{}, secrets.DefaultIncludePatterns...),
			Exclude: []string{},
		},
		Bundle: BundleSettings{
			Name:  DefaultBundleName,
			State: DefaultStateName,
		},
	}
}

// LoadSettings reads .envcrypt.toml from dir, filling unset values with
// defaults. A missing file is not an error.
func LoadSettings(dir string) (*Settings, error) {
	settings := DefaultSettings()
	path := filepath.Join(dir, SettingsFileName)

	md, err := LoadTOML(path, settings)
	if errors.Is(err, os.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", kerrors.ErrInvalidSettings, SettingsFileName, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: %s: unknown key %q", kerrors.ErrInvalidSettings, SettingsFileName, undecoded[0].String())
	}

	if settings.Bundle.Name == "" {
		settings.Bundle.Name = DefaultBundleName
	}
	if settings.Bundle.State == "" {
		settings.Bundle.State = DefaultStateName
	}
	if len(settings.Files.Include) == 0 {
		settings.Files.Include = append([]string{}, secrets.DefaultIncludePatterns...)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// SaveSettings writes settings to dir/.envcrypt.toml.
func SaveSettings(dir string, settings *Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	return SaveTOML(filepath.Join(dir, SettingsFileName), settings)
}

// Validate checks names and glob patterns.
func (s *Settings) Validate() error {
	for _, name := range []string{s.Bundle.Name, s.Bundle.State} {
		if !secrets.IsSafeFileName(name) {
			return fmt.Errorf("%w: %q is not a plain file name", kerrors.ErrInvalidSettings, name)
		}
	}
	if s.Bundle.Name == s.Bundle.State {
		return fmt.Errorf("%w: bundle and state must use different names", kerrors.ErrInvalidSettings)
	}
	if s.Workers.Parallelism < 0 {
		return fmt.Errorf("%w: parallelism must not be negative", kerrors.ErrInvalidSettings)
	}
	if err := s.Selector().Validate(); err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrInvalidSettings, err)
	}
	return nil
}

// ReservedNames lists the files envcrypt itself owns. None of them is ever
// encrypted into the bundle or written from it.
func (s *Settings) ReservedNames() []string {
	return []string{s.Bundle.Name, s.Bundle.State, SettingsFileName, AuditLogName}
}

// IsReserved reports whether name is one of ReservedNames.
func (s *Settings) IsReserved(name string) bool {
	for _, r := range s.ReservedNames() {
		if strings.EqualFold(name, r) {
			return true
		}
	}
	return false
}

// Selector returns the file selector for these settings.
func (s *Settings) Selector() secrets.Selector {
	return secrets.Selector{
		Include:  s.Files.Include,
		Exclude:  s.Files.Exclude,
		Reserved: s.ReservedNames(),
	}
}

// BundlePath returns the bundle location in dir.
func (s *Settings) BundlePath(dir string) string {
	return filepath.Join(dir, s.Bundle.Name)
}

// AuditLogPath returns the audit log location in dir.
func (s *Settings) AuditLogPath(dir string) string {
	return filepath.Join(dir, AuditLogName)
}

// ProjectMarkers lists the files that identify a protected directory.
func ProjectMarkers() []string {
	return []string{DefaultBundleName, DefaultStateName, SettingsFileName}
}
