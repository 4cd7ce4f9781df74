package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIncludePatterns selects every file whose name begins with .env.
var DefaultIncludePatterns = []string{".env*"}

// Selector decides which directory entries are plaintext secret files.
type Selector struct {
	// Include lists glob patterns a name must match. Empty means DefaultIncludePatterns.
	Include []string

	// Exclude lists glob patterns that drop an otherwise included name.
	Exclude []string

	// Reserved lists names that are never selected, such as the bundle itself.
	Reserved []string
}

// Validate reports the first malformed pattern.
func (s Selector) Validate() error {
	for _, p := range append(append([]string{}, s.Include...), s.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob pattern %q", p)
		}
		if strings.ContainsAny(p, `/\`) {
			return fmt.Errorf("glob pattern %q must match a file name, not a path", p)
		}
	}
	return nil
}

// Matches reports whether a bare file name is selected.
func (s Selector) Matches(name string) bool {
	if isReservedName(name, s.Reserved) {
		return false
	}

	include := s.Include
	if len(include) == 0 {
		include = DefaultIncludePatterns
	}

	if !matchAny(include, name) {
		return false
	}

	return !matchAny(s.Exclude, name)
}

// FindSecretFiles lists the selected regular files directly inside dir,
// sorted by name. Symlinks count when their target is a regular file.
// Subdirectories are not searched.
func FindSecretFiles(dir string, sel Selector) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !sel.Matches(entry.Name()) {
			continue
		}
		if isRegularFile(dir, entry) {
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)
	return names, nil
}

func isRegularFile(dir string, entry os.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	// Dangling links and links to directories are skipped.
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	return err == nil && info.Mode().IsRegular()
}

// IsSafeFileName reports whether name can be written inside a directory
// without escaping it.
func IsSafeFileName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	return filepath.Base(name) == name
}

func isReservedName(name string, reserved []string) bool {
	for _, r := range reserved {
		if strings.EqualFold(name, r) {
			return true
		}
	}
	return false
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		// Patterns are validated up front, so a match error means no match.
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}
