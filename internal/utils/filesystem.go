package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// FindProjectRoot walks up from start looking for a directory that holds any
// of the marker files. Returns an empty string if none is found before the
// filesystem root or one level above the user's home directory.
func FindProjectRoot(start string, markers []string) (string, error) {
	currentDir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", start, err)
	}

	// A missing home directory only disables the upper bound.
	homeDir, _ := os.UserHomeDir()

	for {
		// Stop searching at one level above home directory
		if homeDir != "" && currentDir == filepath.Dir(homeDir) {
			return "", nil
		}

		for _, marker := range markers {
			fileInfo, err := os.Stat(filepath.Join(currentDir, marker))
			// No error means the path exists
			if err == nil {
				if !fileInfo.IsDir() {
					return currentDir, nil
				}
			} else if !os.IsNotExist(err) {
				// Return any error that's not "file not found" (like permission issues)
				return "", fmt.Errorf("error checking for %s at %s: %w", marker, currentDir, err)
			}
		}

		parentDir := filepath.Dir(currentDir)

		// If we've reached the filesystem root without a match
		if parentDir == currentDir {
			return "", nil
		}
		currentDir = parentDir
	}
}

// WriteFileAtomic writes data to a temporary file in the target directory and
// renames it over path, so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temporary file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	syncErr := tmp.Sync()
	closeErr := tmp.Close()
	if writeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temporary file %s: %w", tmpPath, writeErr)
	}
	if syncErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temporary file %s: %w", tmpPath, syncErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temporary file %s: %w", tmpPath, closeErr)
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("set permissions on %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace %s with %s: %w", path, tmpPath, err)
	}

	return nil
}

// FileExists reports whether path exists and is not a directory.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
