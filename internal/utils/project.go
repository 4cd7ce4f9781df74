package utils

import (
	"fmt"
	"path/filepath"
)

// GetProjectName returns the name of the directory holding the bundle.
func GetProjectName(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to get project directory: %w", err)
	}
	return filepath.Base(abs), nil
}
