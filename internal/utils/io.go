package utils

import (
	"fmt"
	"io"
	"strings"
)

// ReadPassphraseFrom reads a piped passphrase from r, dropping one trailing
// newline. An empty input is an error.
func ReadPassphraseFrom(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read from stdin: %w", err)
	}

	s := strings.TrimSuffix(string(data), "\n")
	s = strings.TrimSuffix(s, "\r")
	if s == "" {
		return "", fmt.Errorf("stdin is empty (hint: pipe your passphrase to this command)")
	}

	return s, nil
}
