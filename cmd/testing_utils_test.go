package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testPassphrase = "testpassword"

// runCLI executes the root command with args, feeding stdin and capturing
// everything the command writes.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	ResetGlobalState()
	t.Cleanup(ResetGlobalState)

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetIn(strings.NewReader(stdin))
	// A nil slice makes cobra fall back to os.Args.
	RootCmd.SetArgs(append([]string{}, args...))
	t.Cleanup(func() {
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
		RootCmd.SetIn(nil)
		RootCmd.SetArgs(nil)
	})

	err := RootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// setupProject returns a temp directory holding the given files, with
// ENVCRYPT_KEY unset for the duration of the test.
func setupProject(t *testing.T, files map[string]string) string {
	t.Helper()

	t.Setenv(PassphraseEnvVar, "")
	require.NoError(t, os.Unsetenv(PassphraseEnvVar))

	dir := t.TempDir()
	for name, content := range files {
		// #nosec G306 -- test fixtures
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func readTestFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}
