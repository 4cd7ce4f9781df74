package configs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	logger "github.com/envcrypt/envcrypt/internal/logging"
)

var quiet = logger.Logger{}

func readRawState(t *testing.T, dir string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, DefaultStateName))
	if err != nil {
		t.Fatalf("Failed to read state: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("State is not a JSON object: %v", err)
	}
	return fields
}

func TestReadState_Missing(t *testing.T) {
	state, err := ReadState(t.TempDir(), DefaultStateName, quiet)
	if err != nil {
		t.Fatalf("ReadState failed: %v", err)
	}
	if state != nil || state.HasHash() {
		t.Errorf("Expected no state, got %+v", state)
	}
}

func TestReadState_Unparseable(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DefaultStateName), []byte("not json"), 0600); err != nil {
		t.Fatalf("Failed to write state: %v", err)
	}

	state, err := ReadState(dir, DefaultStateName, quiet)
	if err != nil {
		t.Fatalf("ReadState failed: %v", err)
	}
	if state != nil {
		t.Errorf("Expected unparseable state to read as absent, got %+v", state)
	}
}

func TestWriteStateHash_CreatesFile(t *testing.T) {
	dir := t.TempDir()

	if err := WriteStateHash(dir, DefaultStateName, "abc123", quiet); err != nil {
		t.Fatalf("WriteStateHash failed: %v", err)
	}

	state, err := ReadState(dir, DefaultStateName, quiet)
	if err != nil {
		t.Fatalf("ReadState failed: %v", err)
	}
	if !state.HasHash() || state.LastDecryptedHash != "abc123" {
		t.Errorf("Expected hash abc123, got %+v", state)
	}

	info, err := os.Stat(filepath.Join(dir, DefaultStateName))
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}
}

func TestWriteStateHash_PreservesOtherFields(t *testing.T) {
	dir := t.TempDir()
	content := `{"key":"testpassword","last_decrypted_hash":"old","custom":{"nested":true}}`
	if err := os.WriteFile(filepath.Join(dir, DefaultStateName), []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write state: %v", err)
	}

	if err := WriteStateHash(dir, DefaultStateName, "new", quiet); err != nil {
		t.Fatalf("WriteStateHash failed: %v", err)
	}

	fields := readRawState(t, dir)
	if fields["key"] != "testpassword" {
		t.Errorf("Expected key to be preserved, got %v", fields["key"])
	}
	if fields["last_decrypted_hash"] != "new" {
		t.Errorf("Expected new hash, got %v", fields["last_decrypted_hash"])
	}
	if custom, ok := fields["custom"].(map[string]any); !ok || custom["nested"] != true {
		t.Errorf("Expected custom field to be preserved, got %v", fields["custom"])
	}

	state, err := ReadState(dir, DefaultStateName, quiet)
	if err != nil {
		t.Fatalf("ReadState failed: %v", err)
	}
	if state.Key != "testpassword" {
		t.Errorf("Expected key testpassword, got %q", state.Key)
	}
	if _, ok := state.Extra["custom"]; !ok {
		t.Error("Expected custom field in Extra")
	}
}

func TestWriteStateHash_ReplacesUnparseable(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DefaultStateName), []byte("[1,2"), 0600); err != nil {
		t.Fatalf("Failed to write state: %v", err)
	}

	if err := WriteStateHash(dir, DefaultStateName, "abc", quiet); err != nil {
		t.Fatalf("WriteStateHash failed: %v", err)
	}

	if fields := readRawState(t, dir); fields["last_decrypted_hash"] != "abc" {
		t.Errorf("Expected hash abc, got %v", fields)
	}
}

func TestReadState_NonStringHash(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DefaultStateName), []byte(`{"last_decrypted_hash":42}`), 0600); err != nil {
		t.Fatalf("Failed to write state: %v", err)
	}

	state, err := ReadState(dir, DefaultStateName, quiet)
	if err != nil {
		t.Fatalf("ReadState failed: %v", err)
	}
	if state.HasHash() {
		t.Errorf("A non-string hash should count as absent, got %q", state.LastDecryptedHash)
	}
}

func TestStateKey_SetAndClear(t *testing.T) {
	dir := t.TempDir()
	if err := WriteStateHash(dir, DefaultStateName, "abc", quiet); err != nil {
		t.Fatalf("WriteStateHash failed: %v", err)
	}

	if err := SetStateKey(dir, DefaultStateName, "secret", quiet); err != nil {
		t.Fatalf("SetStateKey failed: %v", err)
	}
	if fields := readRawState(t, dir); fields["key"] != "secret" || fields["last_decrypted_hash"] != "abc" {
		t.Errorf("Unexpected state after SetStateKey: %v", fields)
	}

	removed, err := ClearStateKey(dir, DefaultStateName, quiet)
	if err != nil {
		t.Fatalf("ClearStateKey failed: %v", err)
	}
	if !removed {
		t.Error("Expected ClearStateKey to report a removed key")
	}
	fields := readRawState(t, dir)
	if _, ok := fields["key"]; ok {
		t.Error("Expected key to be removed")
	}
	if fields["last_decrypted_hash"] != "abc" {
		t.Error("Expected hash to survive ClearStateKey")
	}

	removed, err = ClearStateKey(dir, DefaultStateName, quiet)
	if err != nil {
		t.Fatalf("ClearStateKey failed: %v", err)
	}
	if removed {
		t.Error("Expected nothing to remove the second time")
	}
}
