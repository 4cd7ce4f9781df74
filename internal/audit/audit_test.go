package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestLog_CreatesFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), ".envcrypt.audit.jsonl")

	Log(logPath, Entry{User: "tester", Operation: "encrypt", Files: []string{".env"}})

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Fatalf("Audit log file was not created")
	}
}

func TestLog_AppendsEntries(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), ".envcrypt.audit.jsonl")

	Log(logPath, Entry{User: "alice", Operation: "encrypt"})
	Log(logPath, Entry{User: "bob", Operation: "decrypt"})
	Log(logPath, Entry{User: "charlie", Operation: "encrypt"})

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read audit log: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Errorf("Expected 3 lines, got %d", len(lines))
	}
}

func TestLog_FillsIDAndTimestamp(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), ".envcrypt.audit.jsonl")

	Log(logPath, Entry{User: "tester", Operation: "encrypt"})

	entries, err := ReadEntries(logPath)
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}

	if _, err := uuid.Parse(entries[0].ID); err != nil {
		t.Errorf("Expected a UUID id, got %q: %v", entries[0].ID, err)
	}

	// Check timestamp format: 2006-01-02T15:04:05.000000Z.
	ts := entries[0].Timestamp
	if !strings.HasSuffix(ts, "Z") {
		t.Errorf("Timestamp should end with Z, got %s", ts)
	}
	if !strings.Contains(ts, ".") {
		t.Errorf("Timestamp should contain microseconds, got %s", ts)
	}
}

func TestLog_UniqueIDs(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), ".envcrypt.audit.jsonl")

	Log(logPath, Entry{Operation: "encrypt"})
	Log(logPath, Entry{Operation: "encrypt"})

	entries, err := ReadEntries(logPath)
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID == entries[1].ID {
		t.Errorf("Expected distinct ids, both were %s", entries[0].ID)
	}
}

func TestLog_OmitsEmptyFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), ".envcrypt.audit.jsonl")

	Log(logPath, Entry{User: "tester", Operation: "decrypt"})

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read audit log: %v", err)
	}

	line := strings.TrimSpace(string(data))
	for _, field := range []string{`"files"`, `"previous_hash"`, `"forced"`} {
		if strings.Contains(line, field) {
			t.Errorf("Empty %s field should be omitted", field)
		}
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(line), &parsed); err != nil {
		t.Fatalf("Entry is not valid JSON: %v", err)
	}
}

func TestLog_EmptyPath(t *testing.T) {
	// Should silently do nothing.
	Log("", Entry{Operation: "encrypt"})
}

func TestLog_UnwritablePath(t *testing.T) {
	// Should not panic when the directory is missing.
	Log(filepath.Join(t.TempDir(), "missing", "audit.jsonl"), Entry{Operation: "encrypt"})
}

func TestNewEntry(t *testing.T) {
	entry := NewEntry("encrypt")
	if entry.Operation != "encrypt" {
		t.Errorf("Expected operation encrypt, got %s", entry.Operation)
	}
}

func TestReadEntries_MissingLog(t *testing.T) {
	entries, err := ReadEntries(filepath.Join(t.TempDir(), "nope.jsonl"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if entries != nil {
		t.Errorf("Expected nil entries, got %v", entries)
	}
}

func TestParseEntries_ValidData(t *testing.T) {
	data := []byte(`{"ts":"2024-01-15T10:30:00.123456Z","user":"alice","op":"encrypt"}
{"ts":"2024-01-15T10:35:00.456789Z","user":"bob","op":"decrypt"}
`)

	entries, err := ParseEntries(data)
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].User != "alice" {
		t.Errorf("Expected first user alice, got %s", entries[0].User)
	}
	if entries[1].Operation != "decrypt" {
		t.Errorf("Expected second op decrypt, got %s", entries[1].Operation)
	}
}

func TestParseEntries_SkipsMalformedLines(t *testing.T) {
	data := []byte(`{"ts":"2024-01-15T10:30:00.123456Z","user":"alice","op":"encrypt"}
this is not valid json
{"ts":"2024-01-15T10:35:00.456789Z","user":"bob","op":"decrypt"}
`)

	entries, err := ParseEntries(data)
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}

	if len(entries) != 2 {
		t.Errorf("Expected 2 valid entries (malformed should be skipped), got %d", len(entries))
	}
}

func TestParseEntries_EmptyData(t *testing.T) {
	entries, err := ParseEntries([]byte{})
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}

	if entries != nil {
		t.Errorf("Expected nil entries for empty data, got %v", entries)
	}
}
