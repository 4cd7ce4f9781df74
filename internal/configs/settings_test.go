package configs

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	kerrors "github.com/envcrypt/envcrypt/internal/errors"
)

func writeSettings(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, SettingsFileName), []byte(content), 0644); err != nil { // #nosec G306
		t.Fatalf("Failed to write settings: %v", err)
	}
}

func TestLoadSettings_MissingFileUsesDefaults(t *testing.T) {
	settings, err := LoadSettings(t.TempDir())
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}

	if !reflect.DeepEqual(settings, DefaultSettings()) {
		t.Errorf("Expected defaults, got %+v", settings)
	}
	if settings.Audit.Enabled {
		t.Error("Audit should be disabled by default")
	}
}

func TestLoadSettings_PartialFile(t *testing.T) {
	dir := t.TempDir()
	writeSettings(t, dir, "[files]\nexclude = [\".env.example\"]\n\n[workers]\nparallelism = 2\n")

	settings, err := LoadSettings(dir)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}

	if !reflect.DeepEqual(settings.Files.Include, []string{".env*"}) {
		t.Errorf("Expected default include, got %v", settings.Files.Include)
	}
	if !reflect.DeepEqual(settings.Files.Exclude, []string{".env.example"}) {
		t.Errorf("Expected exclude from file, got %v", settings.Files.Exclude)
	}
	if settings.Workers.Parallelism != 2 {
		t.Errorf("Expected parallelism 2, got %d", settings.Workers.Parallelism)
	}
	if settings.Bundle.Name != DefaultBundleName || settings.Bundle.State != DefaultStateName {
		t.Errorf("Expected default bundle names, got %+v", settings.Bundle)
	}
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown key":      "[files]\ninclud = [\".env\"]\n",
		"bad toml":         "[files\n",
		"bad glob":         "[files]\ninclude = [\"[\"]\n",
		"path in pattern":  "[files]\nexclude = [\"sub/.env\"]\n",
		"path in bundle":   "[bundle]\nname = \"../out\"\n",
		"same names":       "[bundle]\nname = \"x\"\nstate = \"x\"\n",
		"negative workers": "[workers]\nparallelism = -1\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeSettings(t, dir, content)

			if _, err := LoadSettings(dir); !errors.Is(err, kerrors.ErrInvalidSettings) {
				t.Errorf("Expected ErrInvalidSettings, got: %v", err)
			}
		})
	}
}

func TestSaveSettings_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := DefaultSettings()
	original.Files.Include = []string{".env*", "*.secret"}
	original.Bundle.Name = "secrets.enc"
	original.Audit.Enabled = true

	if err := SaveSettings(dir, original); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	loaded, err := LoadSettings(dir)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, original) {
		t.Errorf("Expected %+v, got %+v", original, loaded)
	}
}

func TestSaveSettings_RejectsInvalid(t *testing.T) {
	settings := DefaultSettings()
	settings.Bundle.State = ""

	if err := SaveSettings(t.TempDir(), settings); !errors.Is(err, kerrors.ErrInvalidSettings) {
		t.Errorf("Expected ErrInvalidSettings, got: %v", err)
	}
}

func TestSettings_Reserved(t *testing.T) {
	settings := DefaultSettings()
	settings.Bundle.Name = "secrets.enc"

	for _, name := range []string{"secrets.enc", "SECRETS.ENC", DefaultStateName, SettingsFileName, AuditLogName} {
		if !settings.IsReserved(name) {
			t.Errorf("Expected %s to be reserved", name)
		}
	}
	if settings.IsReserved(".env") {
		t.Error(".env should not be reserved")
	}

	sel := settings.Selector()
	if sel.Matches(DefaultStateName) || sel.Matches(SettingsFileName) || sel.Matches(AuditLogName) {
		t.Error("Selector should never match envcrypt's own files")
	}
	if !sel.Matches(".env") {
		t.Error("Selector should match .env")
	}
}

func TestSettings_Paths(t *testing.T) {
	settings := DefaultSettings()

	if got := settings.BundlePath("/project"); got != filepath.Join("/project", DefaultBundleName) {
		t.Errorf("Unexpected bundle path %s", got)
	}
	if got := settings.AuditLogPath("/project"); got != filepath.Join("/project", AuditLogName) {
		t.Errorf("Unexpected audit log path %s", got)
	}
}
