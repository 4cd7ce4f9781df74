package secrets

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	kerrors "github.com/envcrypt/envcrypt/internal/errors"
)

func TestEncodeRecord_Format(t *testing.T) {
	rec := &CipherRecord{
		IV:         []byte{0x00, 0x01},
		Salt:       []byte{0xab},
		Tag:        []byte{0xff, 0x10},
		Ciphertext: []byte{},
	}

	if got := EncodeRecord(rec); got != "0001,ab,ff10," {
		t.Errorf("Unexpected encoding: %q", got)
	}
}

func TestDecodeRecord_RoundTrip(t *testing.T) {
	rec, err := EncryptBytes([]byte("A=1"), "testpassword")
	if err != nil {
		t.Fatalf("EncryptBytes failed: %v", err)
	}

	decoded, err := DecodeRecord(EncodeRecord(rec))
	if err != nil {
		t.Fatalf("DecodeRecord failed: %v", err)
	}

	plaintext, err := DecryptRecord(decoded, "testpassword")
	if err != nil {
		t.Fatalf("DecryptRecord failed: %v", err)
	}
	if string(plaintext) != "A=1" {
		t.Errorf("Expected A=1, got %q", plaintext)
	}
}

func TestDecodeRecord_Malformed(t *testing.T) {
	for _, raw := range []string{"", "aa,bb,cc", "zz,bb,cc,dd", "a,bb,cc,dd"} {
		if _, err := DecodeRecord(raw); !errors.Is(err, kerrors.ErrMalformedRecord) {
			t.Errorf("DecodeRecord(%q): expected ErrMalformedRecord, got: %v", raw, err)
		}
	}
}

func TestDecodeRecord_IgnoresExtraParts(t *testing.T) {
	rec, err := DecodeRecord("aa,bb,cc,dd,not-hex")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if hex.EncodeToString(rec.Ciphertext) != "dd" {
		t.Errorf("Expected ciphertext dd, got %x", rec.Ciphertext)
	}
}

func TestHashFiles_Canonical(t *testing.T) {
	a := map[string]string{".env": "1", ".env.local": "2"}
	b := map[string]string{".env.local": "2", ".env": "1"}

	if HashFiles(a) != HashFiles(b) {
		t.Error("Hash should not depend on map construction order")
	}
	if HashFiles(nil) != HashFiles(map[string]string{}) {
		t.Error("Nil and empty maps should hash the same")
	}
	// sha256("{}")
	if got := HashFiles(nil); got != "44136fa355b3678a1146ad16f7e8649e94fb4fc21fe77e8310c060f61caaff8a" {
		t.Errorf("Unexpected empty hash: %s", got)
	}
	if HashFiles(a) == HashFiles(map[string]string{".env": "1"}) {
		t.Error("Different contents should hash differently")
	}
}

func TestNewBundle_VerifiesAndMarshals(t *testing.T) {
	rec, err := EncryptBytes([]byte("A=1"), "testpassword")
	if err != nil {
		t.Fatalf("EncryptBytes failed: %v", err)
	}

	bundle := NewBundle(map[string]*CipherRecord{".env": rec})
	if !bundle.Verify() {
		t.Error("A freshly built bundle should verify")
	}

	data, err := bundle.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("Marshalled bundle should end with a newline")
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Marshalled bundle is not JSON: %v", err)
	}
	if doc["encrypted_content_hash"] != bundle.ContentHash {
		t.Errorf("Expected hash field %s, got %v", bundle.ContentHash, doc["encrypted_content_hash"])
	}

	decoded, err := DecodeBundle(data)
	if err != nil {
		t.Fatalf("DecodeBundle failed: %v", err)
	}
	if decoded.Files[".env"] != bundle.Files[".env"] {
		t.Error("Decoded record differs from the original")
	}
}

func TestBundle_MarshalNilFiles(t *testing.T) {
	data, err := (&Bundle{ContentHash: HashFiles(nil)}).Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"files": {}`) {
		t.Errorf("Nil files should marshal as an empty object, got %s", data)
	}
}

func TestDecodeBundle_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"not json", "not json", kerrors.ErrParse},
		{"null", "null", kerrors.ErrParse},
		{"array", "[]", kerrors.ErrParse},
		{"missing files", `{"encrypted_content_hash":"x"}`, kerrors.ErrInvalidFormat},
		{"null files", `{"encrypted_content_hash":"x","files":null}`, kerrors.ErrInvalidFormat},
		{"files not object", `{"encrypted_content_hash":"x","files":"y"}`, kerrors.ErrInvalidFormat},
		{"entry not string", `{"encrypted_content_hash":"x","files":{".env":1}}`, kerrors.ErrInvalidFormat},
		{"missing hash", `{"files":{}}`, kerrors.ErrInvalidFormat},
		{"hash not string", `{"encrypted_content_hash":1,"files":{}}`, kerrors.ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeBundle([]byte(tt.raw)); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got: %v", tt.want, err)
			}
		})
	}
}

func TestDecodeBundle_MissingFilesReportedFirst(t *testing.T) {
	_, err := DecodeBundle([]byte(`{}`))
	if err == nil || !strings.Contains(err.Error(), "'files'") {
		t.Errorf("Expected missing 'files' error, got: %v", err)
	}
}

func TestDecodeBundle_HashNotRecomputed(t *testing.T) {
	bundle, err := DecodeBundle([]byte(`{"encrypted_content_hash":"stale","files":{}}`))
	if err != nil {
		t.Fatalf("DecodeBundle should accept any present hash, got: %v", err)
	}
	if bundle.Verify() {
		t.Error("Verify should report the mismatched hash")
	}
}

func TestReadBundle_NotFound(t *testing.T) {
	_, err := ReadBundle(filepath.Join(t.TempDir(), ".envcrypt"))
	if !errors.Is(err, kerrors.ErrBundleNotFound) {
		t.Errorf("Expected ErrBundleNotFound, got: %v", err)
	}
}

func TestReadBundle_FromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".envcrypt")
	data, err := NewBundle(nil).Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil { // #nosec G306
		t.Fatalf("Failed to write bundle: %v", err)
	}

	bundle, err := ReadBundle(path)
	if err != nil {
		t.Fatalf("ReadBundle failed: %v", err)
	}
	if len(bundle.Files) != 0 || !bundle.Verify() {
		t.Errorf("Unexpected bundle: %+v", bundle)
	}
}

func TestHashFiles_NoHTMLEscaping(t *testing.T) {
	files := map[string]string{".env<&>": "a&b"}

	sum := sha256.Sum256([]byte(`{".env<&>":"a&b"}`))
	if got, want := HashFiles(files), hex.EncodeToString(sum[:]); got != want {
		t.Errorf("HashFiles() = %s, want %s", got, want)
	}

	data, err := (&Bundle{ContentHash: HashFiles(files), Files: files}).Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `".env<&>": "a&b"`) {
		t.Errorf("Marshal should not escape HTML characters, got %s", data)
	}
}
