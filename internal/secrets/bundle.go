package secrets

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	kerrors "github.com/envcrypt/envcrypt/internal/errors"
)

const (
	recordSeparator = ","
	recordParts     = 4

	contentHashField = "encrypted_content_hash"
	filesField       = "files"
)

// Bundle is the committed document holding every encrypted file.
type Bundle struct {
	ContentHash string            `json:"encrypted_content_hash"`
	Files       map[string]string `json:"files"`
}

// EncodeRecord serializes a record as iv,salt,tag,ciphertext in hex.
func EncodeRecord(rec *CipherRecord) string {
	return strings.Join([]string{
		hex.EncodeToString(rec.IV),
		hex.EncodeToString(rec.Salt),
		hex.EncodeToString(rec.Tag),
		hex.EncodeToString(rec.Ciphertext),
	}, recordSeparator)
}

// DecodeRecord parses the output of EncodeRecord. Parts after the fourth are
// ignored. Field lengths are checked later by DecryptRecord.
func DecodeRecord(raw string) (*CipherRecord, error) {
	parts := strings.Split(raw, recordSeparator)
	if len(parts) < recordParts {
		return nil, fmt.Errorf("%w: expected %d parts, got %d", kerrors.ErrMalformedRecord, recordParts, len(parts))
	}

	fields := make([][]byte, recordParts)
	for i, part := range parts[:recordParts] {
		b, err := hex.DecodeString(part)
		if err != nil {
			return nil, fmt.Errorf("%w: part %d is not hex: %v", kerrors.ErrMalformedRecord, i+1, err)
		}
		fields[i] = b
	}

	return &CipherRecord{
		IV:         fields[0],
		Salt:       fields[1],
		Tag:        fields[2],
		Ciphertext: fields[3],
	}, nil
}

// HashFiles returns the hex SHA-256 of the canonical JSON form of files.
// Map keys are written in sorted order and <, > and & are left unescaped. A nil map hashes the same as an empty one.
func HashFiles(files map[string]string) string {
	if files == nil {
		files = map[string]string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a map[string]string cannot fail.
	_ = enc.Encode(files)
	sum := sha256.Sum256(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return hex.EncodeToString(sum[:])
}

// NewBundle encodes records and computes the content hash over them.
func NewBundle(records map[string]*CipherRecord) *Bundle {
	files := make(map[string]string, len(records))
	for name, rec := range records {
		files[name] = EncodeRecord(rec)
	}

	return &Bundle{
		ContentHash: HashFiles(files),
		Files:       files,
	}
}

// Verify reports whether ContentHash matches Files. DecodeBundle does not call
// it; only the presence of the hash is required to decrypt.
func (b *Bundle) Verify() bool {
	return b.ContentHash == HashFiles(b.Files)
}

// Marshal renders the bundle as an indented JSON document.
func (b *Bundle) Marshal() ([]byte, error) {
	files := b.Files
	if files == nil {
		files = map[string]string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Bundle{ContentHash: b.ContentHash, Files: files}); err != nil {
		return nil, fmt.Errorf("failed to marshal bundle: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeBundle parses a bundle document. It requires both fields to be present
// and well-typed, but does not recompute the content hash.
func DecodeBundle(raw []byte) (*Bundle, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrParse, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document is null", kerrors.ErrParse)
	}

	rawFiles, ok := doc[filesField]
	if !ok || isNull(rawFiles) {
		return nil, fmt.Errorf("%w: missing '%s'", kerrors.ErrInvalidFormat, filesField)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(rawFiles, &entries); err != nil {
		return nil, fmt.Errorf("%w: '%s' is not an object", kerrors.ErrInvalidFormat, filesField)
	}

	files := make(map[string]string, len(entries))
	for name, entry := range entries {
		var encoded string
		if err := json.Unmarshal(entry, &encoded); err != nil {
			return nil, fmt.Errorf("%w: entry %q in '%s' is not a string", kerrors.ErrInvalidFormat, name, filesField)
		}
		files[name] = encoded
	}

	rawHash, ok := doc[contentHashField]
	if !ok || isNull(rawHash) {
		return nil, fmt.Errorf("%w: missing '%s'", kerrors.ErrInvalidFormat, contentHashField)
	}

	var hash string
	if err := json.Unmarshal(rawHash, &hash); err != nil {
		return nil, fmt.Errorf("%w: '%s' is not a string", kerrors.ErrInvalidFormat, contentHashField)
	}

	return &Bundle{ContentHash: hash, Files: files}, nil
}

// ReadBundle loads and decodes the bundle at path. A missing file returns
// ErrBundleNotFound.
func ReadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrBundleNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return DecodeBundle(data)
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
