package configs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	logger "github.com/envcrypt/envcrypt/internal/logging"
	"github.com/envcrypt/envcrypt/internal/utils"
)

const (
	stateHashField = "last_decrypted_hash"
	stateKeyField  = "key"
)

// StateRecord is the sidecar kept next to the bundle. Fields other than the
// two known ones are carried in Extra and written back unchanged.
type StateRecord struct {
	LastDecryptedHash string
	Key               string
	Extra             map[string]json.RawMessage
}

// HasHash reports whether a last decrypted hash is recorded.
func (s *StateRecord) HasHash() bool {
	return s != nil && s.LastDecryptedHash != ""
}

// ReadState loads the sidecar in dir. A missing file returns (nil, nil). A
// file that is not a JSON object is logged and also treated as missing.
func ReadState(dir, name string, log logger.Logger) (*StateRecord, error) {
	path := filepath.Join(dir, name)

	fields, err := readStateFields(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Debugf("No state file at %s", path)
		return nil, nil
	}
	if errors.Is(err, errUnparseableState) {
		log.WarnfAlways("Could not parse %s, ignoring it", name)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	record := &StateRecord{Extra: make(map[string]json.RawMessage)}
	for k, v := range fields {
		switch k {
		case stateHashField:
			// A non-string hash is as good as no hash.
			_ = json.Unmarshal(v, &record.LastDecryptedHash)
		case stateKeyField:
			_ = json.Unmarshal(v, &record.Key)
		default:
			record.Extra[k] = v
		}
	}

	return record, nil
}

// WriteStateHash records hash as the last decrypted hash, keeping every other
// field already in the sidecar.
func WriteStateHash(dir, name, hash string, log logger.Logger) error {
	return updateState(dir, name, log, func(fields map[string]json.RawMessage) error {
		return setField(fields, stateHashField, hash)
	})
}

// SetStateKey remembers passphrase in the sidecar's key field.
func SetStateKey(dir, name, passphrase string, log logger.Logger) error {
	return updateState(dir, name, log, func(fields map[string]json.RawMessage) error {
		return setField(fields, stateKeyField, passphrase)
	})
}

// ClearStateKey removes a remembered passphrase. It reports whether one was present.
func ClearStateKey(dir, name string, log logger.Logger) (bool, error) {
	if _, err := os.Stat(filepath.Join(dir, name)); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	removed := false
	err := updateState(dir, name, log, func(fields map[string]json.RawMessage) error {
		_, removed = fields[stateKeyField]
		delete(fields, stateKeyField)
		return nil
	})
	return removed, err
}

var errUnparseableState = errors.New("unparseable state file")

func readStateFields(path string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, errUnparseableState
	}

	return fields, nil
}

func updateState(dir, name string, log logger.Logger, mutate func(map[string]json.RawMessage) error) error {
	path := filepath.Join(dir, name)

	fields, err := readStateFields(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fields = make(map[string]json.RawMessage)
	case errors.Is(err, errUnparseableState):
		log.WarnfAlways("Could not parse %s, rewriting it", name)
		fields = make(map[string]json.RawMessage)
	case err != nil:
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := mutate(fields); err != nil {
		return err
	}

	data, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	// The sidecar may hold a remembered passphrase.
	if err := utils.WriteFileAtomic(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	log.Debugf("Updated %s", path)
	return nil
}

func setField(fields map[string]json.RawMessage, key, value string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	fields[key] = raw
	return nil
}
