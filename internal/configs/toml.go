package configs

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/envcrypt/envcrypt/internal/utils"
)

// SaveTOML encodes data as TOML and writes it atomically to filePath.
func SaveTOML(filePath string, data interface{}) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(data); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filePath, err)
	}

	// #nosec G306 -- settings hold no secrets and are meant to be committed
	return utils.WriteFileAtomic(filePath, buf.Bytes(), 0644)
}

// LoadTOML loads a TOML file into a struct and returns the decode metadata so
// callers can reject unknown keys.
func LoadTOML(filePath string, data interface{}) (toml.MetaData, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return toml.MetaData{}, err
	}
	return toml.Decode(string(raw), data)
}
