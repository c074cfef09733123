//go:build !tinygo

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// LoadMachine reads a machine table from a TOML file, or from JSON when the
// file name ends in .json. Unset values take their defaults and the result
// is validated.
func LoadMachine(path string) (*Machine, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load machine config: %w", err)
		}
		return ParseMachineJSON(data)
	}

	var m Machine
	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, fmt.Errorf("load machine config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("load machine config: unknown key %q", undecoded[0].String())
	}
	return finish(&m)
}

// ParseMachineJSON parses a JSON machine table
func ParseMachineJSON(data []byte) (*Machine, error) {
	var m Machine
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse machine config: %w", err)
	}
	return finish(&m)
}

func finish(m *Machine) (*Machine, error) {
	applyDefaults(m)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
