package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/docportal/internal/adapters/driven/config/values"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// codec encodes the nested configuration document.
type codec struct {
	marshal   func(v any) ([]byte, error)
	unmarshal func(data []byte, v any) error
}

var (
	tomlCodec = codec{marshal: toml.Marshal, unmarshal: toml.Unmarshal}
	yamlCodec = codec{marshal: yaml.Marshal, unmarshal: yaml.Unmarshal}
)

// codecFor picks the codec from the file extension. TOML is the default.
func codecFor(path string) codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlCodec
	default:
		return tomlCodec
	}
}

// ConfigStore keeps settings in a TOML or YAML file. Tables are read as
// dotted keys and every Set rewrites the file.
type ConfigStore struct {
	*values.Map

	writeMu sync.Mutex
	path    string
	codec   codec
}

// NewConfigStore opens configDir/config.toml, with ~/.docportal as the
// default directory.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".docportal")
	}
	return NewConfigStoreAt(filepath.Join(configDir, "config.toml"))
}

// NewConfigStoreAt opens an explicit config file, creating its directory.
// .yaml and .yml files are read and written as YAML. A missing file is an
// empty configuration.
func NewConfigStoreAt(path string) (*ConfigStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}

	data, err := read(path, codecFor(path))
	if err != nil {
		return nil, err
	}
	return &ConfigStore{
		Map:   values.New(data),
		path:  path,
		codec: codecFor(path),
	}, nil
}

func read(path string, c codec) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var nested map[string]any
	if err := c.unmarshal(raw, &nested); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return values.Flatten(nested), nil
}

// Set stores value under key and rewrites the file with mode 0600.
func (s *ConfigStore) Set(key string, value any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.Put(key, value)
	encoded, err := s.codec.marshal(s.Nested())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(s.path, encoded, 0o600)
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.path
}
