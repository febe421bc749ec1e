// Package memory provides in-memory implementations of driven ports.
// They back tests and the process-lifetime session history.
package memory

import (
	"github.com/custodia-labs/docportal/internal/adapters/driven/config/values"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore holds configuration in memory only.
type ConfigStore struct {
	*values.Map
}

// NewConfigStore creates a store seeded with values; later maps win.
func NewConfigStore(seed ...map[string]any) *ConfigStore {
	merged := make(map[string]any)
	for _, m := range seed {
		for k, v := range m {
			merged[k] = v
		}
	}
	return &ConfigStore{Map: values.New(merged)}
}

// Set stores a configuration value.
func (s *ConfigStore) Set(key string, value any) error {
	s.Put(key, value)
	return nil
}

// Path returns ":memory:".
func (s *ConfigStore) Path() string {
	return ":memory:"
}
