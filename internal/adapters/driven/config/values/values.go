// Package values holds configuration as flat dotted keys and converts the
// loosely typed values the TOML and YAML decoders produce.
package values

import (
	"sort"
	"strings"
	"sync"
)

// Map is a concurrency-safe set of dotted configuration keys.
type Map struct {
	mu   sync.RWMutex
	data map[string]any
}

// New returns a Map holding a copy of data.
func New(data map[string]any) *Map {
	m := &Map{}
	m.Replace(data)
	return m
}

// Get retrieves a configuration value by key.
func (m *Map) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

// GetString returns the value when it is a string, else "".
func (m *Map) GetString(key string) string {
	v, _ := m.Get(key)
	s, _ := v.(string)
	return s
}

// GetInt returns integer values of any decoded width. Floats are truncated;
// anything else is 0.
func (m *Map) GetInt(key string) int {
	v, _ := m.Get(key)
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// GetFloat returns numeric values as float64, else 0.
func (m *Map) GetFloat(key string) float64 {
	v, _ := m.Get(key)
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

// GetBool returns the value when it is a bool, else false.
func (m *Map) GetBool(key string) bool {
	v, _ := m.Get(key)
	b, _ := v.(bool)
	return b
}

// Put stores value under key.
func (m *Map) Put(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// Replace swaps the whole content for a copy of data.
func (m *Map) Replace(data map[string]any) {
	cp := make(map[string]any, len(data))
	for k, v := range data {
		cp[k] = v
	}
	m.mu.Lock()
	m.data = cp
	m.mu.Unlock()
}

// Nested returns the content as nested tables, ready to encode.
func (m *Map) Nested() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Nest(m.data)
}

// Flatten turns nested tables into dotted keys: {"a": {"b": 1}} becomes
// {"a.b": 1}.
func Flatten(nested map[string]any) map[string]any {
	flat := make(map[string]any)
	flatten(flat, nested, "")
	return flat
}

func flatten(dst, nested map[string]any, prefix string) {
	for key, value := range nested {
		if prefix != "" {
			key = prefix + "." + key
		}
		if table, ok := value.(map[string]any); ok {
			flatten(dst, table, key)
			continue
		}
		dst[key] = value
	}
}

// Nest is the inverse of Flatten. Keys are applied in sorted order and a
// leaf that collides with a table keeps the table.
func Nest(flat map[string]any) map[string]any {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := make(map[string]any)
	for _, key := range keys {
		parts := strings.Split(key, ".")
		node := root
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
		leaf := parts[len(parts)-1]
		if _, isTable := node[leaf].(map[string]any); !isTable {
			node[leaf] = flat[key]
		}
	}
	return root
}
