package driven

// ConfigStore reads and writes persisted settings by dotted key, such as
// "llm.provider" or "ingestion.chunk_size". Typed getters return the zero
// value for missing keys and for values of another type.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64
	GetBool(key string) bool

	// Set stores a value and persists it before returning.
	Set(key string, value any) error

	// Path names where the configuration lives.
	Path() string
}
