package domain

import (
	"path/filepath"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "google"

	// AIProviderGroq is Groq's OpenAI-compatible API.
	AIProviderGroq AIProvider = "groq"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini, AIProviderGroq:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p != AIProviderOllama && p.IsValid()
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// SupportsEmbeddings returns true if the provider offers an embedding API.
func (p AIProvider) SupportsEmbeddings() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI || p == AIProviderGemini
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	case AIProviderGroq:
		return "Groq (cloud)"
	default:
		return unknownDescription
	}
}

// APIKeyEnv returns the environment variable conventionally holding the provider's key.
func (p AIProvider) APIKeyEnv() string {
	switch p {
	case AIProviderOpenAI:
		return "OPENAI_API_KEY"
	case AIProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case AIProviderGemini:
		return "GOOGLE_API_KEY"
	case AIProviderGroq:
		return "GROQ_API_KEY"
	default:
		return ""
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string

	// Dimensions overrides the model's default vector size when non-zero.
	Dimensions int `validate:"gte=0"`
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.SupportsEmbeddings() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string

	// Temperature controls randomness of answers.
	Temperature float64 `validate:"gte=0,lte=2"`

	// MaxTokens caps the generated answer length.
	MaxTokens int `validate:"gte=1"`
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// StorageSettings holds the storage roots.
// Empty sub-directories are derived from DataDir.
type StorageSettings struct {
	// DataDir is the root of all persisted data.
	DataDir string `validate:"required"`

	// SessionsDir holds one directory per session.
	SessionsDir string

	// IndexDir holds one index namespace directory per session.
	IndexDir string

	// CompareDir holds the comparison staging areas.
	CompareDir string

	// CatalogPath is the session catalog database file.
	CatalogPath string
}

// Resolved returns a copy with derived directories filled in.
func (s StorageSettings) Resolved() StorageSettings {
	if s.SessionsDir == "" {
		s.SessionsDir = filepath.Join(s.DataDir, "sessions")
	}
	if s.IndexDir == "" {
		s.IndexDir = filepath.Join(s.DataDir, "index")
	}
	if s.CompareDir == "" {
		s.CompareDir = filepath.Join(s.DataDir, "compare")
	}
	if s.CatalogPath == "" {
		s.CatalogPath = filepath.Join(s.DataDir, "catalog.db")
	}
	return s
}

// IngestionSettings holds splitting and upload limits.
type IngestionSettings struct {
	// ChunkSize is the maximum number of characters per chunk.
	ChunkSize int `validate:"gte=1"`

	// Overlap is the number of characters carried over between chunks.
	Overlap int `validate:"gte=0"`

	// MaxFileBytes rejects larger uploads. 0 disables the limit.
	MaxFileBytes int64 `validate:"gte=0"`

	// ExtractWorkers bounds parallel text extraction.
	ExtractWorkers int `validate:"gte=1"`
}

// RetrievalSettings holds query-time behaviour.
type RetrievalSettings struct {
	// TopK is the number of context chunks retrieved per question.
	TopK int `validate:"gte=1"`

	// DedupOverlappingContext trims text repeated across adjacent chunks
	// of the same document before building the context block.
	DedupOverlappingContext bool
}

// RetentionSettings holds the session cleanup policy.
type RetentionSettings struct {
	// KeepLatest is the number of newest sessions kept by cleanup.
	KeepLatest int `validate:"gte=1"`
}

// TimeoutSettings holds per-collaborator deadlines.
type TimeoutSettings struct {
	Extraction time.Duration `validate:"gte=0"`
	Embedding  time.Duration `validate:"gte=0"`
	LLM        time.Duration `validate:"gte=0"`
}

// RateLimitSettings throttles collaborator calls. Zero means unlimited.
type RateLimitSettings struct {
	EmbeddingRPS float64 `validate:"gte=0"`
	LLMRPS       float64 `validate:"gte=0"`
	Burst        int     `validate:"gte=0"`
}

// HistorySettings configures the in-memory session history.
type HistorySettings struct {
	// TTL evicts idle histories. Zero keeps them for the process lifetime.
	TTL time.Duration `validate:"gte=0"`
}

// LogSettings configures logging output.
type LogSettings struct {
	// Verbose enables debug output on the console.
	Verbose bool

	// File is an optional JSON log file, rotated automatically.
	File string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Storage   StorageSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Ingestion IngestionSettings
	Retrieval RetrievalSettings
	Retention RetentionSettings
	Timeouts  TimeoutSettings
	RateLimit RateLimitSettings
	History   HistorySettings
	Log       LogSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// AI providers are left unconfigured; they come from the config file or environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Storage: StorageSettings{
			DataDir: "data",
		},
		LLM: LLMSettings{
			Temperature: 0.2,
			MaxTokens:   2048,
		},
		Ingestion: IngestionSettings{
			ChunkSize:      1000,
			Overlap:        300,
			MaxFileBytes:   50 << 20,
			ExtractWorkers: 4,
		},
		Retrieval: RetrievalSettings{
			TopK: 5,
		},
		Retention: RetentionSettings{
			KeepLatest: 5,
		},
		Timeouts: TimeoutSettings{
			Extraction: 60 * time.Second,
			Embedding:  60 * time.Second,
			LLM:        120 * time.Second,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderGemini,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderGroq,
		AIProviderGemini,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderOllama,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderGemini: "text-embedding-004",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-2.0-flash",
		AIProviderGroq:      "llama-3.1-8b-instant",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Gemini models
		"text-embedding-004":   768,
		"gemini-embedding-001": 3072,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// PipelineConfigFor returns the chunk-then-fingerprint pipeline for the ingestion settings.
func PipelineConfigFor(s IngestionSettings) PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker", "fingerprint"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": s.ChunkSize,
				"overlap":    s.Overlap,
			},
		},
	}
}

// DefaultPipelineConfig returns the default pipeline configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfigFor(DefaultAppSettings().Ingestion)
}
