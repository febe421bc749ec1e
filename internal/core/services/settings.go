package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
	"github.com/custodia-labs/docportal/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyDataDir      = "storage.data_dir"
	keySessionsDir  = "storage.sessions_dir"
	keyIndexDir     = "storage.index_dir"
	keyCompareDir   = "storage.compare_dir"
	keyCatalogPath  = "storage.catalog_path"
	keyEmbedProv    = "embedding.provider"
	keyEmbedModel   = "embedding.model"
	keyEmbedBaseURL = "embedding.base_url"
	keyEmbedAPIKey  = "embedding.api_key"
	keyEmbedDims    = "embedding.dimensions"
	keyLLMProvider  = "llm.provider"
	keyLLMModel     = "llm.model"
	keyLLMBaseURL   = "llm.base_url"
	keyLLMAPIKey    = "llm.api_key"
	keyLLMTemp      = "llm.temperature"
	keyLLMMaxTokens = "llm.max_tokens"
	keyChunkSize    = "ingestion.chunk_size"
	keyOverlap      = "ingestion.overlap"
	keyMaxFileBytes = "ingestion.max_file_bytes"
	keyWorkers      = "ingestion.extract_workers"
	keyTopK         = "retrieval.top_k"
	keyDedup        = "retrieval.dedup_overlapping_context"
	keyKeepLatest   = "retention.keep_latest"
	keyTOExtraction = "timeouts.extraction"
	keyTOEmbedding  = "timeouts.embedding"
	keyTOLLM        = "timeouts.llm"
	keyEmbedRPS     = "rate_limit.embedding_rps"
	keyLLMRPS       = "rate_limit.llm_rps"
	keyBurst        = "rate_limit.burst"
	keyHistoryTTL   = "history.ttl"
	keyLogVerbose   = "log.verbose"
	keyLogFile      = "log.file"
)

// Environment variables that override the config file.
const (
	EnvLLMProvider       = "LLM_PROVIDER"
	EnvEmbeddingProvider = "EMBEDDING_PROVIDER"
	EnvDataStoragePath   = "DATA_STORAGE_PATH"
)

const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	lookupEnv   func(string) (string, bool)
	validate    *validator.Validate
}

// SettingsOption configures a SettingsService.
type SettingsOption func(*SettingsService)

// WithEnv replaces the environment lookup, os.LookupEnv by default.
func WithEnv(lookup func(string) (string, bool)) SettingsOption {
	return func(s *SettingsService) {
		s.lookupEnv = lookup
	}
}

// NewSettingsService creates a new settings service.
func NewSettingsService(
	configStore driven.ConfigStore,
	aiValidator driven.AIConfigValidator,
	opts ...SettingsOption,
) *SettingsService {
	s := &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		lookupEnv:   os.LookupEnv,
		validate:    validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get builds the application settings from defaults, the config store and
// the environment, in increasing precedence.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Storage: domain.StorageSettings{
			DataDir:     s.getString(keyDataDir, d.Storage.DataDir),
			SessionsDir: s.configStore.GetString(keySessionsDir),
			IndexDir:    s.configStore.GetString(keyIndexDir),
			CompareDir:  s.configStore.GetString(keyCompareDir),
			CatalogPath: s.configStore.GetString(keyCatalogPath),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProv, d.Embedding.Provider),
			Model:      s.configStore.GetString(keyEmbedModel),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL),
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.configStore.GetInt(keyEmbedDims),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:       s.configStore.GetString(keyLLMModel),
			BaseURL:     s.configStore.GetString(keyLLMBaseURL),
			APIKey:      s.configStore.GetString(keyLLMAPIKey),
			Temperature: s.getFloat(keyLLMTemp, d.LLM.Temperature),
			MaxTokens:   s.getInt(keyLLMMaxTokens, d.LLM.MaxTokens),
		},
		Ingestion: domain.IngestionSettings{
			ChunkSize:      s.getInt(keyChunkSize, d.Ingestion.ChunkSize),
			Overlap:        s.getInt(keyOverlap, d.Ingestion.Overlap),
			MaxFileBytes:   int64(s.getInt(keyMaxFileBytes, int(d.Ingestion.MaxFileBytes))),
			ExtractWorkers: s.getInt(keyWorkers, d.Ingestion.ExtractWorkers),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:                    s.getInt(keyTopK, d.Retrieval.TopK),
			DedupOverlappingContext: s.getBool(keyDedup, d.Retrieval.DedupOverlappingContext),
		},
		Retention: domain.RetentionSettings{
			KeepLatest: s.getInt(keyKeepLatest, d.Retention.KeepLatest),
		},
		Timeouts: domain.TimeoutSettings{
			Extraction: s.getDuration(keyTOExtraction, d.Timeouts.Extraction),
			Embedding:  s.getDuration(keyTOEmbedding, d.Timeouts.Embedding),
			LLM:        s.getDuration(keyTOLLM, d.Timeouts.LLM),
		},
		RateLimit: domain.RateLimitSettings{
			EmbeddingRPS: s.getFloat(keyEmbedRPS, d.RateLimit.EmbeddingRPS),
			LLMRPS:       s.getFloat(keyLLMRPS, d.RateLimit.LLMRPS),
			Burst:        s.getInt(keyBurst, d.RateLimit.Burst),
		},
		History: domain.HistorySettings{
			TTL: s.getDuration(keyHistoryTTL, d.History.TTL),
		},
		Log: domain.LogSettings{
			Verbose: s.getBool(keyLogVerbose, d.Log.Verbose),
			File:    s.configStore.GetString(keyLogFile),
		},
	}

	s.applyEnv(settings)
	settings.Storage = settings.Storage.Resolved()

	return settings, nil
}

// applyEnv overrides providers, API keys and the data directory from the environment.
// An API key variable only applies to the provider it belongs to.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	if v, ok := s.env(EnvLLMProvider); ok {
		settings.LLM.Provider = domain.AIProvider(strings.ToLower(v))
	}
	if v, ok := s.env(EnvEmbeddingProvider); ok {
		settings.Embedding.Provider = domain.AIProvider(strings.ToLower(v))
	}
	if v, ok := s.env(EnvDataStoragePath); ok {
		settings.Storage.DataDir = v
	}
	if name := settings.LLM.Provider.APIKeyEnv(); name != "" {
		if v, ok := s.env(name); ok {
			settings.LLM.APIKey = v
		}
	}
	if name := settings.Embedding.Provider.APIKeyEnv(); name != "" {
		if v, ok := s.env(name); ok {
			settings.Embedding.APIKey = v
		}
	}
}

func (s *SettingsService) env(name string) (string, bool) {
	v, ok := s.lookupEnv(name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

type configValue struct {
	key   string
	value any
}

// Save persists application settings.
// API keys are only written when set; derived storage paths are not written.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []configValue{
		{keyDataDir, settings.Storage.DataDir},
		{keyEmbedProv, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTemp, settings.LLM.Temperature},
		{keyLLMMaxTokens, settings.LLM.MaxTokens},
		{keyChunkSize, settings.Ingestion.ChunkSize},
		{keyOverlap, settings.Ingestion.Overlap},
		{keyMaxFileBytes, settings.Ingestion.MaxFileBytes},
		{keyWorkers, settings.Ingestion.ExtractWorkers},
		{keyTopK, settings.Retrieval.TopK},
		{keyDedup, settings.Retrieval.DedupOverlappingContext},
		{keyKeepLatest, settings.Retention.KeepLatest},
		{keyTOExtraction, settings.Timeouts.Extraction.String()},
		{keyTOEmbedding, settings.Timeouts.Embedding.String()},
		{keyTOLLM, settings.Timeouts.LLM.String()},
		{keyEmbedRPS, settings.RateLimit.EmbeddingRPS},
		{keyLLMRPS, settings.RateLimit.LLMRPS},
		{keyBurst, settings.RateLimit.Burst},
		{keyHistoryTTL, settings.History.TTL.String()},
		{keyLogVerbose, settings.Log.Verbose},
		{keyLogFile, settings.Log.File},
	}
	if settings.Embedding.APIKey != "" {
		values = append(values, configValue{keyEmbedAPIKey, settings.Embedding.APIKey})
	}
	if settings.LLM.APIKey != "" {
		values = append(values, configValue{keyLLMAPIKey, settings.LLM.APIKey})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}
	if !provider.SupportsEmbeddings() {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	if model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}
	settings.Embedding.BaseURL = providerBaseURL(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey
	settings.Embedding.Dimensions = domain.EmbeddingDimensions()[settings.Embedding.Model]

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = model
	if model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}
	settings.LLM.BaseURL = providerBaseURL(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// providerBaseURL keeps a custom URL for local providers and clears it for cloud ones.
func providerBaseURL(provider domain.AIProvider, current string) string {
	if !provider.IsLocal() {
		return ""
	}
	if current == "" {
		return defaultOllamaURL
	}
	return current
}

// Validate checks field constraints, that overlap is smaller than the
// chunk size, and that both AI providers are configured.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.ValidateSettings(settings)
}

// ValidateSettings runs the Validate checks against settings.
func (s *SettingsService) ValidateSettings(settings *domain.AppSettings) error {
	if err := s.validate.Struct(settings); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", domain.ErrValidation, describeValidation(verrs))
		}
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	if settings.Ingestion.Overlap >= settings.Ingestion.ChunkSize {
		return fmt.Errorf("%w: ingestion.overlap (%d) must be smaller than ingestion.chunk_size (%d)",
			domain.ErrValidation, settings.Ingestion.Overlap, settings.Ingestion.ChunkSize)
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: %w: set %s (one of ollama, openai, google) and its API key",
			domain.ErrValidation, domain.ErrEmbeddingUnavailable, EnvEmbeddingProvider)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: %w: set %s (one of groq, google, openai, anthropic, ollama) and its API key",
			domain.ErrValidation, domain.ErrLLMUnavailable, EnvLLMProvider)
	}
	return nil
}

// describeValidation renders field errors as "Section.Field must be rule=param".
func describeValidation(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "AppSettings.")
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fmt.Sprintf("%s must be %s", field, rule))
	}
	return strings.Join(parts, "; ")
}

// ConfigPath returns where settings are persisted.
func (s *SettingsService) ConfigPath() string {
	return s.configStore.Path()
}

// ValidateEmbeddingConfig pings the currently configured embedding provider.
func (s *SettingsService) ValidateEmbeddingConfig(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(ctx, &settings.Embedding)
}

// ValidateLLMConfig pings the currently configured LLM provider.
func (s *SettingsService) ValidateLLMConfig(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(ctx, &settings.LLM)
}

// PipelineConfig returns the splitting pipeline for the current ingestion settings.
func (s *SettingsService) PipelineConfig() (domain.PipelineConfig, error) {
	settings, err := s.Get()
	if err != nil {
		return domain.PipelineConfig{}, err
	}
	return domain.PipelineConfigFor(settings.Ingestion), nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

// getDuration accepts Go duration strings ("90s") or integer seconds.
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	switch v := val.(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		return defaultVal
	case time.Duration:
		return v
	default:
		return time.Duration(s.configStore.GetInt(key)) * time.Second
	}
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
