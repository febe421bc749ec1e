package driving

import (
	"context"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

// SettingsService reads and changes the application settings.
type SettingsService interface {
	// Get returns the effective settings: defaults, then the config file,
	// then environment overrides.
	Get() (*domain.AppSettings, error)

	// Save persists settings to the config file.
	Save(settings *domain.AppSettings) error

	// SetEmbeddingProvider selects the embedding provider, model and key.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLMProvider selects the LLM provider, model and key.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate checks field constraints and that both providers are configured.
	Validate() error

	// ConfigPath returns where settings are persisted.
	ConfigPath() string

	// ValidateEmbeddingConfig pings the configured embedding provider.
	ValidateEmbeddingConfig(ctx context.Context) error

	// ValidateLLMConfig pings the configured LLM provider.
	ValidateLLMConfig(ctx context.Context) error
}
