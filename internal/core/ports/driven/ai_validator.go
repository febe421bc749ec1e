package driven

import (
	"context"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

// AIConfigValidator checks provider settings against the live provider
// before they are relied on.
type AIConfigValidator interface {
	// ValidateEmbedding reports whether the embedding provider answers.
	// Unconfigured settings are not an error.
	ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error

	// ValidateLLM reports whether the LLM provider answers.
	// Unconfigured settings are not an error.
	ValidateLLM(ctx context.Context, settings *domain.LLMSettings) error
}
