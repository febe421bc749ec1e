package ai

import (
	"context"
	"time"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
)

// DefaultPingTimeout bounds a single provider check.
const DefaultPingTimeout = 5 * time.Second

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator checks provider settings by building the adapter and
// pinging it.
type ConfigValidator struct {
	timeout time.Duration
}

// ValidatorOption configures a ConfigValidator.
type ValidatorOption func(*ConfigValidator)

// WithPingTimeout overrides DefaultPingTimeout.
func WithPingTimeout(d time.Duration) ValidatorOption {
	return func(v *ConfigValidator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator(opts ...ValidatorOption) *ConfigValidator {
	v := &ConfigValidator{timeout: DefaultPingTimeout}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateEmbedding pings the configured embedding provider.
// Unconfigured settings pass; a provider without embeddings does not.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(ctx, settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	return v.ping(ctx, svc.Ping, domain.ErrEmbeddingUnavailable)
}

// ValidateLLM pings the configured LLM provider.
func (v *ConfigValidator) ValidateLLM(ctx context.Context, settings *domain.LLMSettings) error {
	svc, err := CreateLLMService(ctx, settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	return v.ping(ctx, svc.Ping, domain.ErrLLMUnavailable)
}

func (v *ConfigValidator) ping(ctx context.Context, ping func(context.Context) error, sentinel error) error {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	return domain.ClassifyCollaboratorError(ping(ctx), sentinel)
}
