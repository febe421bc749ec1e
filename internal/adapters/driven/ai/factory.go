// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"errors"
	"fmt"

	geminiembed "github.com/custodia-labs/docportal/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/docportal/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docportal/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/docportal/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/docportal/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/docportal/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docportal/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
)

// InitResult contains the AI services built from the application settings.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init creates the embedding and LLM services, throttled by the rate limit settings.
// The result is never nil: a provider that is unconfigured or fails to build
// is left nil and reported in the returned error with the matching
// unavailable sentinel, so callers can keep running without it.
func Init(ctx context.Context, settings *domain.AppSettings) (*InitResult, error) {
	result := &InitResult{}
	var errs []error
	limits := settings.RateLimit

	embedding, err := CreateEmbeddingService(ctx, &settings.Embedding)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err))
	case embedding == nil:
		errs = append(errs, fmt.Errorf("%w: no embedding provider configured, set EMBEDDING_PROVIDER or embedding.provider",
			domain.ErrEmbeddingUnavailable))
	default:
		result.EmbeddingService = WithEmbeddingRateLimit(embedding, limits.EmbeddingRPS, limits.Burst)
	}

	llm, err := CreateLLMService(ctx, &settings.LLM)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err))
	case llm == nil:
		errs = append(errs, fmt.Errorf("%w: no LLM provider configured, set LLM_PROVIDER or llm.provider",
			domain.ErrLLMUnavailable))
	default:
		result.LLMService = WithLLMRateLimit(llm, limits.LLMRPS, limits.Burst)
	}

	return result, errors.Join(errs...)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		if settings != nil && settings.Provider.IsValid() && !settings.Provider.SupportsEmbeddings() {
			return nil, fmt.Errorf("%s does not support embeddings, use ollama, openai or google", settings.Provider)
		}
		return nil, nil
	}

	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		})

	case domain.AIProviderGemini:
		return geminiembed.NewEmbeddingService(ctx, geminiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderGroq:
		baseURL := settings.BaseURL
		if baseURL == "" {
			baseURL = openaillm.GroqBaseURL
		}
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:   settings.APIKey,
			BaseURL:  baseURL,
			Model:    settings.Model,
			Provider: string(domain.AIProviderGroq),
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderGemini:
		return geminillm.NewLLMService(ctx, geminillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}
