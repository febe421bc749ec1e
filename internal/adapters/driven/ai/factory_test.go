package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

func TestInitResult_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		result := &InitResult{}
		// Should not panic
		result.Close()
	})
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		settings    *domain.EmbeddingSettings
		wantNil     bool
		wantErr     bool
		errContains string
		wantDims    int
	}{
		{
			name:     "nil settings returns nil",
			settings: nil,
			wantNil:  true,
		},
		{
			name:     "unconfigured settings returns nil",
			settings: &domain.EmbeddingSettings{},
			wantNil:  true,
		},
		{
			name: "ollama provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				Model:    "mxbai-embed-large",
			},
			wantDims: 1024,
		},
		{
			name: "openai provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "text-embedding-3-small",
			},
			wantDims: 1536,
		},
		{
			name: "gemini provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderGemini,
				APIKey:   "test-key",
			},
			wantDims: 768,
		},
		{
			name: "explicit dimensions win",
			settings: &domain.EmbeddingSettings{
				Provider:   domain.AIProviderOpenAI,
				APIKey:     "test-key",
				Model:      "text-embedding-3-large",
				Dimensions: 256,
			},
			wantDims: 256,
		},
		{
			name: "anthropic provider returns error",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderAnthropic,
				APIKey:   "test-key",
			},
			wantNil:     true,
			wantErr:     true,
			errContains: "does not support embeddings",
		},
		{
			name: "unknown provider returns nil (not configured)",
			settings: &domain.EmbeddingSettings{
				Provider: "unknown",
				APIKey:   "test-key",
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(context.Background(), tt.settings)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			assert.Equal(t, tt.wantDims, svc.Dimensions())
		})
	}
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.LLMSettings
		wantNil   bool
		wantModel string
	}{
		{"nil settings", nil, true, ""},
		{"missing key", &domain.LLMSettings{Provider: domain.AIProviderGroq}, true, ""},
		{"ollama", &domain.LLMSettings{Provider: domain.AIProviderOllama}, false, "llama3.2"},
		{"openai", &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k"}, false, "gpt-4o-mini"},
		{"groq", &domain.LLMSettings{Provider: domain.AIProviderGroq, APIKey: "k", Model: "llama-3.1-8b-instant"}, false, "llama-3.1-8b-instant"},
		{"anthropic", &domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"}, false, "claude-3-5-sonnet-latest"},
		{"gemini", &domain.LLMSettings{Provider: domain.AIProviderGemini, APIKey: "k"}, false, "gemini-2.0-flash"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(context.Background(), tt.settings)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			assert.Equal(t, tt.wantModel, svc.ModelName())
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("missing both providers", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		result, err := Init(context.Background(), &settings)
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
		require.NotNil(t, result)
		assert.Nil(t, result.EmbeddingService)
		assert.Nil(t, result.LLMService)
	})

	t.Run("missing llm provider keeps embeddings", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOllama}
		result, err := Init(context.Background(), &settings)
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
		assert.NotErrorIs(t, err, domain.ErrEmbeddingUnavailable)
		require.NotNil(t, result)
		defer result.Close()
		assert.NotNil(t, result.EmbeddingService)
		assert.Nil(t, result.LLMService)
	})

	t.Run("rate limits wrap services", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOllama}
		settings.LLM.Provider = domain.AIProviderOllama
		settings.RateLimit = domain.RateLimitSettings{EmbeddingRPS: 2, LLMRPS: 1}

		result, err := Init(context.Background(), &settings)
		require.NoError(t, err)
		defer result.Close()

		assert.IsType(t, &rateLimitedEmbedding{}, result.EmbeddingService)
		assert.IsType(t, &rateLimitedLLM{}, result.LLMService)
		assert.Equal(t, "nomic-embed-text", result.EmbeddingService.ModelName())
	})
}
