package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

func ollamaTags(models string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"models":[` + models + `]}`))
	}))
}

func TestConfigValidator_Unconfigured(t *testing.T) {
	v := NewConfigValidator()
	ctx := context.Background()

	assert.NoError(t, v.ValidateEmbedding(ctx, nil))
	assert.NoError(t, v.ValidateEmbedding(ctx, &domain.EmbeddingSettings{Model: "m"}))
	assert.NoError(t, v.ValidateLLM(ctx, nil))
	assert.NoError(t, v.ValidateLLM(ctx, &domain.LLMSettings{Provider: domain.AIProviderOpenAI}))
}

func TestConfigValidator_EmbeddingUnsupportedProvider(t *testing.T) {
	err := NewConfigValidator().ValidateEmbedding(context.Background(), &domain.EmbeddingSettings{
		Provider: domain.AIProviderAnthropic,
		APIKey:   "key",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support embeddings")
}

func TestConfigValidator_PingsOllama(t *testing.T) {
	server := ollamaTags(`{"name":"nomic-embed-text:latest"},{"name":"llama3.2:latest"}`)
	defer server.Close()

	v := NewConfigValidator()
	ctx := context.Background()

	assert.NoError(t, v.ValidateEmbedding(ctx, &domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  server.URL,
		Model:    "nomic-embed-text",
	}))
	assert.NoError(t, v.ValidateLLM(ctx, &domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  server.URL,
		Model:    "llama3.2",
	}))
}

func TestConfigValidator_MissingModel(t *testing.T) {
	server := ollamaTags(`{"name":"llama3.2:latest"}`)
	defer server.Close()

	err := NewConfigValidator().ValidateLLM(context.Background(), &domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  server.URL,
		Model:    "mistral",
	})

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Contains(t, err.Error(), "ollama pull mistral")
}

func TestConfigValidator_PingTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	v := NewConfigValidator(WithPingTimeout(50 * time.Millisecond))
	err := v.ValidateEmbedding(context.Background(), &domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  server.URL,
	})

	assert.ErrorIs(t, err, domain.ErrTimeout)
}
