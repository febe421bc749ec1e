package ai

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
)

var (
	_ driven.EmbeddingService = (*rateLimitedEmbedding)(nil)
	_ driven.LLMService       = (*rateLimitedLLM)(nil)
)

// newLimiter returns nil when rps is not positive (unlimited).
func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return domain.ClassifyCollaboratorError(err, domain.ErrTimeout)
	}
	return nil
}

// rateLimitedEmbedding throttles calls to an embedding service.
type rateLimitedEmbedding struct {
	driven.EmbeddingService
	limiter *rate.Limiter
}

// WithEmbeddingRateLimit wraps svc so it makes at most rps requests per second.
// A non-positive rps returns svc unchanged.
func WithEmbeddingRateLimit(svc driven.EmbeddingService, rps float64, burst int) driven.EmbeddingService {
	limiter := newLimiter(rps, burst)
	if limiter == nil {
		return svc
	}
	return &rateLimitedEmbedding{EmbeddingService: svc, limiter: limiter}
}

func (r *rateLimitedEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := wait(ctx, r.limiter); err != nil {
		return nil, err
	}
	return r.EmbeddingService.Embed(ctx, text)
}

func (r *rateLimitedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := wait(ctx, r.limiter); err != nil {
		return nil, err
	}
	return r.EmbeddingService.EmbedBatch(ctx, texts)
}

// rateLimitedLLM throttles calls to an LLM service.
type rateLimitedLLM struct {
	driven.LLMService
	limiter *rate.Limiter
}

// WithLLMRateLimit wraps svc so it makes at most rps requests per second.
// A non-positive rps returns svc unchanged.
func WithLLMRateLimit(svc driven.LLMService, rps float64, burst int) driven.LLMService {
	limiter := newLimiter(rps, burst)
	if limiter == nil {
		return svc
	}
	return &rateLimitedLLM{LLMService: svc, limiter: limiter}
}

func (r *rateLimitedLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if err := wait(ctx, r.limiter); err != nil {
		return "", err
	}
	return r.LLMService.Generate(ctx, prompt, opts)
}

func (r *rateLimitedLLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	if err := wait(ctx, r.limiter); err != nil {
		return "", err
	}
	return r.LLMService.Chat(ctx, messages, opts)
}
