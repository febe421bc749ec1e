package driving

import (
	"context"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

// Retriever is a read-only similarity search over one index namespace.
type Retriever interface {
	// Namespace returns the index namespace.
	Namespace() string

	// Query embeds text and returns up to k chunks by descending similarity.
	// k <= 0 uses the configured default.
	Query(ctx context.Context, text string, k int) ([]domain.RetrievedChunk, error)

	// QueryVector searches with a precomputed embedding.
	QueryVector(ctx context.Context, embedding []float32, k int) ([]domain.RetrievedChunk, error)
}
