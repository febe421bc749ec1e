package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
	"github.com/custodia-labs/docportal/internal/core/ports/driving"
)

// Ensure Retriever implements the interface.
var _ driving.Retriever = (*Retriever)(nil)

// RetrieverConfig configures retrievers built by a RetrieverFactory.
type RetrieverConfig struct {
	// TopK is used when a query passes k <= 0.
	TopK int

	// EmbeddingTimeout bounds the query embedding call. Zero means no limit.
	EmbeddingTimeout time.Duration
}

// RetrieverFactory binds retrievers to index namespaces.
type RetrieverFactory struct {
	indexes  *IndexManager
	embedder driven.EmbeddingService
	cfg      RetrieverConfig
}

// NewRetrieverFactory creates a factory for retrievers over indexes.
func NewRetrieverFactory(indexes *IndexManager, embedder driven.EmbeddingService, cfg RetrieverConfig) *RetrieverFactory {
	if cfg.TopK <= 0 {
		cfg.TopK = domain.DefaultAppSettings().Retrieval.TopK
	}
	return &RetrieverFactory{indexes: indexes, embedder: embedder, cfg: cfg}
}

// Bind returns a retriever for namespace without checking that it exists.
func (f *RetrieverFactory) Bind(namespace string) *Retriever {
	return &Retriever{
		namespace: namespace,
		indexes:   f.indexes,
		embedder:  f.embedder,
		cfg:       f.cfg,
	}
}

// Open returns a retriever for a persisted namespace.
// Returns domain.ErrRetrieverNotFound if no index exists there.
func (f *RetrieverFactory) Open(ctx context.Context, namespace string) (*Retriever, error) {
	ok, err := f.indexes.Exists(ctx, namespace)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no index at %s", domain.ErrRetrieverNotFound, namespace)
	}
	return f.Bind(namespace), nil
}

// Retriever is a read-only similarity search over one namespace.
type Retriever struct {
	namespace string
	indexes   *IndexManager
	embedder  driven.EmbeddingService
	cfg       RetrieverConfig
}

// Namespace returns the index namespace.
func (r *Retriever) Namespace() string {
	return r.namespace
}

// Query embeds text and returns up to k chunks by descending similarity.
func (r *Retriever) Query(ctx context.Context, text string, k int) ([]domain.RetrievedChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrValidation)
	}
	if r.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	embedCtx, cancel := withTimeout(ctx, r.cfg.EmbeddingTimeout)
	defer cancel()
	embedding, err := r.embedder.Embed(embedCtx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", domain.ClassifyCollaboratorError(err, domain.ErrEmbeddingUnavailable))
	}

	return r.QueryVector(ctx, embedding, k)
}

// QueryVector searches with a precomputed embedding.
// An index with fewer than k records returns all of them.
func (r *Retriever) QueryVector(ctx context.Context, embedding []float32, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		k = r.cfg.TopK
	}

	unlock := r.indexes.RLock(r.namespace)
	defer unlock()

	idx, err := r.indexes.Snapshot(ctx, r.namespace)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", domain.ErrRetrieverNotFound, err)
		}
		return nil, err
	}
	return idx.Search(embedding, k)
}

// withTimeout derives a context bounded by d. A zero d only adds cancellation.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
