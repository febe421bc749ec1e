package driven

import (
	"context"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

// PostProcessor is one stage of document splitting.
//
// The first stage of a pipeline receives nil chunks and creates them; later
// stages receive the previous output and return it, modified or not.
type PostProcessor interface {
	// Name is the key used in pipeline configuration and errors.
	Name() string

	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline splits a normalised document into fingerprinted chunks.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
