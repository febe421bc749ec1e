// Package fingerprint provides the post-processor that stamps each chunk
// with its content fingerprint.
package fingerprint

import (
	"context"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/fingerprint"
)

// Name identifies the processor in pipeline configs.
const Name = "fingerprint"

// Processor sets Chunk.Fingerprint from the chunk text.
// It implements the PostProcessor interface.
type Processor struct{}

// New creates a fingerprint processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return Name
}

// Process fingerprints the incoming chunks in place and returns them.
func (p *Processor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	for i := range chunks {
		chunks[i].Fingerprint = fingerprint.Of(chunks[i].Content)
	}
	return chunks, nil
}
