package driven

import (
	"context"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

// Normaliser turns one family of file formats into plain text.
type Normaliser interface {
	// SupportedMIMETypes lists the formats this normaliser reads.
	SupportedMIMETypes() []string

	// Priority orders normalisers that claim the same MIME type; the highest
	// wins. Format readers use 50-89 and generic fallbacks 1-9.
	Priority() int

	// Normalise extracts the text of raw. Encrypted, corrupt or otherwise
	// unreadable input fails with domain.ErrExtraction.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult is the extracted document. Chunking happens later, in the
// PostProcessorPipeline.
type NormaliseResult struct {
	Document domain.Document
}

// NormaliserRegistry routes a document to the normaliser for its MIME type.
type NormaliserRegistry interface {
	// Normalise fails with domain.ErrUnsupportedType when nothing handles
	// raw.MIMEType.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}
