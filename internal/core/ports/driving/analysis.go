package driving

import (
	"context"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

// AnalysisService extracts structured metadata from a single document.
type AnalysisService interface {
	// Analyze extracts the text of file and summarises it.
	Analyze(ctx context.Context, file domain.UploadedFile) (*domain.DocumentMetadata, error)
}
