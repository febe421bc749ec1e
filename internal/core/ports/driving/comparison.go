package driving

import (
	"context"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

// ComparisonService compares a reference document against an actual one.
type ComparisonService interface {
	// SaveUploadedFiles clears the session's staging area and stores both files.
	// Returns the stored locations of the reference and actual files.
	SaveUploadedFiles(ctx context.Context, sessionID string, reference, actual domain.UploadedFile) (string, string, error)

	// CombineDocuments extracts every staged file in filename order and joins
	// them under "Document: <filename>" headers.
	CombineDocuments(ctx context.Context, sessionID string) (string, error)

	// Compare extracts the change-list from combined text.
	Compare(ctx context.Context, combined string) ([]domain.ChangeRow, error)

	// CompareFiles runs save, combine and compare under a fresh session.
	CompareFiles(ctx context.Context, reference, actual domain.UploadedFile) ([]domain.ChangeRow, error)
}
