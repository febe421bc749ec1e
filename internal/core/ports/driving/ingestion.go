package driving

import (
	"context"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

// IngestionService turns uploaded files into a session's vector index.
type IngestionService interface {
	// Ingest stores, extracts, splits, embeds and indexes files under a session.
	// An empty sessionID creates a new session. Unsupported files are skipped;
	// if none remain the call fails with domain.ErrNoDocumentsIngested.
	// Any other failure aborts the whole batch.
	Ingest(ctx context.Context, sessionID string, files []domain.UploadedFile) (*IngestResult, error)
}

// IngestResult describes a completed ingestion.
type IngestResult struct {
	// Session is the session the files were ingested into.
	Session domain.Session

	// Files are the files that were stored and indexed.
	Files []domain.StoredFile

	// Skipped lists the filenames rejected for their type.
	Skipped []string

	// Chunks is the number of chunks produced by splitting.
	Chunks int

	// Added reports inserted and already present records.
	Added domain.AddResult

	// Retriever is bound to the populated index.
	Retriever Retriever
}
