package domain

import (
	"context"
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown normaliser or provider type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured
	// or could not be reached.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrValidation indicates bad caller input. Reported immediately, never retried.
	ErrValidation = errors.New("validation failed")

	// ErrNoDocumentsIngested indicates every uploaded file was filtered out.
	ErrNoDocumentsIngested = fmt.Errorf("%w: no documents found to ingest", ErrValidation)

	// ErrUnsupportedFileType indicates a file extension outside the supported set.
	ErrUnsupportedFileType = fmt.Errorf("%w: unsupported file type", ErrValidation)

	// ErrExtraction indicates a document could not be converted to text
	// (encrypted, corrupt or unreadable).
	ErrExtraction = errors.New("text extraction failed")

	// ErrIndexIO indicates a storage-layer failure while reading or writing an index.
	ErrIndexIO = errors.New("index storage failure")

	// ErrIndexCorrupt indicates persisted index data does not match the expected schema.
	// Callers may rebuild the index from the source documents.
	ErrIndexCorrupt = errors.New("index data corrupt")

	// ErrModelUnavailable indicates the language model call failed. Retryable.
	ErrModelUnavailable = errors.New("language model unavailable")

	// ErrTimeout indicates a collaborator call exceeded its deadline. Retryable.
	ErrTimeout = errors.New("operation timed out")

	// ErrRetrieverNotFound indicates no persisted index exists at the requested namespace.
	ErrRetrieverNotFound = errors.New("retriever not found")

	// ErrRetrieverNotAttached indicates a conversation was invoked before a retriever was attached.
	ErrRetrieverNotAttached = errors.New("retriever not attached")

	// ErrComparisonParse indicates structured comparison output could not be parsed,
	// even after a repair attempt.
	ErrComparisonParse = errors.New("comparison output could not be parsed")

	// ErrAnalysisParse indicates structured document analysis output could not be
	// parsed, even after a repair attempt.
	ErrAnalysisParse = errors.New("analysis output could not be parsed")

	// ErrSessionNotFound indicates an unknown session id.
	ErrSessionNotFound = fmt.Errorf("session %w", ErrNotFound)
)

// OpError attaches the originating operation and namespace to an error.
type OpError struct {
	// Op is the operation that failed (e.g. "ingest", "compare").
	Op string

	// Namespace is the session id or index namespace, if any.
	Namespace string

	// Err is the underlying cause.
	Err error
}

// NewOpError wraps err with operation context. Returns nil when err is nil.
// An error already carrying the same op and namespace is returned unchanged.
func NewOpError(op, namespace string, err error) error {
	if err == nil {
		return nil
	}
	var existing *OpError
	if errors.As(err, &existing) && existing.Op == op && existing.Namespace == namespace {
		return err
	}
	return &OpError{Op: op, Namespace: namespace, Err: err}
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Namespace == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " [" + e.Namespace + "]: " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *OpError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is worth retrying with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrModelUnavailable) ||
		errors.Is(err, ErrEmbeddingUnavailable)
}

// ClassifyCollaboratorError tags a collaborator failure with the taxonomy.
// Deadline and cancellation errors become ErrTimeout; anything else is tagged with sentinel.
func ClassifyCollaboratorError(err, sentinel error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
