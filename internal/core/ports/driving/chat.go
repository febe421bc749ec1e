package driving

import (
	"context"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

// ChatService answers questions against a session's documents and keeps
// its conversation history.
type ChatService interface {
	// Ask runs one history-aware question against the session.
	Ask(ctx context.Context, sessionID, input string, opts ...AskOption) (*Answer, error)

	// Retrieve runs a plain similarity search against the session's index
	// without touching its history.
	Retrieve(ctx context.Context, sessionID, query string, k int) ([]domain.RetrievedChunk, error)

	// History returns the session's turns in order.
	History(ctx context.Context, sessionID string) ([]domain.Turn, error)

	// Reset clears the session's history.
	Reset(ctx context.Context, sessionID string) error
}

// Answer is the result of one conversational turn.
type Answer struct {
	// Text is the generated answer, or domain.NoAnswer.
	Text string

	// Question is the standalone question used for retrieval.
	Question string

	// Context holds the retrieved chunks in retrieval order.
	Context []domain.RetrievedChunk
}

// AskOptions tunes a single question.
type AskOptions struct {
	// TopK overrides the configured number of retrieved chunks when > 0.
	TopK int
}

// AskOption configures AskOptions.
type AskOption func(*AskOptions)

// WithTopK retrieves k chunks for this question.
func WithTopK(k int) AskOption {
	return func(o *AskOptions) {
		o.TopK = k
	}
}

// ApplyAskOptions folds opts into AskOptions.
func ApplyAskOptions(opts ...AskOption) AskOptions {
	var o AskOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
