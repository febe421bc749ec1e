package driving

import (
	"context"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

// SessionService manages session lifecycle and retention.
type SessionService interface {
	// Create starts a new session and marks it active until Release.
	Create(ctx context.Context) (*domain.Session, error)

	// Get retrieves a session by ID.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// List returns all sessions with their files, newest first.
	List(ctx context.Context) ([]SessionSummary, error)

	// Acquire marks a session as being written so cleanup skips it.
	// It fails with domain.ErrSessionNotFound while cleanup removes the session.
	Acquire(id string) error

	// Release ends a write started with Create or Acquire.
	Release(id string)

	// CleanOldSessions removes all but the newest keepLatest sessions.
	// Returns the removed session IDs.
	CleanOldSessions(ctx context.Context, keepLatest int) ([]string, error)
}

// SessionSummary is a session with its stored files.
type SessionSummary struct {
	Session domain.Session
	Files   []domain.StoredFile
}
