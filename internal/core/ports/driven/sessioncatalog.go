package driven

import (
	"context"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

// SessionCatalog records sessions and the files stored under them.
type SessionCatalog interface {
	// CreateSession stores a new session.
	CreateSession(ctx context.Context, session *domain.Session) error

	// GetSession retrieves a session by ID.
	// Returns domain.ErrSessionNotFound if it does not exist.
	GetSession(ctx context.Context, id string) (*domain.Session, error)

	// ListSessions returns all sessions, newest first.
	ListSessions(ctx context.Context) ([]domain.Session, error)

	// DeleteSession removes a session and its file records.
	DeleteSession(ctx context.Context, id string) error

	// AddFile records a stored file under its session.
	AddFile(ctx context.Context, file *domain.StoredFile) error

	// ListFiles returns the files of a session in insertion order.
	ListFiles(ctx context.Context, sessionID string) ([]domain.StoredFile, error)
}
