package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
)

// Ensure SessionCatalog implements the interface.
var _ driven.SessionCatalog = (*SessionCatalog)(nil)

// SessionCatalog is an in-memory implementation of driven.SessionCatalog for testing.
type SessionCatalog struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	files    map[string][]domain.StoredFile
}

// NewSessionCatalog creates an empty catalog.
func NewSessionCatalog() *SessionCatalog {
	return &SessionCatalog{
		sessions: make(map[string]domain.Session),
		files:    make(map[string][]domain.StoredFile),
	}
}

// CreateSession stores a new session.
func (c *SessionCatalog) CreateSession(_ context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[session.ID] = *session
	return nil
}

// GetSession retrieves a session by ID.
func (c *SessionCatalog) GetSession(_ context.Context, id string) (*domain.Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	session, ok := c.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

// ListSessions returns all sessions, newest first.
func (c *SessionCatalog) ListSessions(_ context.Context) ([]domain.Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sessions := make([]domain.Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID > sessions[j].ID })
	return sessions, nil
}

// DeleteSession removes a session and its file records.
func (c *SessionCatalog) DeleteSession(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, id)
	delete(c.files, id)
	return nil
}

// AddFile records a stored file under its session.
func (c *SessionCatalog) AddFile(_ context.Context, file *domain.StoredFile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sessions[file.SessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	c.files[file.SessionID] = append(c.files[file.SessionID], *file)
	return nil
}

// ListFiles returns the files of a session in insertion order.
func (c *SessionCatalog) ListFiles(_ context.Context, sessionID string) ([]domain.StoredFile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	files := make([]domain.StoredFile, len(c.files[sessionID]))
	copy(files, c.files[sessionID])
	return files, nil
}
