package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
	"github.com/custodia-labs/docportal/internal/core/ports/driving"
	"github.com/custodia-labs/docportal/internal/logger"
)

// Ensure SessionService implements the interface.
var _ driving.SessionService = (*SessionService)(nil)

// dirLocator is implemented by blob stores that map namespaces to directories.
type dirLocator interface {
	Dir(namespace string) string
}

// SessionService creates sessions and enforces the retention policy.
type SessionService struct {
	catalog driven.SessionCatalog
	blobs   driven.BlobStore
	indexes *IndexManager
	log     *logger.Logger
	now     func() time.Time

	// mu guards active and removing. A session is never both.
	mu       sync.Mutex
	active   map[string]int
	removing map[string]bool
}

// NewSessionService creates a session service.
func NewSessionService(
	catalog driven.SessionCatalog,
	blobs driven.BlobStore,
	indexes *IndexManager,
	log *logger.Logger,
) *SessionService {
	return &SessionService{
		catalog: catalog,
		blobs:   blobs,
		indexes: indexes,
		log:     log,
		now:     time.Now,
		active:   make(map[string]int),
		removing: make(map[string]bool),
	}
}

// Create starts a new session and marks it active until Release.
func (s *SessionService) Create(ctx context.Context) (*domain.Session, error) {
	createdAt := s.now().UTC().Truncate(time.Second)
	id := domain.NewSessionID(createdAt, strings.ReplaceAll(uuid.NewString(), "-", ""))

	session := &domain.Session{
		ID:             id,
		CreatedAt:      createdAt,
		IndexNamespace: id,
	}
	if loc, ok := s.blobs.(dirLocator); ok {
		session.StorageDir = loc.Dir(id)
	}

	if err := s.Acquire(id); err != nil {
		return nil, err
	}
	if err := s.catalog.CreateSession(ctx, session); err != nil {
		s.Release(id)
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.log.Info("Created session %s", id)
	return session, nil
}

// Get retrieves a session by ID.
func (s *SessionService) Get(ctx context.Context, id string) (*domain.Session, error) {
	if !domain.IsSessionID(id) {
		return nil, fmt.Errorf("%w: %q", domain.ErrSessionNotFound, id)
	}
	return s.catalog.GetSession(ctx, id)
}

// List returns all sessions with their files, newest first.
func (s *SessionService) List(ctx context.Context) ([]driving.SessionSummary, error) {
	sessions, err := s.catalog.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]driving.SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		files, err := s.catalog.ListFiles(ctx, session.ID)
		if err != nil {
			return nil, fmt.Errorf("listing files of %s: %w", session.ID, err)
		}
		summaries = append(summaries, driving.SessionSummary{Session: session, Files: files})
	}
	return summaries, nil
}

// Acquire marks a session as being written so cleanup skips it.
// Calls nest; each successful Acquire needs a matching Release.
// A session that cleanup is removing cannot be acquired.
func (s *SessionService) Acquire(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removing[id] {
		return fmt.Errorf("%w: %s is being removed", domain.ErrSessionNotFound, id)
	}
	s.active[id]++
	return nil
}

// Release ends a write started with Create or Acquire.
func (s *SessionService) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[id] <= 1 {
		delete(s.active, id)
		return
	}
	s.active[id]--
}

func (s *SessionService) isActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[id] > 0
}

// markRemoving claims an inactive session for removal. Until unmarkRemoving,
// Acquire fails for it.
func (s *SessionService) markRemoving(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[id] > 0 || s.removing[id] {
		return false
	}
	s.removing[id] = true
	return true
}

func (s *SessionService) unmarkRemoving(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.removing, id)
}

// CleanOldSessions removes every session except the newest keepLatest.
// Sessions are ordered by id, which embeds the creation time. Active sessions
// and sessions created after the listing started are never removed.
func (s *SessionService) CleanOldSessions(ctx context.Context, keepLatest int) ([]string, error) {
	if keepLatest < 0 {
		return nil, fmt.Errorf("%w: keep latest must not be negative, got %d", domain.ErrValidation, keepLatest)
	}

	listedAt := s.now().UTC()
	ids, err := s.sessionIDs(ctx)
	if err != nil {
		return nil, domain.NewOpError("clean", "", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))

	if len(ids) <= keepLatest {
		return []string{}, nil
	}

	removed := make([]string, 0, len(ids)-keepLatest)
	for _, id := range ids[keepLatest:] {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if created, err := domain.SessionTime(id); err == nil && created.After(listedAt) {
			continue
		}
		if !s.markRemoving(id) {
			s.log.Warn("Skipping cleanup of active session %s", id)
			continue
		}
		err := s.remove(ctx, id)
		s.unmarkRemoving(id)
		if err != nil {
			return removed, domain.NewOpError("clean", id, err)
		}
		s.log.Info("Removed session %s", id)
		removed = append(removed, id)
	}
	return removed, nil
}

// sessionIDs collects session ids from storage, the catalog and the index store.
func (s *SessionService) sessionIDs(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)

	namespaces, err := s.blobs.Namespaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing session storage: %w", err)
	}
	for _, ns := range namespaces {
		seen[ns] = true
	}

	sessions, err := s.catalog.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	for _, session := range sessions {
		seen[session.ID] = true
	}

	if s.indexes != nil {
		indexes, err := s.indexes.Namespaces(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing indexes: %w", err)
		}
		for _, ns := range indexes {
			seen[ns] = true
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		if domain.IsSessionID(id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// remove deletes the session's files, then its index and catalog entry.
func (s *SessionService) remove(ctx context.Context, id string) error {
	if err := s.blobs.Remove(ctx, id); err != nil {
		return fmt.Errorf("removing files: %w", err)
	}
	if s.indexes != nil {
		if err := s.indexes.Delete(ctx, id); err != nil {
			return err
		}
	}
	if err := s.catalog.DeleteSession(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("removing catalog entry: %w", err)
	}
	return nil
}
