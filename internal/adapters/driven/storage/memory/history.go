package memory

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
)

// Ensure HistoryStore implements the interface.
var _ driven.HistoryStore = (*HistoryStore)(nil)

// HistoryStore keeps chat turns per session in a go-cache.
// Turns are copied on the way in and out, so callers never share slices.
type HistoryStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewHistoryStore creates a history store. A ttl of zero keeps history for
// the process lifetime; otherwise a session's history expires ttl after its
// last append.
func NewHistoryStore(ttl time.Duration) *HistoryStore {
	if ttl <= 0 {
		return &HistoryStore{cache: cache.New(cache.NoExpiration, 0)}
	}
	return &HistoryStore{cache: cache.New(ttl, ttl/2)}
}

// Get returns a copy of the session's turns.
func (s *HistoryStore) Get(sessionID string) []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTurns(s.load(sessionID))
}

// Append adds turns to the session's history.
func (s *HistoryStore) Append(sessionID string, turns ...domain.Turn) {
	if len(turns) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(cloneTurns(s.load(sessionID)), turns...)
	s.cache.Set(sessionID, history, cache.DefaultExpiration)
}

// Clear drops the session's history.
func (s *HistoryStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(sessionID)
}

// load returns the stored slice (caller must hold lock).
func (s *HistoryStore) load(sessionID string) []domain.Turn {
	if x, found := s.cache.Get(sessionID); found {
		return x.([]domain.Turn)
	}
	return nil
}

func cloneTurns(turns []domain.Turn) []domain.Turn {
	if len(turns) == 0 {
		return []domain.Turn{}
	}
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out
}
