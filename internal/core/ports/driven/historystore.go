package driven

import "github.com/custodia-labs/docportal/internal/core/domain"

// HistoryStore keeps the chat history of each session.
// Lookups for one session never return another session's turns.
type HistoryStore interface {
	// Get returns a copy of the session's turns in order.
	Get(sessionID string) []domain.Turn

	// Append adds turns to the end of the session's history.
	Append(sessionID string, turns ...domain.Turn)

	// Clear drops the session's history.
	Clear(sessionID string)
}
