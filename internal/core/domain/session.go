package domain

import (
	"fmt"
	"strings"
	"time"
)

// SessionIDPrefix starts every session identifier.
const SessionIDPrefix = "session_"

// sessionTimeLayout is the UTC timestamp embedded in session ids.
const sessionTimeLayout = "20060102150405"

// Session is one user interaction owning a storage and an index namespace.
type Session struct {
	// ID is time-ordered with a random suffix: session_<yyyymmddHHMMSS>_<8 hex>.
	ID string

	// CreatedAt is the creation timestamp (UTC).
	CreatedAt time.Time

	// StorageDir is the directory holding the session's uploaded files.
	StorageDir string

	// IndexNamespace is the vector index namespace owned by the session.
	IndexNamespace string
}

// NewSessionID formats a session id from a creation time and a random suffix.
// The suffix is truncated to 8 characters.
func NewSessionID(createdAt time.Time, suffix string) string {
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return SessionIDPrefix + createdAt.UTC().Format(sessionTimeLayout) + "_" + suffix
}

// SessionTime parses the creation time embedded in a session id.
func SessionTime(id string) (time.Time, error) {
	rest, ok := strings.CutPrefix(id, SessionIDPrefix)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: session id %q", ErrInvalidInput, id)
	}
	stamp, _, ok := strings.Cut(rest, "_")
	if !ok {
		return time.Time{}, fmt.Errorf("%w: session id %q", ErrInvalidInput, id)
	}
	t, err := time.ParseInLocation(sessionTimeLayout, stamp, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: session id %q: %w", ErrInvalidInput, id, err)
	}
	return t, nil
}

// IsSessionID reports whether id has the session id shape.
func IsSessionID(id string) bool {
	_, err := SessionTime(id)
	return err == nil
}
