package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

func TestSessionCatalog_Lifecycle(t *testing.T) {
	ctx := context.Background()
	c := NewSessionCatalog()

	require.NoError(t, c.CreateSession(ctx, &domain.Session{ID: "session_20250101000000_aaaaaaaa"}))
	require.NoError(t, c.CreateSession(ctx, &domain.Session{ID: "session_20250102000000_bbbbbbbb"}))

	got, err := c.GetSession(ctx, "session_20250101000000_aaaaaaaa")
	require.NoError(t, err)
	assert.Equal(t, "session_20250101000000_aaaaaaaa", got.ID)

	list, err := c.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "session_20250102000000_bbbbbbbb", list[0].ID)

	require.NoError(t, c.AddFile(ctx, &domain.StoredFile{SessionID: list[0].ID, StoredName: "a.txt"}))
	files, err := c.ListFiles(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	require.NoError(t, c.DeleteSession(ctx, list[0].ID))
	_, err = c.GetSession(ctx, list[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	files, err = c.ListFiles(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestSessionCatalog_Errors(t *testing.T) {
	ctx := context.Background()
	c := NewSessionCatalog()

	assert.ErrorIs(t, c.CreateSession(ctx, &domain.Session{}), domain.ErrInvalidInput)
	assert.ErrorIs(t, c.AddFile(ctx, &domain.StoredFile{SessionID: "missing"}), domain.ErrSessionNotFound)
}
