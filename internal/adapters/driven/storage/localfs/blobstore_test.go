package localfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

func newTestStore(t *testing.T) *BlobStore {
	t.Helper()
	store, err := NewBlobStore(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)
	return store
}

func TestNewBlobStore_RequiresRoot(t *testing.T) {
	_, err := NewBlobStore("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBlobStore_PutGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	path, err := store.Put(ctx, "session_a", "notes.txt", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Root(), "session_a", "notes.txt"), path)

	data, err := store.Get(ctx, "session_a", "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	// Overwrite replaces content.
	_, err = store.Put(ctx, "session_a", "notes.txt", []byte("bye"))
	require.NoError(t, err)
	data, err = store.Get(ctx, "session_a", "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("bye"), data)
}

func TestBlobStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "session_a", "nope.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBlobStore_List(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, name := range []string{"c.md", "a.pdf", "b.txt"} {
		_, err := store.Put(ctx, "session_a", name, []byte(name))
		require.NoError(t, err)
	}
	_, err := store.Put(ctx, "session_b", "other.txt", []byte("x"))
	require.NoError(t, err)

	names, err := store.List(ctx, "session_a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "b.txt", "c.md"}, names)

	names, err = store.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestBlobStore_ClearKeepsNamespace(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_, err := store.Put(ctx, "compare", "reference.pdf", []byte("r"))
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx, "compare"))

	names, err := store.List(ctx, "compare")
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.DirExists(t, store.Dir("compare"))
}

func TestBlobStore_RemoveAndNamespaces(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	for _, ns := range []string{"session_b", "session_a", "session_c"} {
		_, err := store.Put(ctx, ns, "f.txt", []byte("x"))
		require.NoError(t, err)
	}

	require.NoError(t, store.Remove(ctx, "session_b"))

	namespaces, err := store.Namespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"session_a", "session_c"}, namespaces)

	_, err = os.Stat(store.Dir("session_b"))
	assert.True(t, os.IsNotExist(err))

	// Removing twice is fine.
	assert.NoError(t, store.Remove(ctx, "session_b"))
}

func TestBlobStore_RejectsEscapingNames(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, name := range []string{"", ".", "..", "../x", "a/b", `a\b`} {
		t.Run(name, func(t *testing.T) {
			_, err := store.Put(ctx, "session_a", name, []byte("x"))
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			_, err = store.Put(ctx, name, "ok.txt", []byte("x"))
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestBlobStore_CancelledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Put(ctx, "session_a", "x.txt", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
