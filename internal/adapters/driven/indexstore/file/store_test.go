package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "index"))
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) }
	return store
}

func populated(t *testing.T, store *Store, ns string) *Index {
	t.Helper()
	created, err := store.LoadOrCreate(context.Background(), ns, 3)
	require.NoError(t, err)
	idx := created.(*Index)
	for _, rec := range []domain.IndexRecord{
		record("fp-a", "alpha", 1, 0, 0),
		record("fp-b", "beta", 0, 1, 0),
	} {
		_, err := idx.Insert(rec)
		require.NoError(t, err)
	}
	meta := idx.Metadata()
	meta.Sources["fp-a"] = domain.SourceEntry{Filename: "alpha.txt"}
	meta.Ingestions = []domain.IngestionEntry{{Files: []string{"alpha.txt"}, Inserted: 2}}
	idx.SetMetadata(meta)
	return idx
}

func TestStore_LoadOrCreate_New(t *testing.T) {
	store := newTestStore(t)

	idx, err := store.LoadOrCreate(context.Background(), "session_a", 4)
	require.NoError(t, err)

	assert.Equal(t, "session_a", idx.Namespace())
	assert.Equal(t, 4, idx.Dimensions())
	assert.Equal(t, 0, idx.Len())

	exists, err := store.Exists(context.Background(), "session_a")
	require.NoError(t, err)
	assert.False(t, exists, "a created index is not persisted until saved")
}

func TestStore_SaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	idx := populated(t, store, "session_a")

	require.NoError(t, store.Save(ctx, idx))

	exists, err := store.Exists(ctx, "session_a")
	require.NoError(t, err)
	assert.True(t, exists)

	loaded, err := store.Load(ctx, "session_a")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
	assert.Equal(t, 3, loaded.Dimensions())
	assert.Equal(t, idx.Records(), loaded.Records())

	meta := loaded.Metadata()
	assert.Equal(t, 2, meta.Count)
	assert.Equal(t, "session_a", meta.Namespace)
	assert.Equal(t, "alpha.txt", meta.Sources["fp-a"].Filename)
	assert.Equal(t, []string{"alpha.txt"}, meta.Filenames())

	hits, err := loaded.Search([]float32{0, 1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, "beta", hits[0].Text)
}

func TestStore_LoadOrCreate_LoadsExisting(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Save(ctx, populated(t, store, "session_a")))

	idx, err := store.LoadOrCreate(ctx, "session_a", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
}

func TestStore_LoadMissing(t *testing.T) {
	_, err := newTestStore(t).Load(context.Background(), "nothing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_LoadCorrupt(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		file   string
		mangle func([]byte) []byte
	}{
		{"bad magic", vectorsFile, func(b []byte) []byte { return append([]byte("XXXX"), b[4:]...) }},
		{"truncated vectors", vectorsFile, func(b []byte) []byte { return b[:len(b)-2] }},
		{"records not json", recordsFile, func([]byte) []byte { return []byte("{nope") }},
		{"record count mismatch", recordsFile, func([]byte) []byte { return []byte("[]") }},
		{"meta not json", metaFile, func([]byte) []byte { return []byte("<xml/>") }},
		{"wrong schema version", metaFile, func([]byte) []byte { return []byte(`{"schema_version": 99}`) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			require.NoError(t, store.Save(ctx, populated(t, store, "ns")))

			path := filepath.Join(store.Root(), "ns", tt.file)
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(path, tt.mangle(data), 0600))

			_, err = store.Load(ctx, "ns")
			assert.ErrorIs(t, err, domain.ErrIndexCorrupt)

			_, err = store.LoadOrCreate(ctx, "ns", 3)
			assert.ErrorIs(t, err, domain.ErrIndexCorrupt, "corrupt data is surfaced, never replaced")
		})
	}
}

func TestStore_LoadMissingFileIsCorrupt(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Save(ctx, populated(t, store, "ns")))
	require.NoError(t, os.Remove(filepath.Join(store.Root(), "ns", metaFile)))

	_, err := store.Load(ctx, "ns")
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
}

func TestStore_SaveReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	idx := populated(t, store, "ns")
	require.NoError(t, store.Save(ctx, idx))

	_, err := idx.Insert(record("fp-c", "gamma", 0, 0, 1))
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, idx))

	loaded, err := store.Load(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Len())

	entries, err := os.ReadDir(store.Root())
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp or .old directories left behind")
	assert.Equal(t, "ns", entries[0].Name())
}

func TestStore_RecoversInterruptedSwap(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Save(ctx, populated(t, store, "ns")))

	// Crash after ns -> ns.old, before tmp -> ns.
	dir := filepath.Join(store.Root(), "ns")
	require.NoError(t, os.Rename(dir, dir+oldSuffix))

	loaded, err := store.Load(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
	assert.NoDirExists(t, dir+oldSuffix)
}

func TestStore_RecoversLostCleanup(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Save(ctx, populated(t, store, "ns")))

	// Crash after tmp -> ns, before ns.old was removed.
	dir := filepath.Join(store.Root(), "ns")
	require.NoError(t, os.MkdirAll(dir+oldSuffix, 0700))

	exists, err := store.Exists(ctx, "ns")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoDirExists(t, dir+oldSuffix)
}

func TestStore_Changed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	fresh, err := store.LoadOrCreate(ctx, "ns", 3)
	require.NoError(t, err)
	changed, err := store.Changed(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, changed, "an unsaved index has no saved state")

	idx := populated(t, store, "ns")
	require.NoError(t, store.Save(ctx, idx))
	changed, err = store.Changed(ctx, idx)
	require.NoError(t, err)
	assert.False(t, changed)

	loaded, err := store.Load(ctx, "ns")
	require.NoError(t, err)
	changed, err = store.Changed(ctx, loaded)
	require.NoError(t, err)
	assert.False(t, changed)

	// Another writer replaces the namespace.
	writer, err := store.Load(ctx, "ns")
	require.NoError(t, err)
	_, err = writer.Insert(record("fp-c", "gamma", 0, 0, 1))
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, writer))

	changed, err = store.Changed(ctx, loaded)
	require.NoError(t, err)
	assert.True(t, changed)

	require.NoError(t, store.Delete(ctx, "ns"))
	changed, err = store.Changed(ctx, writer)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestStore_DeleteAndNamespaces(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	for _, ns := range []string{"session_b", "session_a", "session_c"} {
		require.NoError(t, store.Save(ctx, populated(t, store, ns)))
	}
	// Unrelated directories are ignored.
	require.NoError(t, os.MkdirAll(filepath.Join(store.Root(), "empty"), 0700))

	require.NoError(t, store.Delete(ctx, "session_b"))
	require.NoError(t, store.Delete(ctx, "session_b"))

	namespaces, err := store.Namespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"session_a", "session_c"}, namespaces)
}

func TestStore_InvalidNamespace(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, ns := range []string{"", "..", "a/b", ".hidden", "x.old"} {
		_, err := store.Load(ctx, ns)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, ns)
	}
}
