package driven

import (
	"context"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

// IndexStore persists one vector index per namespace.
// Vector data and its sidecar metadata are always written together, so a
// crash never leaves them out of sync.
type IndexStore interface {
	// Exists reports whether a persisted index exists for the namespace
	// without loading it.
	Exists(ctx context.Context, namespace string) (bool, error)

	// Load reads the persisted index for the namespace.
	// Returns domain.ErrNotFound if none exists and domain.ErrIndexCorrupt
	// if the data cannot be decoded.
	Load(ctx context.Context, namespace string) (Index, error)

	// LoadOrCreate loads the index for the namespace, or returns an empty,
	// unsaved index with the given dimensions.
	LoadOrCreate(ctx context.Context, namespace string, dimensions int) (Index, error)

	// Save atomically persists the index and its metadata.
	Save(ctx context.Context, idx Index) error

	// Changed reports whether the namespace was saved or deleted, by this
	// or another process, since idx was loaded or saved by this store.
	Changed(ctx context.Context, idx Index) (bool, error)

	// Delete removes the namespace. Deleting a missing namespace is not an error.
	Delete(ctx context.Context, namespace string) error

	// Namespaces lists the persisted namespaces in ascending order.
	Namespaces(ctx context.Context) ([]string, error)
}

// Index is an in-memory nearest-neighbour store keyed by fingerprint.
// Implementations are not safe for concurrent mutation; callers serialise
// writers per namespace.
type Index interface {
	// Namespace returns the namespace the index belongs to.
	Namespace() string

	// Len returns the number of records.
	Len() int

	// Dimensions returns the vector size, or 0 for an empty index that has
	// not fixed its dimensions yet.
	Dimensions() int

	// Has reports whether a record with the fingerprint exists.
	Has(fp domain.Fingerprint) bool

	// Insert adds a record. Returns false without error if the fingerprint
	// is already present. A vector of the wrong size fails with
	// domain.ErrInvalidInput.
	Insert(rec domain.IndexRecord) (bool, error)

	// Search returns up to k records by descending cosine similarity.
	// Ties keep insertion order.
	Search(query []float32, k int) ([]domain.RetrievedChunk, error)

	// Records returns the records in insertion order.
	Records() []domain.IndexRecord

	// Metadata returns a copy of the sidecar bookkeeping.
	Metadata() domain.IndexMetadata

	// SetMetadata replaces the sidecar bookkeeping.
	SetMetadata(meta domain.IndexMetadata)
}
