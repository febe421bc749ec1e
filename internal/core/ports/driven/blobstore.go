package driven

import "context"

// BlobStore stores uploaded files grouped by namespace (one per session).
// A namespace only ever contains files that belong to it.
type BlobStore interface {
	// Put writes content under namespace/name and returns its location.
	Put(ctx context.Context, namespace, name string, content []byte) (string, error)

	// Get reads a stored file. Returns domain.ErrNotFound if it is missing.
	Get(ctx context.Context, namespace, name string) ([]byte, error)

	// List returns the file names in a namespace sorted by name.
	// A missing namespace yields an empty list.
	List(ctx context.Context, namespace string) ([]string, error)

	// Clear removes every file in a namespace but keeps the namespace.
	Clear(ctx context.Context, namespace string) error

	// Remove deletes a namespace and its files.
	Remove(ctx context.Context, namespace string) error

	// Namespaces lists the existing namespaces in ascending order.
	Namespaces(ctx context.Context) ([]string, error)
}
