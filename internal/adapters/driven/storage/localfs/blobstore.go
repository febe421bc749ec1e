package localfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
)

// Ensure BlobStore implements the interface.
var _ driven.BlobStore = (*BlobStore)(nil)

// BlobStore stores files under root/<namespace>/<name>.
type BlobStore struct {
	root string
}

// NewBlobStore creates a blob store rooted at dir, creating it if needed.
func NewBlobStore(dir string) (*BlobStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: blob store root is required", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating blob store root: %w", err)
	}
	return &BlobStore{root: dir}, nil
}

// Root returns the root directory.
func (b *BlobStore) Root() string {
	return b.root
}

// Dir returns the directory of a namespace.
func (b *BlobStore) Dir(namespace string) string {
	return filepath.Join(b.root, namespace)
}

// Put writes content under namespace/name and returns its path.
// The write goes through a temp file so readers never see a partial file.
func (b *BlobStore) Put(ctx context.Context, namespace, name string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validName(namespace); err != nil {
		return "", err
	}
	if err := validName(name); err != nil {
		return "", err
	}

	dir := b.Dir(namespace)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("creating namespace %s: %w", namespace, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing %s: %w", name, err)
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("storing %s: %w", name, err)
	}
	return path, nil
}

// Get reads a stored file.
func (b *BlobStore) Get(ctx context.Context, namespace, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validName(namespace); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(b.Dir(namespace), name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrNotFound, namespace, name)
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// List returns the file names in a namespace sorted by name.
func (b *BlobStore) List(ctx context.Context, namespace string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validName(namespace); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(b.Dir(namespace))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("listing %s: %w", namespace, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Clear removes every file in a namespace but keeps the namespace.
func (b *BlobStore) Clear(ctx context.Context, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validName(namespace); err != nil {
		return err
	}

	dir := b.Dir(namespace)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating namespace %s: %w", namespace, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("listing %s: %w", namespace, err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("removing %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// Remove deletes a namespace and its files.
func (b *BlobStore) Remove(ctx context.Context, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validName(namespace); err != nil {
		return err
	}
	if err := os.RemoveAll(b.Dir(namespace)); err != nil {
		return fmt.Errorf("removing namespace %s: %w", namespace, err)
	}
	return nil
}

// Namespaces lists the existing namespaces in ascending order.
func (b *BlobStore) Namespaces(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(b.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("listing namespaces: %w", err)
	}

	namespaces := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			namespaces = append(namespaces, entry.Name())
		}
	}
	sort.Strings(namespaces)
	return namespaces, nil
}

// validName rejects empty names and anything that could escape the namespace.
func validName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: invalid name %q", domain.ErrInvalidInput, name)
	}
	return nil
}
