package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.IndexStore = (*Store)(nil)

// oldSuffix marks a namespace directory displaced by an in-flight save.
const oldSuffix = ".old"

// Store persists indexes under root/<namespace>/.
type Store struct {
	root string
	now  func() time.Time
}

// NewStore creates an index store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: index root is required", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("%w: creating index root: %w", domain.ErrIndexIO, err)
	}
	return &Store{root: dir, now: time.Now}, nil
}

// Root returns the root directory.
func (s *Store) Root() string {
	return s.root
}

// Exists reports whether a persisted index exists for the namespace.
func (s *Store) Exists(ctx context.Context, namespace string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := validNamespace(namespace); err != nil {
		return false, err
	}
	if err := s.recover(namespace); err != nil {
		return false, err
	}

	_, err := os.Stat(filepath.Join(s.dir(namespace), vectorsFile))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %w", domain.ErrIndexIO, err)
	}
}

// Load reads the persisted index for the namespace.
func (s *Store) Load(ctx context.Context, namespace string) (driven.Index, error) {
	idx, err := s.load(ctx, namespace)
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// LoadOrCreate loads the namespace's index or returns a new empty one.
func (s *Store) LoadOrCreate(ctx context.Context, namespace string, dimensions int) (driven.Index, error) {
	idx, err := s.load(ctx, namespace)
	if err == nil {
		return idx, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	created := NewIndex(namespace, dimensions)
	meta := created.Metadata()
	meta.CreatedAt = s.now().UTC()
	created.SetMetadata(meta)
	return created, nil
}

func (s *Store) load(ctx context.Context, namespace string) (*Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validNamespace(namespace); err != nil {
		return nil, err
	}
	if err := s.recover(namespace); err != nil {
		return nil, err
	}

	dir := s.dir(namespace)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: index %s", domain.ErrNotFound, namespace)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexIO, err)
	}

	// Stat before reading so that a save racing with the read is seen as a change.
	saved, err := os.Stat(filepath.Join(dir, metaFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexIO, err)
	}

	files := make(map[string][]byte, 3)
	for _, name := range []string{vectorsFile, recordsFile, metaFile} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s missing from %s", domain.ErrIndexCorrupt, name, namespace)
			}
			return nil, fmt.Errorf("%w: reading %s: %w", domain.ErrIndexIO, name, err)
		}
		files[name] = data
	}

	idx, err := decodeIndex(namespace, files[vectorsFile], files[recordsFile], files[metaFile])
	if err != nil {
		return nil, err
	}
	idx.saved = saved
	return idx, nil
}

// Save atomically persists the index and its metadata.
func (s *Store) Save(ctx context.Context, idx driven.Index) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	flat, ok := idx.(*Index)
	if !ok {
		return fmt.Errorf("%w: index type %T", domain.ErrUnsupportedType, idx)
	}
	namespace := flat.Namespace()
	if err := validNamespace(namespace); err != nil {
		return err
	}

	now := s.now().UTC()
	meta := flat.Metadata()
	meta.Namespace = namespace
	meta.Dimensions = flat.Dimensions()
	meta.Count = flat.Len()
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	meta.UpdatedAt = now
	flat.SetMetadata(meta)

	files, err := encodeIndex(flat)
	if err != nil {
		return err
	}

	tmp, err := os.MkdirTemp(s.root, "."+namespace+".tmp-")
	if err != nil {
		return fmt.Errorf("%w: creating temp dir: %w", domain.ErrIndexIO, err)
	}
	defer os.RemoveAll(tmp)

	for name, data := range files {
		if err := os.WriteFile(filepath.Join(tmp, name), data, 0600); err != nil {
			return fmt.Errorf("%w: writing %s: %w", domain.ErrIndexIO, name, err)
		}
	}

	if err := s.swap(namespace, tmp); err != nil {
		return err
	}
	saved, err := os.Stat(filepath.Join(s.dir(namespace), metaFile))
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexIO, err)
	}
	flat.saved = saved
	return nil
}

// Changed reports whether meta.json is no longer the file idx was loaded
// from or saved as. Every save installs a new file, so a save by any process
// is detected.
func (s *Store) Changed(ctx context.Context, idx driven.Index) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	flat, ok := idx.(*Index)
	if !ok || flat.saved == nil {
		return true, nil
	}
	current, err := os.Stat(filepath.Join(s.dir(flat.Namespace()), metaFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return true, nil
	case err != nil:
		return false, fmt.Errorf("%w: %w", domain.ErrIndexIO, err)
	}
	return !os.SameFile(flat.saved, current) ||
		!current.ModTime().Equal(flat.saved.ModTime()) ||
		current.Size() != flat.saved.Size(), nil
}

// swap replaces the namespace directory with tmp.
func (s *Store) swap(namespace, tmp string) error {
	dir := s.dir(namespace)
	old := dir + oldSuffix

	if err := os.RemoveAll(old); err != nil {
		return fmt.Errorf("%w: clearing %s: %w", domain.ErrIndexIO, old, err)
	}
	hadPrevious := true
	if err := os.Rename(dir, old); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: displacing %s: %w", domain.ErrIndexIO, namespace, err)
		}
		hadPrevious = false
	}
	if err := os.Rename(tmp, dir); err != nil {
		if hadPrevious {
			_ = os.Rename(old, dir)
		}
		return fmt.Errorf("%w: installing %s: %w", domain.ErrIndexIO, namespace, err)
	}
	if hadPrevious {
		if err := os.RemoveAll(old); err != nil {
			return fmt.Errorf("%w: removing %s: %w", domain.ErrIndexIO, old, err)
		}
	}
	return nil
}

// recover finishes or rolls back a swap interrupted by a crash.
func (s *Store) recover(namespace string) error {
	dir := s.dir(namespace)
	old := dir + oldSuffix

	if _, err := os.Stat(old); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: %w", domain.ErrIndexIO, err)
	}

	if _, err := os.Stat(dir); err == nil {
		// The new directory was installed; only the cleanup was lost.
		if err := os.RemoveAll(old); err != nil {
			return fmt.Errorf("%w: removing %s: %w", domain.ErrIndexIO, old, err)
		}
		return nil
	}
	if err := os.Rename(old, dir); err != nil {
		return fmt.Errorf("%w: restoring %s: %w", domain.ErrIndexIO, namespace, err)
	}
	return nil
}

// Delete removes the namespace.
func (s *Store) Delete(ctx context.Context, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validNamespace(namespace); err != nil {
		return err
	}
	dir := s.dir(namespace)
	for _, path := range []string{dir, dir + oldSuffix} {
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("%w: deleting %s: %w", domain.ErrIndexIO, namespace, err)
		}
	}
	return nil
}

// Namespaces lists the persisted namespaces in ascending order.
func (s *Store) Namespaces(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: listing namespaces: %w", domain.ErrIndexIO, err)
	}

	seen := make(map[string]bool)
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		seen[strings.TrimSuffix(name, oldSuffix)] = true
	}

	namespaces := make([]string, 0, len(seen))
	for ns := range seen {
		ok, err := s.Exists(ctx, ns)
		if err != nil {
			return nil, err
		}
		if ok {
			namespaces = append(namespaces, ns)
		}
	}
	sort.Strings(namespaces)
	return namespaces, nil
}

func (s *Store) dir(namespace string) string {
	return filepath.Join(s.root, namespace)
}

func validNamespace(namespace string) error {
	if namespace == "" || namespace == "." || namespace == ".." ||
		strings.HasPrefix(namespace, ".") || strings.HasSuffix(namespace, oldSuffix) ||
		strings.ContainsAny(namespace, `/\`) {
		return fmt.Errorf("%w: invalid index namespace %q", domain.ErrInvalidInput, namespace)
	}
	return nil
}
