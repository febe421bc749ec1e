package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
	"github.com/custodia-labs/docportal/internal/fingerprint"
	"github.com/custodia-labs/docportal/internal/logger"
)

// Chunk metadata keys read by AddDocuments.
const (
	MetaSource     = "source"
	MetaStoredName = "stored_name"
)

// IndexManager serialises writers per namespace on top of an IndexStore.
//
// Writers hold Lock(ns) across LoadOrCreate, AddDocuments and SaveMetadata and
// mutate a private copy loaded from the store. Readers hold RLock(ns) and
// search the last saved snapshot, so they never see a write that has not been
// durably saved.
type IndexManager struct {
	store driven.IndexStore
	log   *logger.Logger
	now   func() time.Time

	mu        sync.Mutex
	locks     map[string]*sync.RWMutex
	snapshots map[string]driven.Index
}

// NewIndexManager creates an index manager over store.
func NewIndexManager(store driven.IndexStore, log *logger.Logger) *IndexManager {
	return &IndexManager{
		store:     store,
		log:       log,
		now:       time.Now,
		locks:     make(map[string]*sync.RWMutex),
		snapshots: make(map[string]driven.Index),
	}
}

func (m *IndexManager) lockFor(namespace string) *sync.RWMutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[namespace]
	if !ok {
		l = &sync.RWMutex{}
		m.locks[namespace] = l
	}
	return l
}

// Lock takes the namespace's writer lock and returns its release func.
func (m *IndexManager) Lock(namespace string) func() {
	l := m.lockFor(namespace)
	l.Lock()
	return l.Unlock
}

// RLock takes the namespace's reader lock and returns its release func.
func (m *IndexManager) RLock(namespace string) func() {
	l := m.lockFor(namespace)
	l.RLock()
	return l.RUnlock
}

// Exists reports whether a persisted index exists for namespace.
func (m *IndexManager) Exists(ctx context.Context, namespace string) (bool, error) {
	return m.store.Exists(ctx, namespace)
}

// LoadOrCreate returns a private, mutable copy of the namespace's index.
// The caller must hold Lock(namespace).
func (m *IndexManager) LoadOrCreate(ctx context.Context, namespace string, dimensions int) (driven.Index, error) {
	idx, err := m.store.LoadOrCreate(ctx, namespace, dimensions)
	if err != nil {
		return nil, fmt.Errorf("loading index %s: %w", namespace, err)
	}
	if d := idx.Dimensions(); d != 0 && dimensions != 0 && d != dimensions {
		return nil, fmt.Errorf("%w: index %s has %d dimensions, embeddings have %d",
			domain.ErrInvalidInput, namespace, d, dimensions)
	}
	return idx, nil
}

// AddDocuments inserts every chunk whose fingerprint is not yet in idx.
// Chunks already present, including repeats within the batch, are counted as
// skipped. Re-adding the same chunks leaves idx unchanged.
func (m *IndexManager) AddDocuments(idx driven.Index, chunks []domain.Chunk, embeddings [][]float32) (domain.AddResult, error) {
	var result domain.AddResult
	if len(chunks) != len(embeddings) {
		return result, fmt.Errorf("%w: %d chunks but %d embeddings",
			domain.ErrInvalidInput, len(chunks), len(embeddings))
	}

	now := m.now().UTC()
	meta := idx.Metadata()
	if meta.Sources == nil {
		meta.Sources = make(map[domain.Fingerprint]domain.SourceEntry)
	}

	for i, chunk := range chunks {
		fp := chunk.Fingerprint
		if fp == "" {
			fp = fingerprint.Of(chunk.Content)
		}
		source := metaString(chunk.Metadata, MetaSource)

		inserted, err := idx.Insert(domain.IndexRecord{
			Fingerprint: fp,
			Embedding:   embeddings[i],
			Text:        chunk.Content,
			Metadata: domain.RecordMetadata{
				Source:     source,
				StoredName: metaString(chunk.Metadata, MetaStoredName),
				DocumentID: chunk.DocumentID,
				Position:   chunk.Position,
				IngestedAt: now,
			},
		})
		if err != nil {
			return result, fmt.Errorf("inserting chunk %d of %s: %w", chunk.Position, source, err)
		}
		if !inserted {
			result.Skipped++
			m.log.Debug("Chunk %s already indexed in %s", fp.Short(), idx.Namespace())
			continue
		}
		result.Inserted++
		meta.Sources[fp] = domain.SourceEntry{Filename: source, IngestedAt: now}
	}

	idx.SetMetadata(meta)
	return result, nil
}

// SaveMetadata appends entry to the ingestion log and durably saves idx.
// On success idx becomes the snapshot served to readers.
// The caller must hold Lock(idx.Namespace()).
func (m *IndexManager) SaveMetadata(ctx context.Context, idx driven.Index, entry domain.IngestionEntry) error {
	meta := idx.Metadata()
	if !entry.At.IsZero() {
		meta.Ingestions = append(meta.Ingestions, entry)
	}
	idx.SetMetadata(meta)

	if err := m.store.Save(ctx, idx); err != nil {
		return fmt.Errorf("saving index %s: %w", idx.Namespace(), err)
	}

	m.mu.Lock()
	m.snapshots[idx.Namespace()] = idx
	m.mu.Unlock()
	return nil
}

// Snapshot returns the last saved index for namespace. The cached copy is
// reloaded when the store reports a save or delete since it was read, which
// covers writers in other processes.
// The caller must hold RLock(namespace) while using the result.
func (m *IndexManager) Snapshot(ctx context.Context, namespace string) (driven.Index, error) {
	m.mu.Lock()
	idx, ok := m.snapshots[namespace]
	m.mu.Unlock()
	if ok {
		changed, err := m.store.Changed(ctx, idx)
		if err != nil {
			return nil, fmt.Errorf("checking index %s: %w", namespace, err)
		}
		if !changed {
			return idx, nil
		}
		m.log.Debug("Index %s changed on disk, reloading", namespace)
	}

	idx, err := m.store.Load(ctx, namespace)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			m.mu.Lock()
			delete(m.snapshots, namespace)
			m.mu.Unlock()
		}
		return nil, err
	}

	m.mu.Lock()
	m.snapshots[namespace] = idx
	m.mu.Unlock()
	return idx, nil
}

// Delete removes the namespace's persisted index under the writer lock.
func (m *IndexManager) Delete(ctx context.Context, namespace string) error {
	unlock := m.Lock(namespace)
	defer unlock()

	if err := m.store.Delete(ctx, namespace); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("deleting index %s: %w", namespace, err)
	}

	m.mu.Lock()
	delete(m.snapshots, namespace)
	m.mu.Unlock()
	return nil
}

// Namespaces lists the persisted index namespaces.
func (m *IndexManager) Namespaces(ctx context.Context) ([]string, error) {
	return m.store.Namespaces(ctx)
}

func metaString(meta map[string]any, key string) string {
	s, _ := meta[key].(string)
	return s
}
