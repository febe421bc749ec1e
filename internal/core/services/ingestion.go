package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
	"github.com/custodia-labs/docportal/internal/core/ports/driving"
	"github.com/custodia-labs/docportal/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// IngestionConfig bounds the ingestion pipeline.
type IngestionConfig struct {
	// MaxFileBytes rejects larger uploads. Zero means no limit.
	MaxFileBytes int64

	// ExtractWorkers caps concurrent extractions within one batch.
	ExtractWorkers int

	// ExtractionTimeout bounds each file's text extraction.
	ExtractionTimeout time.Duration

	// EmbeddingTimeout bounds the batch embedding call.
	EmbeddingTimeout time.Duration
}

// IngestionConfigFrom derives the pipeline bounds from application settings.
func IngestionConfigFrom(settings *domain.AppSettings) IngestionConfig {
	return IngestionConfig{
		MaxFileBytes:      settings.Ingestion.MaxFileBytes,
		ExtractWorkers:    settings.Ingestion.ExtractWorkers,
		ExtractionTimeout: settings.Timeouts.Extraction,
		EmbeddingTimeout:  settings.Timeouts.Embedding,
	}
}

// IngestionService stores uploads, extracts and splits them, embeds the
// chunks and adds them to the session's index.
type IngestionService struct {
	sessions   *SessionService
	catalog    driven.SessionCatalog
	blobs      driven.BlobStore
	registry   driven.NormaliserRegistry
	pipeline   driven.PostProcessorPipeline
	embedder   driven.EmbeddingService
	indexes    *IndexManager
	retrievers *RetrieverFactory
	cfg        IngestionConfig
	log        *logger.Logger
	now        func() time.Time
}

// NewIngestionService creates an ingestion service.
// A nil embedder makes every ingestion fail with domain.ErrEmbeddingUnavailable.
func NewIngestionService(
	sessions *SessionService,
	catalog driven.SessionCatalog,
	blobs driven.BlobStore,
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	indexes *IndexManager,
	retrievers *RetrieverFactory,
	cfg IngestionConfig,
	log *logger.Logger,
) *IngestionService {
	if cfg.ExtractWorkers <= 0 {
		cfg.ExtractWorkers = 1
	}
	return &IngestionService{
		sessions:   sessions,
		catalog:    catalog,
		blobs:      blobs,
		registry:   registry,
		pipeline:   pipeline,
		embedder:   embedder,
		indexes:    indexes,
		retrievers: retrievers,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// acceptedFile is an upload that passed type filtering.
type acceptedFile struct {
	upload domain.UploadedFile
	kind   domain.FileType
}

// Ingest runs the ingestion pipeline for files under sessionID.
// An empty sessionID creates a new session.
func (s *IngestionService) Ingest(
	ctx context.Context, sessionID string, files []domain.UploadedFile,
) (*driving.IngestResult, error) {
	s.log.Section("Ingestion")

	accepted, skipped, err := s.filter(sessionID, files)
	if err != nil {
		return nil, domain.NewOpError("ingest", sessionID, err)
	}
	if s.embedder == nil {
		return nil, domain.NewOpError("ingest", sessionID, domain.ErrEmbeddingUnavailable)
	}

	session, err := s.openSession(ctx, sessionID)
	if err != nil {
		return nil, domain.NewOpError("ingest", sessionID, err)
	}
	defer s.sessions.Release(session.ID)

	result, err := s.run(ctx, session, accepted)
	if err != nil {
		return nil, domain.NewOpError("ingest", session.ID, err)
	}
	result.Skipped = skipped

	s.log.Info("Ingested %d files into %s: %d chunks, %d new, %d already present",
		len(result.Files), session.ID, result.Chunks, result.Added.Inserted, result.Added.Skipped)
	return result, nil
}

// filter drops unsupported files with a warning and rejects oversized ones.
func (s *IngestionService) filter(
	sessionID string, files []domain.UploadedFile,
) ([]acceptedFile, []string, error) {
	accepted := make([]acceptedFile, 0, len(files))
	skipped := []string{}
	for _, f := range files {
		kind, ok := domain.DetectFileType(f.Name)
		if !ok {
			s.log.Warn("Skipping unsupported file %q in session %q", f.Name, sessionID)
			skipped = append(skipped, f.Name)
			continue
		}
		if s.cfg.MaxFileBytes > 0 && int64(len(f.Content)) > s.cfg.MaxFileBytes {
			return nil, nil, fmt.Errorf("%w: %s is %d bytes, limit is %d",
				domain.ErrValidation, f.Name, len(f.Content), s.cfg.MaxFileBytes)
		}
		accepted = append(accepted, acceptedFile{upload: f, kind: kind})
	}
	if len(accepted) == 0 {
		return nil, nil, domain.ErrNoDocumentsIngested
	}
	return accepted, skipped, nil
}

// openSession returns the named session, or a new one for an empty id.
// The returned session is marked active.
func (s *IngestionService) openSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return s.sessions.Create(ctx)
	}
	if err := s.sessions.Acquire(sessionID); err != nil {
		return nil, err
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		s.sessions.Release(sessionID)
		return nil, err
	}
	return session, nil
}

func (s *IngestionService) run(
	ctx context.Context, session *domain.Session, accepted []acceptedFile,
) (*driving.IngestResult, error) {
	stored, err := s.store(ctx, session, accepted)
	if err != nil {
		return nil, err
	}

	docs, err := s.extract(ctx, session, stored)
	if err != nil {
		return nil, err
	}

	chunks, err := s.split(ctx, docs, stored)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no text could be extracted", domain.ErrNoDocumentsIngested)
	}

	embeddings, err := s.embed(ctx, chunks)
	if err != nil {
		return nil, err
	}

	added, err := s.index(ctx, session.IndexNamespace, chunks, embeddings, stored)
	if err != nil {
		return nil, err
	}

	return &driving.IngestResult{
		Session:   *session,
		Files:     stored,
		Chunks:    len(chunks),
		Added:     added,
		Retriever: s.retrievers.Bind(session.IndexNamespace),
	}, nil
}

// store persists each accepted file before any processing.
func (s *IngestionService) store(
	ctx context.Context, session *domain.Session, accepted []acceptedFile,
) ([]domain.StoredFile, error) {
	stored := make([]domain.StoredFile, 0, len(accepted))
	for _, f := range accepted {
		name := storedName(f.upload.Name)
		path, err := s.blobs.Put(ctx, session.ID, name, f.upload.Content)
		if err != nil {
			return nil, fmt.Errorf("storing %s: %w", f.upload.Name, err)
		}

		file := domain.StoredFile{
			SessionID:    session.ID,
			OriginalName: f.upload.Name,
			StoredName:   name,
			Path:         path,
			Type:         f.kind,
			Size:         int64(len(f.upload.Content)),
			CreatedAt:    s.now().UTC(),
		}
		if err := s.catalog.AddFile(ctx, &file); err != nil {
			return nil, fmt.Errorf("recording %s: %w", f.upload.Name, err)
		}
		s.log.Debug("Stored %s as %s", f.upload.Name, path)
		stored = append(stored, file)
	}
	return stored, nil
}

// extract reads every stored file back and converts it to text in parallel.
// Documents keep the order of files.
func (s *IngestionService) extract(
	ctx context.Context, session *domain.Session, files []domain.StoredFile,
) ([]domain.Document, error) {
	docs := make([]domain.Document, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ExtractWorkers)
	for i, file := range files {
		g.Go(func() error {
			doc, err := extractStored(gctx, s.blobs, s.registry, session.ID, file, s.cfg.ExtractionTimeout)
			if err != nil {
				return err
			}
			docs[i] = *doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// extractStored reads one stored file and normalises it under timeout.
func extractStored(
	ctx context.Context,
	blobs driven.BlobStore,
	registry driven.NormaliserRegistry,
	namespace string,
	file domain.StoredFile,
	timeout time.Duration,
) (*domain.Document, error) {
	content, err := blobs.Get(ctx, namespace, file.StoredName)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file.StoredName, err)
	}

	ectx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	result, err := registry.Normalise(ectx, &domain.RawDocument{
		SourceID: namespace,
		URI:      file.StoredName,
		MIMEType: file.Type.MIMEType(),
		Content:  content,
		Metadata: map[string]any{
			"filename": file.OriginalName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", file.OriginalName,
			domain.ClassifyCollaboratorError(err, domain.ErrExtraction))
	}
	return &result.Document, nil
}

// split chunks and fingerprints each document, tagging chunks with their source.
func (s *IngestionService) split(
	ctx context.Context, docs []domain.Document, files []domain.StoredFile,
) ([]domain.Chunk, error) {
	var all []domain.Chunk
	for i := range docs {
		chunks, err := s.pipeline.Process(ctx, &docs[i])
		if err != nil {
			return nil, fmt.Errorf("splitting %s: %w", files[i].OriginalName, err)
		}
		if len(chunks) == 0 {
			s.log.Warn("No text extracted from %q", files[i].OriginalName)
			continue
		}
		for j := range chunks {
			if chunks[j].Metadata == nil {
				chunks[j].Metadata = make(map[string]any, 2)
			}
			chunks[j].Metadata[MetaSource] = files[i].OriginalName
			chunks[j].Metadata[MetaStoredName] = files[i].StoredName
		}
		s.log.Debug("Split %s into %d chunks", files[i].OriginalName, len(chunks))
		all = append(all, chunks...)
	}
	return all, nil
}

// embed obtains every chunk embedding in one batch call.
func (s *IngestionService) embed(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	ectx, cancel := withTimeout(ctx, s.cfg.EmbeddingTimeout)
	defer cancel()

	embeddings, err := s.embedder.EmbedBatch(ectx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding chunks: %w",
			domain.ClassifyCollaboratorError(err, domain.ErrEmbeddingUnavailable))
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks",
			domain.ErrEmbeddingUnavailable, len(embeddings), len(texts))
	}
	return embeddings, nil
}

// index adds the chunks to the namespace and saves it under the writer lock.
func (s *IngestionService) index(
	ctx context.Context,
	namespace string,
	chunks []domain.Chunk,
	embeddings [][]float32,
	files []domain.StoredFile,
) (domain.AddResult, error) {
	unlock := s.indexes.Lock(namespace)
	defer unlock()

	idx, err := s.indexes.LoadOrCreate(ctx, namespace, len(embeddings[0]))
	if err != nil {
		return domain.AddResult{}, err
	}

	added, err := s.indexes.AddDocuments(idx, chunks, embeddings)
	if err != nil {
		return domain.AddResult{}, err
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.OriginalName
	}
	entry := domain.IngestionEntry{
		At:       s.now().UTC(),
		Files:    names,
		Inserted: added.Inserted,
		Skipped:  added.Skipped,
	}
	if err := s.indexes.SaveMetadata(ctx, idx, entry); err != nil {
		return domain.AddResult{}, err
	}
	return added, nil
}

// storedName returns "<stem>_<8 hex><ext>" for an uploaded filename.
func storedName(original string) string {
	base := filepath.Base(original)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	stem = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, stem)
	if stem == "" || strings.HasPrefix(stem, ".") {
		stem = "file" + stem
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return stem + "_" + suffix + strings.ToLower(ext)
}

