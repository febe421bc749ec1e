package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

const (
	documentA = "Document A covers the harbour expansion plan. The first page lists the budget for new cranes. " +
		"The second page of document A describes the dredging schedule and the environmental review."
	documentB = "Document B is a one page memo about staff parking."
)

func TestIngestionService_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.ingestion.Ingest(ctx, "", []domain.UploadedFile{
		textFile("A.txt", documentA),
		textFile("B.md", documentB),
	})

	require.NoError(t, err)
	assert.Regexp(t, sessionIDPattern, result.Session.ID)
	require.Len(t, result.Files, 2)
	assert.Equal(t, "A.txt", result.Files[0].OriginalName)
	assert.Equal(t, domain.FileTypeMarkdown, result.Files[1].Type)
	assert.Empty(t, result.Skipped)
	assert.Greater(t, result.Chunks, 2)
	assert.Equal(t, result.Chunks, result.Added.Inserted)
	assert.Equal(t, 1, env.embedder.batches, "one batch embedding call")
	assert.False(t, env.sessions.isActive(result.Session.ID))

	chunks, err := result.Retriever.Query(ctx, "What is in document A?", 3)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	sources := make([]string, len(chunks))
	for i, c := range chunks {
		sources[i] = c.Metadata.Source
	}
	assert.Contains(t, sources, "A.txt")

	env.chat.Attach(result.Session.ID, result.Retriever)
	answer, err := env.chat.Ask(ctx, result.Session.ID, "What is in document A?")
	require.NoError(t, err)
	assert.NotEmpty(t, answer.Text)

	history, err := env.chat.History(ctx, result.Session.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestIngestionService_ReingestIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	files := []domain.UploadedFile{textFile("A.txt", documentA)}

	first, err := env.ingestion.Ingest(ctx, "", files)
	require.NoError(t, err)

	second, err := env.ingestion.Ingest(ctx, first.Session.ID, files)
	require.NoError(t, err)

	assert.Equal(t, first.Session.ID, second.Session.ID)
	assert.Equal(t, 0, second.Added.Inserted)
	assert.Equal(t, first.Chunks, second.Added.Skipped)

	idx, err := env.indexStore.Load(ctx, first.Session.IndexNamespace)
	require.NoError(t, err)
	assert.Equal(t, first.Added.Inserted, idx.Len())
	assert.Len(t, idx.Metadata().Ingestions, 2)

	stored, err := env.catalog.ListFiles(ctx, first.Session.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	assert.NotEqual(t, stored[0].StoredName, stored[1].StoredName)
}

func TestIngestionService_SkipsUnsupportedFiles(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.ingestion.Ingest(context.Background(), "", []domain.UploadedFile{
		textFile("photo.png", "binary"),
		textFile("notes.txt", documentB),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"photo.png"}, result.Skipped)
	require.Len(t, result.Files, 1)
	assert.Equal(t, "notes.txt", result.Files[0].OriginalName)
}

func TestIngestionService_NoDocuments(t *testing.T) {
	tests := []struct {
		name  string
		files []domain.UploadedFile
	}{
		{"empty upload", nil},
		{"only unsupported", []domain.UploadedFile{textFile("sheet.xlsx", "x"), textFile("image.jpg", "y")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()

			_, err := env.ingestion.Ingest(ctx, "", tt.files)

			assert.ErrorIs(t, err, domain.ErrNoDocumentsIngested)
			assert.ErrorIs(t, err, domain.ErrValidation)
			sessions, listErr := env.catalog.ListSessions(ctx)
			require.NoError(t, listErr)
			assert.Empty(t, sessions, "no session is created for an empty batch")
		})
	}
}

func TestIngestionService_EmptyExtractedText(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.ingestion.Ingest(context.Background(), "", []domain.UploadedFile{textFile("blank.txt", "")})

	assert.ErrorIs(t, err, domain.ErrNoDocumentsIngested)
}

func TestIngestionService_ExtractionFailureAbortsBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ingestion.Ingest(ctx, "", []domain.UploadedFile{
		textFile("good.txt", documentA),
		textFile("bad.txt", "!broken bytes"),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.Contains(t, err.Error(), "bad.txt")

	var opErr *domain.OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "ingest", opErr.Op)
	assert.Regexp(t, sessionIDPattern, opErr.Namespace)

	exists, existsErr := env.indexes.Exists(ctx, opErr.Namespace)
	require.NoError(t, existsErr)
	assert.False(t, exists, "no partial index is saved")

	stored, listErr := env.blobs.List(ctx, opErr.Namespace)
	require.NoError(t, listErr)
	assert.Len(t, stored, 2, "files stay on disk for a retry")
}

func TestIngestionService_EmbeddingFailureIsRetryable(t *testing.T) {
	env := newTestEnv(t)
	env.embedder.err = errors.New("connection refused")

	_, err := env.ingestion.Ingest(context.Background(), "", []domain.UploadedFile{textFile("a.txt", documentA)})

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.True(t, domain.IsRetryable(err))
}

func TestIngestionService_EmbeddingTimeout(t *testing.T) {
	env := newTestEnv(t)
	env.embedder.block = true
	env.ingestion.cfg.EmbeddingTimeout = 20 * time.Millisecond

	_, err := env.ingestion.Ingest(context.Background(), "", []domain.UploadedFile{textFile("a.txt", documentA)})

	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.True(t, domain.IsRetryable(err))
}

func TestIngestionService_Validation(t *testing.T) {
	t.Run("file too large", func(t *testing.T) {
		env := newTestEnv(t)
		env.ingestion.cfg.MaxFileBytes = 10

		_, err := env.ingestion.Ingest(context.Background(), "", []domain.UploadedFile{textFile("a.txt", documentA)})

		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("unknown session", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.ingestion.Ingest(context.Background(), "session_20250101000000_deadbeef",
			[]domain.UploadedFile{textFile("a.txt", documentA)})

		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
		assert.False(t, env.sessions.isActive("session_20250101000000_deadbeef"))
	})

	t.Run("no embedder", func(t *testing.T) {
		env := newTestEnv(t)
		env.ingestion.embedder = nil

		_, err := env.ingestion.Ingest(context.Background(), "", []domain.UploadedFile{textFile("a.txt", documentA)})

		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})
}

func TestIngestionService_ChunksOverlap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.ingestion.Ingest(ctx, "", []domain.UploadedFile{textFile("A.txt", documentA)})
	require.NoError(t, err)

	idx, err := env.indexStore.Load(ctx, result.Session.IndexNamespace)
	require.NoError(t, err)
	records := idx.Records()
	require.Greater(t, len(records), 1)
	for i := 1; i < len(records); i++ {
		prev := []rune(records[i-1].Text)
		assert.True(t, strings.HasPrefix(records[i].Text, string(prev[len(prev)-15:])))
	}
}

func TestStoredName(t *testing.T) {
	tests := []struct {
		original string
		pattern  string
	}{
		{"report.pdf", `^report_[0-9a-f]{8}\.pdf$`},
		{"Notes.TXT", `^Notes_[0-9a-f]{8}\.txt$`},
		{"dir/inner/plan.md", `^plan_[0-9a-f]{8}\.md$`},
		{"what?.docx", `^what__[0-9a-f]{8}\.docx$`},
		{".md", `^file_[0-9a-f]{8}\.md$`},
	}

	for _, tt := range tests {
		t.Run(tt.original, func(t *testing.T) {
			assert.Regexp(t, tt.pattern, storedName(tt.original))
		})
	}

	assert.NotEqual(t, storedName("a.txt"), storedName("a.txt"))
}
