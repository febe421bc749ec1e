package mcp

import (
	"context"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driving"
)

// mockIngestionService is a mock implementation of driving.IngestionService.
type mockIngestionService struct {
	result    *driving.IngestResult
	err       error
	sessionID string
	files     []domain.UploadedFile
}

func (m *mockIngestionService) Ingest(
	_ context.Context,
	sessionID string,
	files []domain.UploadedFile,
) (*driving.IngestResult, error) {
	m.sessionID = sessionID
	m.files = files
	return m.result, m.err
}

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	answer  *driving.Answer
	chunks  []domain.RetrievedChunk
	history []domain.Turn
	err     error
	topK    int
}

func (m *mockChatService) Ask(
	_ context.Context,
	_, _ string,
	opts ...driving.AskOption,
) (*driving.Answer, error) {
	m.topK = driving.ApplyAskOptions(opts...).TopK
	return m.answer, m.err
}

func (m *mockChatService) Retrieve(_ context.Context, _, _ string, k int) ([]domain.RetrievedChunk, error) {
	m.topK = k
	return m.chunks, m.err
}

func (m *mockChatService) History(_ context.Context, _ string) ([]domain.Turn, error) {
	return m.history, m.err
}

func (m *mockChatService) Reset(_ context.Context, _ string) error {
	return m.err
}

// mockComparisonService is a mock implementation of driving.ComparisonService.
type mockComparisonService struct {
	rows      []domain.ChangeRow
	err       error
	reference domain.UploadedFile
	actual    domain.UploadedFile
}

func (m *mockComparisonService) SaveUploadedFiles(
	_ context.Context,
	_ string,
	_, _ domain.UploadedFile,
) (string, string, error) {
	return "", "", m.err
}

func (m *mockComparisonService) CombineDocuments(_ context.Context, _ string) (string, error) {
	return "", m.err
}

func (m *mockComparisonService) Compare(_ context.Context, _ string) ([]domain.ChangeRow, error) {
	return m.rows, m.err
}

func (m *mockComparisonService) CompareFiles(
	_ context.Context,
	reference, actual domain.UploadedFile,
) ([]domain.ChangeRow, error) {
	m.reference, m.actual = reference, actual
	return m.rows, m.err
}

// mockSessionService is a mock implementation of driving.SessionService.
type mockSessionService struct {
	summaries []driving.SessionSummary
	removed   []string
	err       error
}

func (m *mockSessionService) Create(_ context.Context) (*domain.Session, error) {
	return nil, m.err
}

func (m *mockSessionService) Get(_ context.Context, _ string) (*domain.Session, error) {
	return nil, m.err
}

func (m *mockSessionService) List(_ context.Context) ([]driving.SessionSummary, error) {
	return m.summaries, m.err
}

func (m *mockSessionService) Acquire(_ string) error { return nil }

func (m *mockSessionService) Release(_ string) {}

func (m *mockSessionService) CleanOldSessions(_ context.Context, _ int) ([]string, error) {
	return m.removed, m.err
}

func requiredPorts() *Ports {
	return &Ports{
		Ingestion: &mockIngestionService{},
		Chat:      &mockChatService{},
	}
}
