package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driving"
)

// execute runs the command tree for app and returns its combined output.
func execute(t *testing.T, app *App, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(bytes.NewBufferString(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// writeFile creates name with content in a temp dir and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

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

type mockChatService struct {
	answer    *driving.Answer
	askErr    error
	resetErr  error
	sessionID string
	questions []string
	topK      int
	resets    int
}

func (m *mockChatService) Ask(
	_ context.Context,
	sessionID, input string,
	opts ...driving.AskOption,
) (*driving.Answer, error) {
	m.sessionID = sessionID
	m.questions = append(m.questions, input)
	m.topK = driving.ApplyAskOptions(opts...).TopK
	if m.askErr != nil {
		return nil, m.askErr
	}
	return m.answer, nil
}

func (m *mockChatService) Retrieve(_ context.Context, _, _ string, _ int) ([]domain.RetrievedChunk, error) {
	return nil, nil
}

func (m *mockChatService) History(_ context.Context, _ string) ([]domain.Turn, error) {
	return nil, nil
}

func (m *mockChatService) Reset(_ context.Context, _ string) error {
	m.resets++
	return m.resetErr
}

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
	return "", "", nil
}

func (m *mockComparisonService) CombineDocuments(_ context.Context, _ string) (string, error) {
	return "", nil
}

func (m *mockComparisonService) Compare(_ context.Context, _ string) ([]domain.ChangeRow, error) {
	return m.rows, m.err
}

func (m *mockComparisonService) CompareFiles(
	_ context.Context,
	reference, actual domain.UploadedFile,
) ([]domain.ChangeRow, error) {
	m.reference = reference
	m.actual = actual
	return m.rows, m.err
}

type mockAnalysisService struct {
	meta *domain.DocumentMetadata
	err  error
	file domain.UploadedFile
}

func (m *mockAnalysisService) Analyze(_ context.Context, file domain.UploadedFile) (*domain.DocumentMetadata, error) {
	m.file = file
	return m.meta, m.err
}

type mockSessionService struct {
	summaries []driving.SessionSummary
	removed   []string
	err       error
	keep      int
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

func (m *mockSessionService) CleanOldSessions(_ context.Context, keepLatest int) ([]string, error) {
	m.keep = keepLatest
	return m.removed, m.err
}

type providerCall struct {
	provider domain.AIProvider
	model    string
	apiKey   string
}

type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	pingErr     error
	embedding   *providerCall
	llm         *providerCall
}

func newMockSettings() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings()}
}

func (m *mockSettingsService) ConfigPath() string {
	return "/home/user/.docportal/config.toml"
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.embedding = &providerCall{provider: provider, model: model, apiKey: apiKey}
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.llm = &providerCall{provider: provider, model: model, apiKey: apiKey}
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) ValidateEmbeddingConfig(context.Context) error {
	return m.pingErr
}

func (m *mockSettingsService) ValidateLLMConfig(context.Context) error {
	return m.pingErr
}
