package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docportal/internal/adapters/driven/indexstore/file"
	"github.com/custodia-labs/docportal/internal/adapters/driven/storage/localfs"
	"github.com/custodia-labs/docportal/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
	"github.com/custodia-labs/docportal/internal/logger"
	"github.com/custodia-labs/docportal/internal/postprocessors"
	"github.com/custodia-labs/docportal/internal/postprocessors/chunker"
	"github.com/custodia-labs/docportal/internal/postprocessors/fingerprint"
)

// fakeEmbedder hashes words into a fixed number of buckets.
type fakeEmbedder struct {
	mu      sync.Mutex
	dims    int
	batches int
	err     error
	block   bool
}

func newFakeEmbedder() *fakeEmbedder { return &fakeEmbedder{dims: 16} }

func (f *fakeEmbedder) vector(text string) []float32 {
	v := make([]float32, f.dims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(word, ".,?!:;")))
		v[h.Sum32()%uint32(f.dims)]++
	}
	return v
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector(text), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.batches++
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dims }
func (f *fakeEmbedder) ModelName() string { return "fake-embed" }
func (f *fakeEmbedder) Ping(ctx context.Context) error { return nil }
func (f *fakeEmbedder) Close() error { return nil }

// fakeLLM records calls. Chat answers rewrites with "standalone: <input>"
// and everything else with answer, unless chatFn is set.
type fakeLLM struct {
	mu      sync.Mutex
	chatFn  func(messages []driven.ChatMessage) (string, error)
	answer  string
	replies []string
	genErr  error
	chats   [][]driven.ChatMessage
	prompts []string
}

func newFakeLLM() *fakeLLM { return &fakeLLM{answer: "The answer."} }

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.genErr != nil {
		return "", f.genErr
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeLLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	f.mu.Lock()
	f.chats = append(f.chats, append([]driven.ChatMessage(nil), messages...))
	fn := f.chatFn
	f.mu.Unlock()
	if fn != nil {
		return fn(messages)
	}
	if messages[0].Content == testPrompts[driven.PromptContextualizeQuestion] {
		return "standalone: " + messages[len(messages)-1].Content, nil
	}
	return f.answer, nil
}

func (f *fakeLLM) ModelName() string { return "fake-llm" }
func (f *fakeLLM) Ping(ctx context.Context) error { return nil }
func (f *fakeLLM) Close() error { return nil }

func (f *fakeLLM) chatCalls() [][]driven.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]driven.ChatMessage(nil), f.chats...)
}

var testPrompts = map[string]string{
	driven.PromptContextualizeQuestion: "rewrite",
	driven.PromptContextQA:             "Context:\n%s",
	driven.PromptDocumentComparison:    "%s\n---\n%s",
	driven.PromptOutputFix:             "fix\n%s\n%s\n%s",
	driven.PromptDocumentAnalysis:      "%s\n---\n%s",
}

type fakePrompts map[string]string

func (p fakePrompts) Load(name string) (string, error) {
	s, ok := p[name]
	if !ok {
		return "", fmt.Errorf("%w: prompt %s", domain.ErrNotFound, name)
	}
	return s, nil
}

func (p fakePrompts) Reload() {}

// fakeRegistry returns the raw bytes as text. Content starting with
// "!broken" fails extraction. extra is merged into the document metadata.
type fakeRegistry struct {
	extra map[string]any
}

func (r fakeRegistry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content := string(raw.Content)
	if strings.HasPrefix(content, "!broken") {
		return nil, errors.New("unreadable content")
	}
	meta := map[string]any{}
	for k, v := range raw.Metadata {
		meta[k] = v
	}
	for k, v := range r.extra {
		meta[k] = v
	}
	return &driven.NormaliseResult{Document: domain.Document{
		ID:        "doc-" + raw.URI,
		SourceID:  raw.SourceID,
		URI:       raw.URI,
		Content:   content,
		Metadata:  meta,
		CreatedAt: time.Now(),
	}}, nil
}

func (fakeRegistry) Register(driven.Normaliser) {}
func (fakeRegistry) SupportedMIMETypes() []string { return nil }

// testEnv wires the ingestion stack over temp directories.
type testEnv struct {
	catalog    *memory.SessionCatalog
	blobs      *localfs.BlobStore
	indexStore *file.Store
	indexes    *IndexManager
	sessions   *SessionService
	retrievers *RetrieverFactory
	embedder   *fakeEmbedder
	llm        *fakeLLM
	history    *memory.HistoryStore
	ingestion  *IngestionService
	chat       *ChatService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()

	blobs, err := localfs.NewBlobStore(root + "/sessions")
	require.NoError(t, err)
	indexStore, err := file.NewStore(root + "/index")
	require.NoError(t, err)

	log := logger.Nop()
	env := &testEnv{
		catalog:    memory.NewSessionCatalog(),
		blobs:      blobs,
		indexStore: indexStore,
		embedder:   newFakeEmbedder(),
		llm:        newFakeLLM(),
		history:    memory.NewHistoryStore(0),
	}
	env.indexes = NewIndexManager(indexStore, log)
	env.sessions = NewSessionService(env.catalog, blobs, env.indexes, log)
	env.retrievers = NewRetrieverFactory(env.indexes, env.embedder, RetrieverConfig{TopK: 5})

	pipeline := postprocessors.NewPipeline(
		chunker.New(chunker.WithChunkSize(60), chunker.WithOverlap(15)),
		fingerprint.New(),
	)
	env.ingestion = NewIngestionService(
		env.sessions, env.catalog, blobs, fakeRegistry{}, pipeline, env.embedder,
		env.indexes, env.retrievers, IngestionConfig{ExtractWorkers: 2}, log,
	)
	env.chat = NewChatService(env.sessions, env.llm, env.history, fakePrompts(testPrompts),
		env.retrievers, ConversationConfig{TopK: 5}, log)
	return env
}

func textFile(name, content string) domain.UploadedFile {
	return domain.UploadedFile{Name: name, Content: []byte(content)}
}
