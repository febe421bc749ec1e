package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
	"github.com/custodia-labs/docportal/internal/core/ports/driving"
	"github.com/custodia-labs/docportal/internal/logger"
)

// ConversationConfig configures a conversational retrieval orchestrator.
type ConversationConfig struct {
	// TopK is the number of chunks retrieved per question.
	TopK int

	// DedupOverlappingContext trims text shared by neighbouring chunks of the
	// same document before they are joined into the context block.
	DedupOverlappingContext bool

	// Generation configures both language model calls.
	Generation GenerationConfig
}

// ConversationConfigFrom derives orchestrator settings from application settings.
func ConversationConfigFrom(settings *domain.AppSettings) ConversationConfig {
	return ConversationConfig{
		TopK:                    settings.Retrieval.TopK,
		DedupOverlappingContext: settings.Retrieval.DedupOverlappingContext,
		Generation:              GenerationConfigFrom(settings),
	}
}

// ConversationalRAG answers follow-up questions against one session.
//
// Each Invoke runs four stages in order: rewrite the question into a
// standalone one, retrieve context for it, format the context block and
// generate the grounded answer. History only changes after all four succeed.
type ConversationalRAG struct {
	sessionID  string
	llm        driven.LLMService
	history    driven.HistoryStore
	prompts    driven.PromptStore
	retrievers *RetrieverFactory
	cfg        ConversationConfig
	log        *logger.Logger

	mu        sync.Mutex
	state     domain.ConversationState
	retriever driving.Retriever
}

// NewConversationalRAG creates an orchestrator for sessionID in the
// Uninitialized state.
func NewConversationalRAG(
	sessionID string,
	llm driven.LLMService,
	history driven.HistoryStore,
	prompts driven.PromptStore,
	retrievers *RetrieverFactory,
	cfg ConversationConfig,
	log *logger.Logger,
) *ConversationalRAG {
	return &ConversationalRAG{
		sessionID:  sessionID,
		llm:        llm,
		history:    history,
		prompts:    prompts,
		retrievers: retrievers,
		cfg:        cfg,
		log:        log.With("session", sessionID),
		state:      domain.StateUninitialized,
	}
}

// State returns the current lifecycle state.
func (c *ConversationalRAG) State() domain.ConversationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// AttachRetriever binds a retriever and moves to Ready.
func (c *ConversationalRAG) AttachRetriever(r driving.Retriever) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retriever = r
	c.state = domain.StateReady
}

// LoadRetriever binds the persisted index at namespace and moves to Ready.
// Returns domain.ErrRetrieverNotFound if no index exists there.
func (c *ConversationalRAG) LoadRetriever(ctx context.Context, namespace string) error {
	r, err := c.retrievers.Open(ctx, namespace)
	if err != nil {
		return domain.NewOpError("load retriever", c.sessionID, err)
	}
	c.AttachRetriever(r)
	return nil
}

// Invoke answers input using the session history. An empty answer from the
// model yields domain.NoAnswer. On failure the state becomes Failed and the
// history is left unchanged.
func (c *ConversationalRAG) Invoke(ctx context.Context, input string, opts ...driving.AskOption) (*driving.Answer, error) {
	k := c.cfg.TopK
	if o := driving.ApplyAskOptions(opts...); o.TopK > 0 {
		k = o.TopK
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return nil, domain.NewOpError("invoke", c.sessionID, fmt.Errorf("%w: empty question", domain.ErrValidation))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.retriever == nil {
		return nil, domain.NewOpError("invoke", c.sessionID, domain.ErrRetrieverNotAttached)
	}
	if c.llm == nil {
		return nil, domain.NewOpError("invoke", c.sessionID, domain.ErrLLMUnavailable)
	}

	c.log.Section("Conversation")
	history := c.history.Get(c.sessionID)

	answer, err := c.run(ctx, input, history, k)
	if err != nil {
		c.state = domain.StateFailed
		c.log.Error("Invoke failed: %v", err)
		return nil, domain.NewOpError("invoke", c.sessionID, err)
	}

	c.history.Append(c.sessionID,
		domain.Turn{Role: domain.RoleUser, Content: input},
		domain.Turn{Role: domain.RoleAssistant, Content: answer.Text},
	)
	c.state = domain.StateReady
	return answer, nil
}

func (c *ConversationalRAG) run(ctx context.Context, input string, history []domain.Turn, k int) (*driving.Answer, error) {
	question, err := c.rewrite(ctx, input, history)
	if err != nil {
		return nil, err
	}
	c.log.Debug("Standalone question: %q", question)

	chunks, err := c.retriever.Query(ctx, question, k)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}
	c.log.Debug("Retrieved %d chunks", len(chunks))

	contextBlock := formatContext(chunks, c.cfg.DedupOverlappingContext)

	text, err := c.generate(ctx, contextBlock, input, history)
	if err != nil {
		return nil, err
	}
	if text = strings.TrimSpace(text); text == "" {
		text = domain.NoAnswer
	}

	return &driving.Answer{Text: text, Question: question, Context: chunks}, nil
}

// Retrieve searches the attached retriever directly. State and history are
// not touched.
func (c *ConversationalRAG) Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievedChunk, error) {
	c.mu.Lock()
	r := c.retriever
	c.mu.Unlock()
	if r == nil {
		return nil, domain.NewOpError("retrieve", c.sessionID, domain.ErrRetrieverNotAttached)
	}

	chunks, err := r.Query(ctx, query, k)
	if err != nil {
		return nil, domain.NewOpError("retrieve", c.sessionID, err)
	}
	return chunks, nil
}

// rewrite turns input plus history into a standalone question.
func (c *ConversationalRAG) rewrite(ctx context.Context, input string, history []domain.Turn) (string, error) {
	system, err := c.prompts.Load(driven.PromptContextualizeQuestion)
	if err != nil {
		return "", fmt.Errorf("loading prompt: %w", err)
	}

	reply, err := c.chat(ctx, system, history, input)
	if err != nil {
		return "", fmt.Errorf("rewriting question: %w", err)
	}
	if reply = strings.TrimSpace(reply); reply != "" {
		return reply, nil
	}
	return input, nil
}

// generate answers input from the context block and history.
func (c *ConversationalRAG) generate(ctx context.Context, contextBlock, input string, history []domain.Turn) (string, error) {
	tmpl, err := c.prompts.Load(driven.PromptContextQA)
	if err != nil {
		return "", fmt.Errorf("loading prompt: %w", err)
	}

	reply, err := c.chat(ctx, fmt.Sprintf(tmpl, contextBlock), history, input)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	return reply, nil
}

func (c *ConversationalRAG) chat(ctx context.Context, system string, history []domain.Turn, input string) (string, error) {
	messages := make([]driven.ChatMessage, 0, len(history)+2)
	messages = append(messages, driven.ChatMessage{Role: driven.RoleSystem, Content: system})
	for _, turn := range history {
		messages = append(messages, driven.ChatMessage{Role: string(turn.Role), Content: turn.Content})
	}
	messages = append(messages, driven.ChatMessage{Role: driven.RoleUser, Content: input})

	gen := c.cfg.Generation
	cctx, cancel := withTimeout(ctx, gen.Timeout)
	defer cancel()

	reply, err := c.llm.Chat(cctx, messages, driven.ChatOptions{
		MaxTokens:   gen.MaxTokens,
		Temperature: gen.Temperature,
	})
	if err != nil {
		return "", domain.ClassifyCollaboratorError(err, domain.ErrModelUnavailable)
	}
	return reply, nil
}

// formatContext joins chunk texts with a blank line, in retrieval order.
// With dedup, text a chunk shares with an already included neighbour from
// the same document is trimmed, and chunks left empty are dropped.
func formatContext(chunks []domain.RetrievedChunk, dedup bool) string {
	texts := make([]string, 0, len(chunks))
	var kept []domain.RetrievedChunk
	for _, chunk := range chunks {
		text := chunk.Text
		if dedup {
			text = trimNeighbourOverlap(chunk, kept)
			if strings.TrimSpace(text) == "" {
				continue
			}
			kept = append(kept, chunk)
		}
		texts = append(texts, text)
	}
	return strings.Join(texts, "\n\n")
}

func trimNeighbourOverlap(chunk domain.RetrievedChunk, kept []domain.RetrievedChunk) string {
	text := chunk.Text
	for _, k := range kept {
		if k.Metadata.Source != chunk.Metadata.Source {
			continue
		}
		if strings.Contains(k.Text, text) {
			return ""
		}
		switch k.Metadata.Position {
		case chunk.Metadata.Position - 1:
			text = text[overlapLen(k.Text, text):]
		case chunk.Metadata.Position + 1:
			text = text[:len(text)-overlapLen(text, k.Text)]
		}
	}
	return text
}

// overlapLen returns the length of the longest suffix of a that is a prefix of b.
func overlapLen(a, b string) int {
	n := min(len(a), len(b))
	for ; n > 0; n-- {
		if strings.HasSuffix(a, b[:n]) {
			return n
		}
	}
	return 0
}
