package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
	"github.com/custodia-labs/docportal/internal/core/ports/driving"
	"github.com/custodia-labs/docportal/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// ChatService keeps one conversational orchestrator per session.
// Orchestrators are created on first use and bound to the session's
// persisted index.
type ChatService struct {
	sessions   *SessionService
	llm        driven.LLMService
	history    driven.HistoryStore
	prompts    driven.PromptStore
	retrievers *RetrieverFactory
	cfg        ConversationConfig
	log        *logger.Logger

	mu            sync.Mutex
	conversations map[string]*ConversationalRAG
}

// NewChatService creates a chat service. sessions may be nil, in which case
// session ids are not checked against the catalog.
func NewChatService(
	sessions *SessionService,
	llm driven.LLMService,
	history driven.HistoryStore,
	prompts driven.PromptStore,
	retrievers *RetrieverFactory,
	cfg ConversationConfig,
	log *logger.Logger,
) *ChatService {
	return &ChatService{
		sessions:      sessions,
		llm:           llm,
		history:       history,
		prompts:       prompts,
		retrievers:    retrievers,
		cfg:           cfg,
		log:           log,
		conversations: make(map[string]*ConversationalRAG),
	}
}

// Attach binds a freshly built retriever to the session's conversation.
func (s *ChatService) Attach(sessionID string, r driving.Retriever) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[sessionID]
	if !ok {
		conv = s.newConversation(sessionID)
		s.conversations[sessionID] = conv
	}
	conv.AttachRetriever(r)
}

// Conversation returns the session's orchestrator, loading its index on first use.
func (s *ChatService) Conversation(ctx context.Context, sessionID string) (*ConversationalRAG, error) {
	s.mu.Lock()
	conv, ok := s.conversations[sessionID]
	s.mu.Unlock()
	if ok {
		return conv, nil
	}

	namespace := sessionID
	if s.sessions != nil {
		session, err := s.sessions.Get(ctx, sessionID)
		if err != nil {
			return nil, domain.NewOpError("ask", sessionID, err)
		}
		namespace = session.IndexNamespace
	}

	loaded := s.newConversation(sessionID)
	if err := loaded.LoadRetriever(ctx, namespace); err != nil {
		return nil, err
	}

	// A concurrent load or Attach may have registered the session meanwhile.
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.conversations[sessionID]; ok {
		return conv, nil
	}
	s.conversations[sessionID] = loaded
	return loaded, nil
}

func (s *ChatService) newConversation(sessionID string) *ConversationalRAG {
	return NewConversationalRAG(sessionID, s.llm, s.history, s.prompts, s.retrievers, s.cfg, s.log)
}

// Ask runs one history-aware question against the session.
func (s *ChatService) Ask(ctx context.Context, sessionID, input string, opts ...driving.AskOption) (*driving.Answer, error) {
	if sessionID == "" {
		return nil, domain.NewOpError("ask", "", fmt.Errorf("%w: session id is required", domain.ErrValidation))
	}
	conv, err := s.Conversation(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return conv.Invoke(ctx, input, opts...)
}

// Retrieve returns the top k chunks for query from the session's index.
func (s *ChatService) Retrieve(ctx context.Context, sessionID, query string, k int) ([]domain.RetrievedChunk, error) {
	if sessionID == "" {
		return nil, domain.NewOpError("retrieve", "", fmt.Errorf("%w: session id is required", domain.ErrValidation))
	}
	conv, err := s.Conversation(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return conv.Retrieve(ctx, query, k)
}

// History returns the session's turns in order.
func (s *ChatService) History(_ context.Context, sessionID string) ([]domain.Turn, error) {
	return s.history.Get(sessionID), nil
}

// Reset clears the session's history.
func (s *ChatService) Reset(_ context.Context, sessionID string) error {
	s.history.Clear(sessionID)
	return nil
}
