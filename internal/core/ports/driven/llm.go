package driven

import "context"

// LLMService is a chat model: it rewrites follow-up questions, answers them
// from retrieved context and extracts structured comparisons and metadata.
// Ollama, OpenAI-compatible endpoints (including Groq), Anthropic and Gemini
// have adapters.
type LLMService interface {
	// Generate answers a single prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Chat continues a conversation. Adapters pass RoleSystem messages as
	// the provider's system instruction.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	ModelName() string

	// Ping checks the provider answers and the model is usable, without
	// spending tokens where the API allows it.
	Ping(ctx context.Context) error

	Close() error
}

// GenerateOptions tunes a Generate call. Zero MaxTokens leaves the
// provider default.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	StopWords   []string
}

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatOptions tunes a Chat call.
type ChatOptions struct {
	MaxTokens   int
	Temperature float64
}
