package domain

// Role identifies the author of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one (role, message) entry of a session history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NoAnswer is returned when generation succeeds with an empty answer.
const NoAnswer = "No answer."

// ConversationState is the orchestrator lifecycle state.
type ConversationState int

// Conversation states.
const (
	// StateUninitialized means no retriever is attached.
	StateUninitialized ConversationState = iota

	// StateReady means a retriever is attached and invoke may run.
	StateReady

	// StateFailed means the last invoke failed in the retriever or the LLM.
	StateFailed
)

// String returns the state name.
func (s ConversationState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return unknownDescription
	}
}
