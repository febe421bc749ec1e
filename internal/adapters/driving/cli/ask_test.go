package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driving"
)

const testSession = "session_20250101120000_ab12cd34"

func testAnswer() *driving.Answer {
	return &driving.Answer{
		Text:     "Thirty days.",
		Question: "What is the notice period?",
		Context: []domain.RetrievedChunk{
			{Text: "notice", Score: 0.91, Metadata: domain.RecordMetadata{Source: "contract.pdf", Position: 4}},
		},
	}
}

func TestAskCmd(t *testing.T) {
	chat := &mockChatService{answer: testAnswer()}

	out, err := execute(t, &App{Chat: chat}, "", "ask", "--session", testSession, "What", "is", "the", "notice", "period?")

	require.NoError(t, err)
	assert.Equal(t, testSession, chat.sessionID)
	assert.Equal(t, []string{"What is the notice period?"}, chat.questions)
	assert.Zero(t, chat.topK)
	assert.Contains(t, out, "Thirty days.")
	assert.NotContains(t, out, "Sources:")
}

func TestAskCmd_TopKAndSources(t *testing.T) {
	chat := &mockChatService{answer: testAnswer()}

	out, err := execute(t, &App{Chat: chat}, "", "ask", "-s", testSession, "--k", "8", "--sources", "notice?")

	require.NoError(t, err)
	assert.Equal(t, 8, chat.topK)
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "[1] contract.pdf (chunk 4, score 0.910)")
}

func TestAskCmd_Errors(t *testing.T) {
	t.Run("session flag required", func(t *testing.T) {
		_, err := execute(t, &App{Chat: &mockChatService{}}, "", "ask", "question")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `required flag(s) "session" not set`)
	})

	t.Run("service failure", func(t *testing.T) {
		chat := &mockChatService{askErr: errors.New("model down")}
		_, err := execute(t, &App{Chat: chat}, "", "ask", "-s", testSession, "question")
		assert.EqualError(t, err, "model down")
	})
}

func TestChatCmd(t *testing.T) {
	chat := &mockChatService{answer: testAnswer()}

	out, err := execute(t, &App{Chat: chat}, "first question\n\n/reset\nsecond question\nexit\nignored\n",
		"chat", "--session", testSession)

	require.NoError(t, err)
	assert.Equal(t, []string{"first question", "second question"}, chat.questions)
	assert.Equal(t, 1, chat.resets)
	assert.Contains(t, out, "Chatting with "+testSession)
	assert.Contains(t, out, "History cleared.")
	assert.Contains(t, out, "Thirty days.")
}

func TestChatCmd_EndOfInput(t *testing.T) {
	chat := &mockChatService{answer: testAnswer()}

	_, err := execute(t, &App{Chat: chat}, "only question\n", "chat", "-s", testSession)

	require.NoError(t, err)
	assert.Equal(t, []string{"only question"}, chat.questions)
}

func TestChatCmd_ContinuesAfterFailedTurn(t *testing.T) {
	chat := &mockChatService{askErr: domain.ErrModelUnavailable}

	out, err := execute(t, &App{Chat: chat}, "one\ntwo\nquit\n", "chat", "-s", testSession)

	require.NoError(t, err)
	assert.Len(t, chat.questions, 2)
	assert.Contains(t, out, "Error: ")
}

func TestChatCmd_ResetFailureStops(t *testing.T) {
	chat := &mockChatService{resetErr: errors.New("store closed")}

	_, err := execute(t, &App{Chat: chat}, "/reset\n", "chat", "-s", testSession)

	assert.EqualError(t, err, "store closed")
}
