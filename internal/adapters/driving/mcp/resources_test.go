package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driving"
)

func TestExtractSessionID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid history URI",
			uri:      "docportal://sessions/session_20250101000000_abcdef12/history",
			expected: "session_20250101000000_abcdef12",
		},
		{
			name:     "invalid prefix",
			uri:      "file://sessions/s/history",
			expected: "",
		},
		{
			name:     "missing history suffix",
			uri:      "docportal://sessions/s",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractSessionID(tt.uri))
		})
	}
}

func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleSessionsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil session service returns empty list", func(t *testing.T) {
		server, err := NewServer(requiredPorts())
		require.NoError(t, err)

		result, err := server.handleSessionsResource(ctx, makeReadResourceRequest("docportal://sessions"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns sessions", func(t *testing.T) {
		ports := requiredPorts()
		ports.Sessions = &mockSessionService{summaries: []driving.SessionSummary{{
			Session: domain.Session{ID: "session_20250101000000_abcdef12"},
			Files:   []domain.StoredFile{{OriginalName: "notes.md"}},
		}}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		result, err := server.handleSessionsResource(ctx, makeReadResourceRequest("docportal://sessions"))

		require.NoError(t, err)
		assert.Contains(t, result.Contents[0].Text, "session_20250101000000_abcdef12")
		assert.Contains(t, result.Contents[0].Text, "notes.md")
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		ports := requiredPorts()
		ports.Sessions = &mockSessionService{err: errors.New("database error")}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, err = server.handleSessionsResource(ctx, makeReadResourceRequest("docportal://sessions"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing sessions")
	})
}

func TestServer_handleHistoryResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns turns", func(t *testing.T) {
		ports := requiredPorts()
		ports.Chat = &mockChatService{history: []domain.Turn{
			{Role: domain.RoleUser, Content: "What changed?"},
			{Role: domain.RoleAssistant, Content: "The title."},
		}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		result, err := server.handleHistoryResource(ctx,
			makeReadResourceRequest("docportal://sessions/session_20250101000000_abcdef12/history"))

		require.NoError(t, err)
		assert.Contains(t, result.Contents[0].Text, `"role": "user"`)
		assert.Contains(t, result.Contents[0].Text, "The title.")
	})

	t.Run("bad URI is not found", func(t *testing.T) {
		server, err := NewServer(requiredPorts())
		require.NoError(t, err)

		_, err = server.handleHistoryResource(ctx, makeReadResourceRequest("docportal://elsewhere"))

		assert.Error(t, err)
	})
}
