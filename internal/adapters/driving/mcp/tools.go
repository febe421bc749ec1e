package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docportal/internal/adapters/driving/uploads"
	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driving"
)

// IngestInput is the input schema for the ingest_files tool.
type IngestInput struct {
	Paths     []string `json:"paths" jsonschema:"local paths of the files to ingest (pdf, docx, md, txt)"`
	SessionID string   `json:"session_id,omitempty" jsonschema:"existing session to add the files to; a new session is created when empty"`
}

// IngestOutput is the output schema for the ingest_files tool.
type IngestOutput struct {
	SessionID  string   `json:"session_id"`
	Files      []string `json:"files"`
	Skipped    []string `json:"skipped,omitempty"`
	Chunks     int      `json:"chunks"`
	Inserted   int      `json:"inserted"`
	Duplicates int      `json:"duplicates"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	SessionID string `json:"session_id" jsonschema:"session whose documents answer the question"`
	Question  string `json:"question" jsonschema:"the question, may refer to earlier turns"`
	K         int    `json:"k,omitempty" jsonschema:"number of chunks to retrieve (default from settings)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer     string        `json:"answer"`
	Standalone string        `json:"standalone_question"`
	Sources    []ChunkOutput `json:"sources"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	SessionID string `json:"session_id" jsonschema:"session to search"`
	Query     string `json:"query" jsonschema:"text to search for"`
	K         int    `json:"k,omitempty" jsonschema:"maximum number of chunks to return (default from settings)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Chunks []ChunkOutput `json:"chunks"`
	Count  int           `json:"count"`
}

// ChunkOutput represents a single retrieved chunk.
type ChunkOutput struct {
	Source   string  `json:"source"`
	Position int     `json:"position"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

// CompareInput is the input schema for the compare_documents tool.
type CompareInput struct {
	ReferencePath string `json:"reference_path" jsonschema:"local path of the reference PDF"`
	ActualPath    string `json:"actual_path" jsonschema:"local path of the PDF to check against the reference"`
}

// CompareOutput is the output schema for the compare_documents tool.
type CompareOutput struct {
	Changes []domain.ChangeRow `json:"changes"`
}

// ListSessionsInput is the input schema for the list_sessions tool.
type ListSessionsInput struct{}

// ListSessionsOutput is the output schema for the list_sessions tool.
type ListSessionsOutput struct {
	Sessions []SessionOutput `json:"sessions"`
}

// SessionOutput represents a single session.
type SessionOutput struct {
	ID        string   `json:"id"`
	CreatedAt string   `json:"created_at"`
	Files     []string `json:"files"`
}

// registerTools registers all tool handlers with the MCP server.
// Tools backed by optional ports are only registered when the port is set.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_files",
		Description: "Ingest local documents into a session so they can be queried",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Ask a question about a session's documents, keeping the conversation history",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Return the chunks of a session's documents most similar to a query",
	}, s.handleRetrieve)

	if s.ports.Comparison != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "compare_documents",
			Description: "Compare a reference PDF against an actual PDF and list the changes per page",
		}, s.handleCompare)
	}

	if s.ports.Sessions != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_sessions",
			Description: "List ingestion sessions, newest first",
		}, s.handleListSessions)
	}
}

// handleIngest handles the ingest_files tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if len(input.Paths) == 0 {
		return nil, IngestOutput{}, fmt.Errorf("%w: paths is required", domain.ErrValidation)
	}

	files, err := uploads.ReadFiles(input.Paths...)
	if err != nil {
		return nil, IngestOutput{}, s.toolError("ingest_files", err)
	}

	result, err := s.ports.Ingestion.Ingest(ctx, input.SessionID, files)
	if err != nil {
		return nil, IngestOutput{}, s.toolError("ingest_files", err)
	}

	output := IngestOutput{
		SessionID:  result.Session.ID,
		Files:      make([]string, len(result.Files)),
		Skipped:    result.Skipped,
		Chunks:     result.Chunks,
		Inserted:   result.Added.Inserted,
		Duplicates: result.Added.Skipped,
	}
	for i := range result.Files {
		output.Files[i] = result.Files[i].OriginalName
	}

	return nil, output, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Chat.Ask(ctx, input.SessionID, input.Question, driving.WithTopK(input.K))
	if err != nil {
		return nil, AskOutput{}, s.toolError("ask", err)
	}

	return nil, AskOutput{
		Answer:     answer.Text,
		Standalone: answer.Question,
		Sources:    chunkOutputs(answer.Context),
	}, nil
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	chunks, err := s.ports.Chat.Retrieve(ctx, input.SessionID, input.Query, input.K)
	if err != nil {
		return nil, RetrieveOutput{}, s.toolError("retrieve", err)
	}

	return nil, RetrieveOutput{
		Chunks: chunkOutputs(chunks),
		Count:  len(chunks),
	}, nil
}

// handleCompare handles the compare_documents tool invocation.
func (s *Server) handleCompare(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CompareInput,
) (*mcp.CallToolResult, CompareOutput, error) {
	files, err := uploads.ReadFiles(input.ReferencePath, input.ActualPath)
	if err != nil {
		return nil, CompareOutput{}, s.toolError("compare_documents", err)
	}

	rows, err := s.ports.Comparison.CompareFiles(ctx, files[0], files[1])
	if err != nil {
		return nil, CompareOutput{}, s.toolError("compare_documents", err)
	}

	return nil, CompareOutput{Changes: rows}, nil
}

// handleListSessions handles the list_sessions tool invocation.
func (s *Server) handleListSessions(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListSessionsInput,
) (*mcp.CallToolResult, ListSessionsOutput, error) {
	summaries, err := s.ports.Sessions.List(ctx)
	if err != nil {
		return nil, ListSessionsOutput{}, s.toolError("list_sessions", err)
	}

	output := ListSessionsOutput{Sessions: make([]SessionOutput, len(summaries))}
	for i := range summaries {
		output.Sessions[i] = sessionOutput(summaries[i])
	}

	return nil, output, nil
}

func chunkOutputs(chunks []domain.RetrievedChunk) []ChunkOutput {
	out := make([]ChunkOutput, len(chunks))
	for i := range chunks {
		out[i] = ChunkOutput{
			Source:   chunks[i].Metadata.Source,
			Position: chunks[i].Metadata.Position,
			Score:    chunks[i].Score,
			Text:     chunks[i].Text,
		}
	}
	return out
}

func sessionOutput(summary driving.SessionSummary) SessionOutput {
	out := SessionOutput{
		ID:        summary.Session.ID,
		CreatedAt: summary.Session.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Files:     make([]string, len(summary.Files)),
	}
	for i := range summary.Files {
		out.Files[i] = summary.Files[i].OriginalName
	}
	return out
}

// toolError logs a failed tool call and adds a retry hint for transient failures.
func (s *Server) toolError(tool string, err error) error {
	s.ports.Log.Warn("MCP tool %s failed: %v", tool, err)
	if domain.IsRetryable(err) {
		return fmt.Errorf("%w (temporary, retry later)", err)
	}
	if errors.Is(err, domain.ErrRetrieverNotFound) {
		return fmt.Errorf("%w (ingest files into the session first)", err)
	}
	return err
}
