// Package mcp provides an MCP (Model Context Protocol) server adapter for docportal.
// It lets AI assistants ingest documents, ask questions about them and compare them.
package mcp

import "errors"

var (
	// ErrMissingIngestionService is returned when the ingestion service is not provided.
	ErrMissingIngestionService = errors.New("mcp: ingestion service is required")

	// ErrMissingChatService is returned when the chat service is not provided.
	ErrMissingChatService = errors.New("mcp: chat service is required")
)
