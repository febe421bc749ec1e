package mcp

import (
	"github.com/custodia-labs/docportal/internal/core/ports/driving"
	"github.com/custodia-labs/docportal/internal/logger"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Ingestion turns files into session indexes.
	Ingestion driving.IngestionService

	// Chat answers questions and runs plain retrieval.
	Chat driving.ChatService

	// Comparison compares two PDFs. Optional.
	Comparison driving.ComparisonService

	// Sessions lists sessions. Optional.
	Sessions driving.SessionService

	// Log receives tool failures. Optional.
	Log *logger.Logger
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Ingestion == nil {
		return ErrMissingIngestionService
	}
	if p.Chat == nil {
		return ErrMissingChatService
	}
	return nil
}
