// Package textdoc builds normalised documents for the format normalisers.
package textdoc

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

// New builds a Document from raw input and its extracted text.
// Raw metadata is copied and annotated with the MIME type and format.
func New(raw *domain.RawDocument, title, content, format string) domain.Document {
	meta := make(map[string]any, len(raw.Metadata)+2)
	for k, v := range raw.Metadata {
		meta[k] = v
	}
	meta["mime_type"] = raw.MIMEType
	meta["format"] = format

	if title == "" {
		title = Title(raw)
	}

	return domain.Document{
		ID:        uuid.New().String(),
		SourceID:  raw.SourceID,
		URI:       raw.URI,
		Title:     title,
		Content:   content,
		Metadata:  meta,
		CreatedAt: time.Now(),
	}
}

// Title returns Metadata["title"] when set, otherwise a title derived from the URI.
func Title(raw *domain.RawDocument) string {
	if t, ok := raw.Metadata["title"].(string); ok && t != "" {
		return t
	}
	name := filepath.Base(raw.URI)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}
