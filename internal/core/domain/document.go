package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// FileType is one of the supported document formats.
type FileType string

// Supported file types.
const (
	FileTypePDF      FileType = "pdf"
	FileTypeText     FileType = "txt"
	FileTypeDOCX     FileType = "docx"
	FileTypeMarkdown FileType = "md"
)

// SupportedFileTypes returns the file types accepted for ingestion.
func SupportedFileTypes() []FileType {
	return []FileType{FileTypePDF, FileTypeText, FileTypeDOCX, FileTypeMarkdown}
}

// DetectFileType maps a filename extension to a supported file type.
// The second return value is false for unsupported extensions.
func DetectFileType(filename string) (FileType, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch FileType(ext) {
	case FileTypePDF, FileTypeText, FileTypeDOCX, FileTypeMarkdown:
		return FileType(ext), true
	case "markdown":
		return FileTypeMarkdown, true
	default:
		return "", false
	}
}

// MIMEType returns the MIME type used to select a normaliser.
func (t FileType) MIMEType() string {
	switch t {
	case FileTypePDF:
		return "application/pdf"
	case FileTypeDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FileTypeMarkdown:
		return "text/markdown"
	case FileTypeText:
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

// Extension returns the canonical extension including the dot.
func (t FileType) Extension() string {
	return "." + string(t)
}

// UploadedFile is a file handed to the system by a caller.
type UploadedFile struct {
	// Name is the original filename, used for type detection and provenance.
	Name string

	// Content is the raw byte payload.
	Content []byte
}

// StoredFile is an uploaded file after it was persisted under a session.
type StoredFile struct {
	// SessionID is the owning session.
	SessionID string

	// OriginalName is the filename supplied by the caller.
	OriginalName string

	// StoredName is the unique name inside the session directory.
	StoredName string

	// Path is the storage location.
	Path string

	// Type is the detected file type.
	Type FileType

	// Size is the payload size in bytes.
	Size int64

	// CreatedAt is when the file was stored.
	CreatedAt time.Time
}

// Document represents an extracted document with metadata.
// It is the canonical representation after normalisation.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// SourceID is the session that produced this document.
	SourceID string

	// URI is the original location (file path or stored name).
	URI string

	// Title is the human-readable title.
	Title string

	// Content is the full text content after normalisation.
	// This is the complete document text before chunking.
	Content string

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// CreatedAt is when the document was extracted.
	CreatedAt time.Time
}

// Chunk represents a bounded window of a document's text.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Fingerprint is the dedup key of Content.
	Fingerprint Fingerprint

	// Embedding is the vector representation for semantic search.
	Embedding []float32

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}
