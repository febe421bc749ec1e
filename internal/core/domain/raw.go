package domain

// RawDocument represents opaque bytes read from session storage.
// It is the extraction input before normalisation.
type RawDocument struct {
	// SourceID is the session that owns the file.
	SourceID string

	// URI is the stored filename or path.
	URI string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Metadata contains caller-supplied key-value pairs such as the original filename.
	Metadata map[string]any
}
