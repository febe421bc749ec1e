package domain

import "time"

// Fingerprint is a deterministic digest of normalised chunk text.
// It is the sole dedup key for index records.
type Fingerprint string

// String returns the hex digest.
func (f Fingerprint) String() string {
	return string(f)
}

// Short returns the first 12 characters, for logs.
func (f Fingerprint) Short() string {
	if len(f) <= 12 {
		return string(f)
	}
	return string(f[:12])
}

// RecordMetadata is the provenance stored with each index record.
type RecordMetadata struct {
	// Source is the original filename of the document.
	Source string `json:"source"`

	// StoredName is the file's unique name inside the session directory.
	StoredName string `json:"stored_name,omitempty"`

	// DocumentID links to the extracted document.
	DocumentID string `json:"document_id,omitempty"`

	// Position is the chunk ordinal within its document.
	Position int `json:"position"`

	// IngestedAt is when the record was inserted.
	IngestedAt time.Time `json:"ingested_at"`
}

// IndexRecord maps a fingerprint to its vector, text and provenance.
type IndexRecord struct {
	Fingerprint Fingerprint
	Embedding   []float32
	Text        string
	Metadata    RecordMetadata
}

// AddResult reports the outcome of an add-if-absent batch.
type AddResult struct {
	// Inserted is the number of new records.
	Inserted int

	// Skipped is the number of chunks whose fingerprint was already present.
	Skipped int
}

// Total returns Inserted + Skipped.
func (r AddResult) Total() int {
	return r.Inserted + r.Skipped
}

// RetrievedChunk is one similarity search hit.
type RetrievedChunk struct {
	Text     string
	Score    float64
	Metadata RecordMetadata
}

// SourceEntry is the bookkeeping kept per fingerprint.
type SourceEntry struct {
	Filename   string    `json:"filename"`
	IngestedAt time.Time `json:"ingested_at"`
}

// IngestionEntry records one completed ingestion batch.
type IngestionEntry struct {
	At       time.Time `json:"at"`
	Files    []string  `json:"files"`
	Inserted int       `json:"inserted"`
	Skipped  int       `json:"skipped"`
}

// IndexMetadata is the sidecar bookkeeping persisted with an index.
type IndexMetadata struct {
	Namespace  string                      `json:"namespace"`
	CreatedAt  time.Time                   `json:"created_at"`
	UpdatedAt  time.Time                   `json:"updated_at"`
	Dimensions int                         `json:"dimensions"`
	Count      int                         `json:"count"`
	Sources    map[Fingerprint]SourceEntry `json:"sources"`
	Ingestions []IngestionEntry            `json:"ingestions,omitempty"`
}

// Filenames returns the distinct source filenames, in first-seen ingestion order.
func (m IndexMetadata) Filenames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, entry := range m.Ingestions {
		for _, f := range entry.Files {
			if !seen[f] {
				seen[f] = true
				names = append(names, f)
			}
		}
	}
	return names
}
