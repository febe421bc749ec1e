// Package domain defines the core business entities for docportal.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Session: One user interaction with its storage and index namespace
//   - Document: Extracted text of an uploaded file
//   - Chunk: A bounded window of a document, keyed by its Fingerprint
//   - IndexRecord: fingerprint -> embedding, text and provenance
//   - Turn: One entry of a session's chat history
//   - ChangeRow: One row of a document comparison
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
