// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Ingestion stores uploads, extracts and splits them, and adds the chunk
// embeddings to the session's index under a per-namespace writer lock.
// Retrieval and the conversational orchestrator read the last saved
// snapshot of that index. Comparison and analysis share the structured
// output path, which repairs one malformed model reply before failing.
package services
