// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Normaliser / NormaliserRegistry: Extracts plain text from uploaded files
//   - PostProcessor / PostProcessorPipeline: Splits and fingerprints documents
//   - EmbeddingService: Turns chunk text into vectors
//   - LLMService: Question rewriting, answering and structured extraction
//   - IndexStore / Index: Persisted vector index per namespace
//   - BlobStore: Session-scoped file storage
//   - SessionCatalog: Session and stored file bookkeeping
//   - HistoryStore: Per-session chat history
//   - ConfigStore: Application configuration
//   - PromptStore: Editable prompt templates
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
