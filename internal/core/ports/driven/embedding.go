package driven

import "context"

// EmbeddingService turns text into vectors for the similarity index.
// Ollama, OpenAI and Gemini have adapters.
type EmbeddingService interface {
	// Embed returns the vector for one text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector length. An index built with one embedding
	// model cannot be searched with vectors of another length.
	Dimensions() int

	// ModelName identifies the model; it is recorded with each index.
	ModelName() string

	// Ping checks the provider answers without embedding anything.
	Ping(ctx context.Context) error

	Close() error
}
