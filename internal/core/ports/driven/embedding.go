package driven

import "context"

// EmbeddingService generates embedding vectors for document text.
// The engine core never calls this; it exists for the CLI ingest path,
// which must supply precomputed embeddings to the engine the same way a
// production ingestion pipeline would.
type EmbeddingService interface {
	// Embed generates an embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// ModelName returns the embedding model identifier.
	ModelName() string

	// Ping verifies the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
