package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// The service must be deterministic for the same input and model so that
// chunk-id based idempotence stays meaningful at the content layer: the
// id does not depend on the vector, but downstream similarity does.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	// Failure aborts the whole batch; no partial result is returned.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
