package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations must be deterministic: the same text always yields the
// same vector. Indexing and retrieval share one instance so query vectors
// live in the same space as chunk vectors.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size. This is determined by
	// the model and must match the stored snapshot.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
