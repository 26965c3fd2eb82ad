package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Note: this is separate from ChunkStore, which stores and searches
// vectors. EmbeddingService generates vectors; ChunkStore owns them.
// The same service must be used at ingestion and query time, otherwise
// similarity scores are meaningless.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Compatible APIs (Azure OpenAI, Ollama's OpenAI endpoint)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	// This is more efficient than calling Embed in a loop for large batches.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536).
	// This must match the chunk store's configured dimension.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
