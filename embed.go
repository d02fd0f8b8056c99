package docsearch

import "context"

// Embedder turns texts into embedding vectors.
type Embedder interface {
	// EmbedTexts returns one vector per text, in input order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedding is one vector returned by an embedding backend, tagged with the
// position of its input text in the request.
type Embedding struct {
	Index  int
	Vector []float32
}

// EmbeddingBackend performs a single embedding request against an upstream
// API. Results may come back in any order. Implementations classify
// failures with ERATELIMIT or EUNAVAILABLE when a retry could succeed.
type EmbeddingBackend interface {
	EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error)
}
