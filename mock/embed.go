package mock

import (
	"context"

	"github.com/fwojciec/docsearch"
)

var (
	_ docsearch.Embedder         = (*Embedder)(nil)
	_ docsearch.EmbeddingBackend = (*EmbeddingBackend)(nil)
)

// Embedder is a mock implementation of docsearch.Embedder.
type Embedder struct {
	EmbedTextsFn func(ctx context.Context, texts []string) ([][]float32, error)
}

func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return e.EmbedTextsFn(ctx, texts)
}

// EmbeddingBackend is a mock implementation of docsearch.EmbeddingBackend.
type EmbeddingBackend struct {
	EmbedBatchFn func(ctx context.Context, texts []string) ([]docsearch.Embedding, error)
}

func (b *EmbeddingBackend) EmbedBatch(ctx context.Context, texts []string) ([]docsearch.Embedding, error) {
	return b.EmbedBatchFn(ctx, texts)
}
