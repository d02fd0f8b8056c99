// Package gemini implements docsearch.EmbeddingBackend with the Google
// Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fwojciec/docsearch"
	"google.golang.org/genai"
)

// DefaultModel is the Gemini embedding model used when none is configured.
const DefaultModel = "gemini-embedding-001"

// Task types understood by the embedding API. Stored chunks and search
// queries are embedded asymmetrically.
const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

var _ docsearch.EmbeddingBackend = (*Backend)(nil)

// ContentEmbedder is the part of genai.Models used by Backend.
type ContentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Backend embeds batches through Models.EmbedContent. Gemini returns
// embeddings in request order, so each vector is tagged with its position.
type Backend struct {
	models     ContentEmbedder
	model      string
	dimensions int32

	// TaskType is sent with every request. Defaults to TaskRetrievalDocument.
	TaskType string
}

// NewBackend creates a Backend for embedding documents. A dimensions value
// of zero keeps the model default.
func NewBackend(models ContentEmbedder, model string, dimensions int) *Backend {
	if model == "" {
		model = DefaultModel
	}
	return &Backend{
		models:     models,
		model:      model,
		dimensions: int32(dimensions),
		TaskType:   TaskRetrievalDocument,
	}
}

// EmbedBatch embeds texts in a single request.
func (b *Backend) EmbedBatch(ctx context.Context, texts []string) ([]docsearch.Embedding, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	task := b.TaskType
	if task == "" {
		task = TaskRetrievalDocument
	}
	config := &genai.EmbedContentConfig{TaskType: task}
	if b.dimensions > 0 {
		config.OutputDimensionality = &b.dimensions
	}

	resp, err := b.models.EmbedContent(ctx, b.model, contents, config)
	if err != nil {
		return nil, classify(err)
	}
	if resp == nil {
		return nil, docsearch.Errorf(docsearch.EINTERNAL, "gemini returned nil result")
	}

	out := make([]docsearch.Embedding, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, docsearch.Errorf(docsearch.EINTERNAL, "gemini returned empty embedding at %d", i)
		}
		out[i] = docsearch.Embedding{Index: i, Vector: e.Values}
	}
	return out, nil
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return docsearch.Errorf(docsearch.EUNAVAILABLE, "gemini request: %v", err)
	}

	switch apiErr.Code {
	case http.StatusTooManyRequests:
		return docsearch.Errorf(docsearch.ERATELIMIT, "gemini rate limited: %s", apiErr.Message)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return docsearch.Errorf(docsearch.EUNAVAILABLE, "gemini unavailable: %s", apiErr.Message)
	case http.StatusBadRequest:
		return docsearch.Errorf(docsearch.EINVALID, "gemini rejected request: %s", apiErr.Message)
	}
	return fmt.Errorf("gemini embed: %w", err)
}
