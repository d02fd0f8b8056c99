// Package openai implements docsearch.EmbeddingBackend against any
// OpenAI-compatible embeddings endpoint, OpenRouter included.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fwojciec/docsearch"
)

// Defaults for OpenRouter.
const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "openai/text-embedding-3-small"
)

var _ docsearch.EmbeddingBackend = (*Backend)(nil)

// Backend posts batches to {BaseURL}/embeddings.
type Backend struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int // zero leaves the model default
	HTTPClient *http.Client
}

// NewBackend returns a Backend with OpenRouter defaults.
func NewBackend(apiKey string) *Backend {
	return &Backend{
		APIKey:     apiKey,
		BaseURL:    DefaultBaseURL,
		Model:      DefaultModel,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type embedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// EmbedBatch sends one embeddings request. HTTP 429 is reported as
// ERATELIMIT; transport failures and gateway errors (502, 503, 504) as
// EUNAVAILABLE.
func (b *Backend) EmbedBatch(ctx context.Context, texts []string) ([]docsearch.Embedding, error) {
	if b.APIKey == "" {
		return nil, docsearch.Errorf(docsearch.EINVALID, "embedding API key unset")
	}

	body, err := json.Marshal(embedRequest{Model: b.Model, Input: texts, Dimensions: b.Dimensions})
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(b.BaseURL, "/") + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+b.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := b.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, docsearch.Errorf(docsearch.EUNAVAILABLE, "embeddings request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", err)
	}

	res := make([]docsearch.Embedding, len(out.Data))
	for i, d := range out.Data {
		res[i] = docsearch.Embedding{Index: d.Index, Vector: d.Embedding}
	}
	return res, nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(raw))
	var e errorResponse
	if json.Unmarshal(raw, &e) == nil && e.Error.Message != "" {
		msg = e.Error.Message
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return docsearch.Errorf(docsearch.ERATELIMIT, "embeddings rate limited: %s", msg)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return docsearch.Errorf(docsearch.EUNAVAILABLE, "embeddings unavailable (HTTP %d): %s", resp.StatusCode, msg)
	case http.StatusBadRequest:
		return docsearch.Errorf(docsearch.EINVALID, "embeddings rejected: %s", msg)
	}
	return fmt.Errorf("embeddings HTTP %d: %s", resp.StatusCode, msg)
}
