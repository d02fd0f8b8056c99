// Package embedding turns chunk texts into vectors through an upstream
// embedding backend, batching requests and retrying transient failures.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/fwojciec/docsearch"
)

// Client defaults.
const (
	DefaultBatchSize   = 100
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

var _ docsearch.Embedder = (*Client)(nil)

// Client embeds texts in batches. Batches are sent one after another and
// each batch retries rate-limit and connectivity errors with exponential
// backoff. Rate-limit errors back off twice as long as other retryable
// errors. Client holds no state between calls and is safe for concurrent
// use.
type Client struct {
	Backend     docsearch.EmbeddingBackend
	BatchSize   int
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *slog.Logger

	// Sleep waits between attempts. Nil means a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewClient returns a Client with default batching and retry settings.
func NewClient(backend docsearch.EmbeddingBackend, logger *slog.Logger) *Client {
	return &Client{
		Backend:     backend,
		BatchSize:   DefaultBatchSize,
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Logger:      logger,
	}
}

// EmbedTexts returns one vector per text in input order.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	size := c.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		vecs, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// EmbedText embeds a single text, such as a search query.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *Client) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		res, err := c.Backend.EmbedBatch(ctx, batch)
		if err == nil {
			return ordered(res, len(batch))
		}
		lastErr = err

		if !docsearch.IsRetryable(err) {
			return nil, err
		}
		if attempt == attempts-1 {
			break
		}

		delay := c.backoff(err, attempt)
		c.logger().Warn("embedding retry",
			"attempt", attempt+1,
			"texts", len(batch),
			"delay", delay,
			"err", err,
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

// backoff returns the wait before the attempt following attempt (0-based).
func (c *Client) backoff(err error, attempt int) time.Duration {
	base := c.BaseDelay
	if docsearch.ErrorCode(err) == docsearch.ERATELIMIT {
		return base << (attempt + 1)
	}
	return base << attempt
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// ordered sorts backend results by input index and checks that there is
// exactly one vector per input.
func ordered(res []docsearch.Embedding, n int) ([][]float32, error) {
	if len(res) != n {
		return nil, docsearch.Errorf(docsearch.EINTERNAL, "embedding backend returned %d vectors for %d texts", len(res), n)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Index < res[j].Index })

	out := make([][]float32, n)
	for i, e := range res {
		if e.Index != i {
			return nil, docsearch.Errorf(docsearch.EINTERNAL, "embedding backend returned unexpected index %d", e.Index)
		}
		out[i] = e.Vector
	}
	return out, nil
}
