// Package http provides an HTTP-based implementation of docsearch.Browser
// for documentation sites that don't require JavaScript rendering.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fwojciec/docsearch"
	"github.com/fwojciec/docsearch/goquery"
)

// DefaultFetchTimeout is the default timeout for HTTP requests.
const DefaultFetchTimeout = 30 * time.Second

// maxBodyBytes caps the size of a fetched page.
const maxBodyBytes = 10 << 20

// Ensure types implement their domain interfaces at compile time.
var (
	_ docsearch.Browser = (*Browser)(nil)
	_ docsearch.Fetcher = (*Fetcher)(nil)
)

// Browser hands out HTTP fetchers. Connecting never fails.
type Browser struct {
	Options []Option
}

// Connect returns a new Fetcher configured with the browser's options.
func (b *Browser) Connect(_ context.Context) (docsearch.Fetcher, error) {
	return NewFetcher(b.Options...), nil
}

// Fetcher retrieves HTML content from URLs using HTTP requests.
// Unlike rod.Fetcher, this does not execute JavaScript and is suitable
// for static sites only.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the timeout for HTTP requests.
// Defaults to DefaultFetchTimeout if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:   DefaultFetchTimeout,
		userAgent: "docsearch/1.0",
	}
	for _, opt := range opts {
		opt(f)
	}

	f.client = &http.Client{
		Timeout: f.timeout,
	}

	return f
}

// Fetch retrieves the HTML content from the given URL.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", docsearch.Errorf(docsearch.EINVALID, "invalid URL %q", url)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", docsearch.Errorf(docsearch.ERATELIMIT, "HTTP %d for %s", resp.StatusCode, url)
	case resp.StatusCode >= 500:
		return "", docsearch.Errorf(docsearch.EUNAVAILABLE, "HTTP %d for %s", resp.StatusCode, url)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}

	return string(body), nil
}

// FetchLinks fetches the URL and returns every anchor href resolved
// against it.
func (f *Fetcher) FetchLinks(ctx context.Context, url string) ([]string, error) {
	html, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return goquery.ExtractHrefs(html, url)
}

// Close releases resources. For HTTP fetcher this is a no-op since
// http.Client doesn't require explicit cleanup.
func (f *Fetcher) Close() error {
	return nil
}
