package docsearch

import "context"

// Browser connects to a rendering backend shared by all workers of a crawl.
type Browser interface {
	// Connect opens a session. The returned Fetcher must be closed.
	Connect(ctx context.Context) (Fetcher, error)
}

// Fetcher retrieves rendered HTML from URLs.
// Each call uses its own page scope so callers may fetch concurrently.
type Fetcher interface {
	// Fetch navigates to the URL, waits for the network to go idle,
	// and returns the rendered HTML.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (html string, err error)

	// FetchLinks renders the URL and returns the absolute href of every
	// anchor on the page in document order.
	FetchLinks(ctx context.Context, url string) ([]string, error)

	// Close releases browser resources.
	// Must be called when the Fetcher is no longer needed.
	Close() error
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	Wait(ctx context.Context, domain string) error
}
