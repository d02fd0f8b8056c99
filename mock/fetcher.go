package mock

import (
	"context"

	"github.com/fwojciec/docsearch"
)

var (
	_ docsearch.Browser       = (*Browser)(nil)
	_ docsearch.Fetcher       = (*Fetcher)(nil)
	_ docsearch.DomainLimiter = (*DomainLimiter)(nil)
)

// Browser is a mock implementation of docsearch.Browser.
type Browser struct {
	ConnectFn func(ctx context.Context) (docsearch.Fetcher, error)
}

func (b *Browser) Connect(ctx context.Context) (docsearch.Fetcher, error) {
	return b.ConnectFn(ctx)
}

// Fetcher is a mock implementation of docsearch.Fetcher.
type Fetcher struct {
	FetchFn      func(ctx context.Context, url string) (string, error)
	FetchLinksFn func(ctx context.Context, url string) ([]string, error)
	CloseFn      func() error
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	return f.FetchFn(ctx, url)
}

func (f *Fetcher) FetchLinks(ctx context.Context, url string) ([]string, error) {
	return f.FetchLinksFn(ctx, url)
}

func (f *Fetcher) Close() error {
	return f.CloseFn()
}

// DomainLimiter is a mock implementation of docsearch.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (l *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return l.WaitFn(ctx, domain)
}
