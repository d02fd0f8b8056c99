// Package slog provides logging decorators for docsearch services.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docsearch"
)

// Ensure the decorators implement their interfaces.
var (
	_ docsearch.Browser = (*LoggingBrowser)(nil)
	_ docsearch.Fetcher = (*LoggingFetcher)(nil)
)

// LoggingBrowser wraps a Browser so every session it opens is logged.
type LoggingBrowser struct {
	next   docsearch.Browser
	logger *slog.Logger
}

// NewLoggingBrowser creates a new LoggingBrowser.
func NewLoggingBrowser(next docsearch.Browser, logger *slog.Logger) *LoggingBrowser {
	return &LoggingBrowser{next: next, logger: logger}
}

// Connect logs the connection attempt and wraps the returned Fetcher.
func (b *LoggingBrowser) Connect(ctx context.Context) (f docsearch.Fetcher, err error) {
	defer func(begin time.Time) {
		b.logger.Info("browser connect",
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())

	inner, err := b.next.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return NewLoggingFetcher(inner, b.logger), nil
}

// LoggingFetcher wraps a Fetcher with debug logging.
type LoggingFetcher struct {
	next   docsearch.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next docsearch.Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch logs the URL being fetched and delegates to the wrapped fetcher.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string) (html string, err error) {
	defer func(begin time.Time) {
		f.logger.Debug("fetch",
			"url", url,
			"bytes", len(html),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.Fetch(ctx, url)
}

// FetchLinks logs link collection on the URL.
func (f *LoggingFetcher) FetchLinks(ctx context.Context, url string) (links []string, err error) {
	defer func(begin time.Time) {
		f.logger.Info("fetch links",
			"url", url,
			"count", len(links),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.FetchLinks(ctx, url)
}

// Close delegates to the wrapped fetcher.
func (f *LoggingFetcher) Close() error {
	return f.next.Close()
}
