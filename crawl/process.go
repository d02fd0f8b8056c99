package crawl

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/docsearch"
)

// ComputeHash computes a hash of the content using xxhash.
func ComputeHash(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}

// processPage pushes one URL through fetch, extraction, chunking,
// embedding and storage, retrying transient failures. Pages with no
// readable content fail without retry.
func (c *Crawler) processPage(ctx context.Context, fetcher docsearch.Fetcher, run Run, pageURL string, log *slog.Logger) error {
	log = log.With("page", pageURL)

	delays := c.RetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}

	result, err := Retry(ctx, delays,
		func(err error) bool { return docsearch.ErrorCode(err) != docsearch.ENOCONTENT },
		func(attempt int, err error) {
			log.Warn("page processing failed, retrying", "attempt", attempt, "error", err)
		},
		func(ctx context.Context) (docsearch.UpsertResult, error) {
			return c.processOnce(ctx, fetcher, run, pageURL)
		},
	)
	if err != nil {
		log.Error("page failed", "error", err)
		return err
	}

	log.Debug("page processed", "result", result.String())
	return nil
}

func (c *Crawler) processOnce(ctx context.Context, fetcher docsearch.Fetcher, run Run, pageURL string) (docsearch.UpsertResult, error) {
	if err := c.waitForHost(ctx, pageURL); err != nil {
		return 0, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.pageTimeout())
	html, err := fetcher.Fetch(fetchCtx, pageURL)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}

	extracted, err := c.Extractor.Extract(html, pageURL)
	if err != nil {
		return 0, fmt.Errorf("extract: %w", err)
	}

	markdown, err := c.Converter.Convert(extracted.ContentHTML)
	if err != nil {
		return 0, fmt.Errorf("convert: %w", err)
	}
	hash := ComputeHash(markdown)

	existing, err := c.Pages.FindPageByURL(ctx, pageURL)
	switch {
	case err == nil && existing.ContentHash == hash:
		return docsearch.UpsertUnchanged, nil
	case err != nil && docsearch.ErrorCode(err) != docsearch.ENOTFOUND:
		return 0, fmt.Errorf("find page: %w", err)
	}

	chunks := docsearch.ChunkMarkdown(markdown)
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, ch := range chunks {
			texts[i] = ch.Content
		}
		vectors, err := c.Embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed: %w", err)
		}
		if len(vectors) != len(chunks) {
			return 0, docsearch.Errorf(docsearch.EINTERNAL, "got %d embeddings for %d chunks", len(vectors), len(chunks))
		}
		for i, ch := range chunks {
			ch.Embedding = vectors[i]
		}
	}

	page := &docsearch.Page{
		SourceID:    run.SourceID,
		URL:         pageURL,
		Title:       extracted.Title,
		Markdown:    markdown,
		ContentHash: hash,
		WordCount:   docsearch.CountWords(markdown),
	}
	result, err := c.Pages.UpsertPage(ctx, page, chunks)
	if err != nil {
		return 0, fmt.Errorf("store page: %w", err)
	}
	return result, nil
}
