// Package readability extracts the main article of a page with
// go-readability.
package readability

import (
	"net/url"
	"strings"

	"github.com/fwojciec/docsearch"
	"github.com/go-shiori/go-readability"
)

// Ensure Extractor implements docsearch.Extractor at compile time.
var _ docsearch.Extractor = (*Extractor)(nil)

// Extractor wraps go-readability to extract main content from HTML.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract processes rendered HTML and returns the main article.
// pageURL is used to resolve relative links and may be empty.
func (e *Extractor) Extract(rawHTML, pageURL string) (*docsearch.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, docsearch.Errorf(docsearch.ENOCONTENT, "empty HTML input")
	}

	var base *url.URL
	if pageURL != "" {
		u, err := url.Parse(pageURL)
		if err != nil {
			return nil, docsearch.Errorf(docsearch.EINVALID, "invalid page URL %q", pageURL)
		}
		base = u
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), base)
	if err != nil {
		return nil, docsearch.Errorf(docsearch.ENOCONTENT, "no readable content: %v", err)
	}
	if strings.TrimSpace(article.TextContent) == "" {
		return nil, docsearch.Errorf(docsearch.ENOCONTENT, "no readable content")
	}

	return &docsearch.ExtractResult{
		Title:       article.Title,
		ContentHTML: article.Content,
	}, nil
}
