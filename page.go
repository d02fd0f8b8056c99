package docsearch

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Page represents one stored documentation page derived from a crawled URL.
type Page struct {
	ID          string    `json:"id"`
	SourceID    string    `json:"sourceId"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Markdown    string    `json:"markdown"`
	ContentHash string    `json:"contentHash"`
	WordCount   int       `json:"wordCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Validate returns an error if the page contains invalid fields.
func (p *Page) Validate() error {
	if p.SourceID == "" {
		return Errorf(EINVALID, "page source ID required")
	}
	if p.URL == "" {
		return Errorf(EINVALID, "page URL required")
	}
	if p.ContentHash == "" {
		return Errorf(EINVALID, "page content hash required")
	}
	return nil
}

// UpsertResult reports what UpsertPage did with a page.
type UpsertResult int

const (
	// UpsertCreated means the page and its chunks were inserted.
	UpsertCreated UpsertResult = iota
	// UpsertUpdated means the page was rewritten and its chunk set replaced.
	UpsertUpdated
	// UpsertUnchanged means the stored hash matched and nothing was written.
	UpsertUnchanged
)

func (r UpsertResult) String() string {
	switch r {
	case UpsertCreated:
		return "created"
	case UpsertUpdated:
		return "updated"
	case UpsertUnchanged:
		return "unchanged"
	}
	return fmt.Sprintf("UpsertResult(%d)", int(r))
}

// PageService represents a service for managing pages and their chunks.
type PageService interface {
	// FindPageByID retrieves a page by ID.
	// Returns ENOTFOUND if page does not exist.
	FindPageByID(ctx context.Context, id string) (*Page, error)

	// FindPageByURL retrieves a page by URL.
	// Returns ENOTFOUND if page does not exist.
	FindPageByURL(ctx context.Context, url string) (*Page, error)

	// UpsertPage stores a page keyed by URL together with its chunks.
	// A page whose content hash matches the stored one is left untouched.
	// Otherwise the page row and its whole chunk set are written in one
	// transaction, so readers never see old and new chunks mixed.
	UpsertPage(ctx context.Context, page *Page, chunks []*Chunk) (UpsertResult, error)
}

// FormatPage renders a stored page for display, prefixed with a header
// carrying its title, source name, URL and word count.
func FormatPage(page *Page, sourceName string) string {
	title := page.Title
	if title == "" {
		title = "Untitled"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "Source: %s | URL: %s | Words: %d\n\n", sourceName, page.URL, page.WordCount)
	sb.WriteString("---\n\n")
	sb.WriteString(page.Markdown)
	return sb.String()
}
