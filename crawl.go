package docsearch

import "context"

// Crawl defaults.
const (
	DefaultMaxPages    = 100
	DefaultConcurrency = 3
	MaxMaxPages        = 500
)

// CrawlRequest describes a documentation site to crawl.
type CrawlRequest struct {
	URL      string
	Name     string
	MaxPages int // zero means the crawler default
	Include  []string
	Exclude  []string
}

// Validate returns an error if the request contains invalid fields.
func (r *CrawlRequest) Validate() error {
	if r.URL == "" {
		return Errorf(EINVALID, "crawl URL required")
	}
	if r.Name == "" {
		return Errorf(EINVALID, "crawl name required")
	}
	if r.MaxPages < 0 || r.MaxPages > MaxMaxPages {
		return Errorf(EINVALID, "maxPages must be between 1 and %d", MaxMaxPages)
	}
	return nil
}

// CrawlService starts crawls of documentation sites.
type CrawlService interface {
	// StartCrawl begins crawling req.URL in the background and returns the
	// job id tracking it. If the site is already being crawled the running
	// job id is returned and no new work starts.
	StartCrawl(ctx context.Context, req CrawlRequest) (jobID string, err error)
}
