// Package tools exposes the documentation operations offered to tool
// callers: starting a crawl, listing sources, reading a page and
// searching. Inputs are validated here before the core services run.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/docsearch"
	"github.com/google/uuid"
)

// MaxSearchLimit is the largest result count a search may request.
const MaxSearchLimit = 20

// Server implements the tool operations on top of the core services.
type Server struct {
	Crawler docsearch.CrawlService
	Jobs    docsearch.JobService
	Sources docsearch.SourceService
	Pages   docsearch.PageService
	Search  docsearch.SearchService
	Logger  *slog.Logger
}

// FetchDocumentationInput holds fetch_documentation arguments.
type FetchDocumentationInput struct {
	URL             string   `json:"url"`
	Name            string   `json:"name"`
	MaxPages        *int     `json:"maxPages,omitempty"`
	IncludePatterns []string `json:"includePatterns,omitempty"`
	ExcludePatterns []string `json:"excludePatterns,omitempty"`
}

// FetchDocumentationOutput reports the crawl job that was started or is
// already running.
type FetchDocumentationOutput struct {
	JobID          string              `json:"jobId"`
	Message        string              `json:"message"`
	Status         docsearch.JobStatus `json:"status"`
	TotalPages     int                 `json:"totalPages"`
	ProcessedPages int                 `json:"processedPages"`
}

// FetchDocumentation starts a crawl of in.URL and returns its job.
func (s *Server) FetchDocumentation(ctx context.Context, in FetchDocumentationInput) (*FetchDocumentationOutput, error) {
	if err := validateHTTPURL(in.URL); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, docsearch.Errorf(docsearch.EINVALID, "name required")
	}
	req := docsearch.CrawlRequest{
		URL:     in.URL,
		Name:    in.Name,
		Include: in.IncludePatterns,
		Exclude: in.ExcludePatterns,
	}
	if in.MaxPages != nil {
		if *in.MaxPages < 1 || *in.MaxPages > docsearch.MaxMaxPages {
			return nil, docsearch.Errorf(docsearch.EINVALID, "maxPages must be between 1 and %d", docsearch.MaxMaxPages)
		}
		req.MaxPages = *in.MaxPages
	}

	jobID, err := s.Crawler.StartCrawl(ctx, req)
	if err != nil {
		s.logger().Error("fetch_documentation failed", "url", in.URL, "error", err)
		return nil, err
	}

	out := &FetchDocumentationOutput{
		JobID:   jobID,
		Message: fmt.Sprintf("Crawl started for %q (%s)", in.Name, in.URL),
		Status:  docsearch.JobPending,
	}
	job, err := s.Jobs.FindJobByID(ctx, jobID)
	switch {
	case err == nil:
		out.Status = job.Status
		out.TotalPages = job.TotalPages
		out.ProcessedPages = job.ProcessedPages
	case docsearch.ErrorCode(err) != docsearch.ENOTFOUND:
		s.logger().Warn("read job status failed", "job", jobID, "error", err)
	}
	return out, nil
}

// CrawlProgress is the live job state of a source being crawled.
type CrawlProgress struct {
	TotalPages     int `json:"totalPages"`
	ProcessedPages int `json:"processedPages"`
	FailedPages    int `json:"failedPages"`
}

// SourceSummary describes one source in list_sources output.
type SourceSummary struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	BaseURL       string                 `json:"baseUrl"`
	Status        docsearch.SourceStatus `json:"status"`
	PageCount     int                    `json:"pageCount"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
	CrawlProgress *CrawlProgress         `json:"crawlProgress,omitempty"`
}

// ListSources returns every source ordered by name. Sources that are
// crawling carry their job progress while the job can still be read.
func (s *Server) ListSources(ctx context.Context) ([]*SourceSummary, error) {
	sources, err := s.Sources.FindSources(ctx)
	if err != nil {
		s.logger().Error("list_sources failed", "error", err)
		return nil, err
	}

	out := make([]*SourceSummary, 0, len(sources))
	for _, src := range sources {
		summary := &SourceSummary{
			ID:        src.ID,
			Name:      src.Name,
			BaseURL:   src.BaseURL,
			Status:    src.Status,
			PageCount: src.PageCount,
			CreatedAt: src.CreatedAt,
			UpdatedAt: src.UpdatedAt,
		}
		if src.Status == docsearch.SourceCrawling && src.JobID != "" {
			job, err := s.Jobs.FindJobByID(ctx, src.JobID)
			if err == nil {
				summary.CrawlProgress = &CrawlProgress{
					TotalPages:     job.TotalPages,
					ProcessedPages: job.ProcessedPages,
					FailedPages:    job.FailedPages,
				}
			} else if docsearch.ErrorCode(err) != docsearch.ENOTFOUND {
				s.logger().Warn("read job progress failed", "source", src.ID, "job", src.JobID, "error", err)
			}
		}
		out = append(out, summary)
	}
	return out, nil
}

// GetPageInput identifies a page by URL or ID. ID wins when both are set.
type GetPageInput struct {
	URL    string `json:"url,omitempty"`
	PageID string `json:"pageId,omitempty"`
}

// GetPage returns a stored page's markdown prefixed with its header.
// Returns ENOTFOUND when no page matches.
func (s *Server) GetPage(ctx context.Context, in GetPageInput) (string, error) {
	var (
		page *docsearch.Page
		err  error
	)
	switch {
	case in.PageID != "":
		if _, perr := uuid.Parse(in.PageID); perr != nil {
			return "", docsearch.Errorf(docsearch.EINVALID, "pageId must be a UUID")
		}
		page, err = s.Pages.FindPageByID(ctx, in.PageID)
	case in.URL != "":
		if verr := validateHTTPURL(in.URL); verr != nil {
			return "", verr
		}
		page, err = s.Pages.FindPageByURL(ctx, in.URL)
	default:
		return "", docsearch.Errorf(docsearch.EINVALID, "either url or pageId must be provided")
	}
	if err != nil {
		if docsearch.ErrorCode(err) != docsearch.ENOTFOUND {
			s.logger().Error("get_page failed", "url", in.URL, "page", in.PageID, "error", err)
		}
		return "", err
	}

	source, err := s.Sources.FindSourceByID(ctx, page.SourceID)
	if err != nil {
		s.logger().Error("get_page source lookup failed", "page", page.ID, "source", page.SourceID, "error", err)
		return "", err
	}
	return docsearch.FormatPage(page, source.Name), nil
}

// SearchInput holds search_documentation arguments.
type SearchInput struct {
	Query     string   `json:"query"`
	SourceID  string   `json:"sourceId,omitempty"`
	Limit     *int     `json:"limit,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// SearchHit is one search_documentation result.
type SearchHit struct {
	Source     string  `json:"source"`
	PageTitle  string  `json:"pageTitle"`
	PageURL    string  `json:"pageUrl"`
	Heading    string  `json:"heading"`
	Similarity float64 `json:"similarity"`
	Content    string  `json:"content"`
}

// SearchDocumentation runs hybrid search. An empty result is not an error.
func (s *Server) SearchDocumentation(ctx context.Context, in SearchInput) ([]*SearchHit, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, docsearch.Errorf(docsearch.EINVALID, "query required")
	}
	opts := docsearch.SearchOptions{SourceID: in.SourceID, Threshold: in.Threshold}
	if in.SourceID != "" {
		if _, err := uuid.Parse(in.SourceID); err != nil {
			return nil, docsearch.Errorf(docsearch.EINVALID, "sourceId must be a UUID")
		}
	}
	if in.Limit != nil {
		if *in.Limit < 1 || *in.Limit > MaxSearchLimit {
			return nil, docsearch.Errorf(docsearch.EINVALID, "limit must be between 1 and %d", MaxSearchLimit)
		}
		opts.Limit = *in.Limit
	}
	if in.Threshold != nil && (*in.Threshold < 0 || *in.Threshold > 1) {
		return nil, docsearch.Errorf(docsearch.EINVALID, "threshold must be between 0 and 1")
	}

	results, err := s.Search.Search(ctx, in.Query, opts)
	if err != nil {
		s.logger().Error("search_documentation failed", "query", in.Query, "error", err)
		return nil, err
	}

	hits := make([]*SearchHit, len(results))
	for i, r := range results {
		hits[i] = &SearchHit{
			Source:     r.SourceName,
			PageTitle:  r.PageTitle,
			PageURL:    r.PageURL,
			Heading:    r.Heading,
			Similarity: r.Similarity,
			Content:    r.Content,
		}
	}
	return hits, nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return docsearch.Errorf(docsearch.EINVALID, "url must be an absolute http(s) URL")
	}
	return nil
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}
