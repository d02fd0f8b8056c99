// Package crawl orchestrates documentation crawls. It discovers pages from
// a seed URL, feeds them through extraction, chunking, embedding and
// storage on a bounded worker pool, and reports progress to the job
// tracker.
package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/fwojciec/docsearch"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultPageTimeout bounds a single page navigation.
const DefaultPageTimeout = 30 * time.Second

var _ docsearch.CrawlService = (*Crawler)(nil)

// Crawler orchestrates the crawling of documentation sites.
type Crawler struct {
	Browser     docsearch.Browser
	Extractor   docsearch.Extractor
	Converter   docsearch.Converter
	Embedder    docsearch.Embedder
	Sources     docsearch.SourceService
	Pages       docsearch.PageService
	Jobs        docsearch.JobService
	RateLimiter docsearch.DomainLimiter // optional
	Supervisor  *Supervisor
	Logger      *slog.Logger

	Concurrency   int
	MaxPages      int
	PageTimeout   time.Duration
	ConnectDelays []time.Duration
	RetryDelays   []time.Duration

	mu sync.Mutex // serializes StartCrawl
}

// Run identifies one crawl invocation.
type Run struct {
	JobID    string
	SourceID string
	URL      string
	MaxPages int
	Filter   *docsearch.URLFilter
}

// Result holds the outcome of a crawl.
type Result struct {
	Total     int
	Processed int
	Failed    int
}

// ProgressEvent reports progress during a crawl.
type ProgressEvent struct {
	Type      ProgressType
	Processed int
	Failed    int
	Total     int
	URL       string
	Error     error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressCompleted
	ProgressFailed
	ProgressFinished
)

// ProgressFunc is a callback for reporting crawl progress.
type ProgressFunc func(event ProgressEvent)

// StartCrawl registers a crawl of req.URL and runs it on the Supervisor.
// A source that is already crawling gets its current job id back and no
// new work starts.
func (c *Crawler) StartCrawl(ctx context.Context, req docsearch.CrawlRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if u, err := url.Parse(req.URL); err != nil || u.Host == "" {
		return "", docsearch.Errorf(docsearch.EINVALID, "invalid crawl URL %q", req.URL)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	log := c.logger().With("url", req.URL)

	source, err := c.Sources.FindSourceByBaseURL(ctx, req.URL)
	if err != nil && docsearch.ErrorCode(err) != docsearch.ENOTFOUND {
		return "", fmt.Errorf("find source: %w", err)
	}
	if source != nil && source.Status == docsearch.SourceCrawling && source.JobID != "" {
		log.Info("crawl already running", "job", source.JobID, "source", source.ID)
		return source.JobID, nil
	}

	jobID := uuid.NewString()
	crawling := docsearch.SourceCrawling

	if source == nil {
		source = &docsearch.Source{
			Name:    req.Name,
			BaseURL: req.URL,
			Status:  docsearch.SourceCrawling,
			JobID:   jobID,
		}
		if err := c.Sources.CreateSource(ctx, source); err != nil {
			return "", fmt.Errorf("create source: %w", err)
		}
	} else {
		if _, err := c.Sources.UpdateSource(ctx, source.ID, docsearch.SourceUpdate{
			Name:   &req.Name,
			Status: &crawling,
			JobID:  &jobID,
		}); err != nil {
			return "", fmt.Errorf("update source: %w", err)
		}
	}

	if _, err := c.Jobs.CreateJob(ctx, jobID); err != nil {
		c.markSourceFailed(context.WithoutCancel(ctx), source.ID, log)
		return "", fmt.Errorf("create job: %w", err)
	}

	maxPages := req.MaxPages
	if maxPages == 0 {
		maxPages = c.maxPages()
	}
	run := Run{
		JobID:    jobID,
		SourceID: source.ID,
		URL:      req.URL,
		MaxPages: maxPages,
		Filter:   &docsearch.URLFilter{Include: req.Include, Exclude: req.Exclude},
	}

	if c.Supervisor == nil {
		c.Supervisor = NewSupervisor(c.Logger)
	}
	c.Supervisor.Go("crawl "+jobID, func(ctx context.Context) error {
		_, err := c.Execute(ctx, run, nil)
		return err
	})

	log.Info("crawl started", "job", jobID, "source", source.ID, "maxPages", maxPages)
	return jobID, nil
}

// Execute runs the crawl pipeline synchronously. The job moves to
// crawling once the browser is connected, to processing once the page
// list is known, and to completed when every page has been attempted.
// Any error that ends the crawl marks both the job and the source failed.
func (c *Crawler) Execute(ctx context.Context, run Run, progress ProgressFunc) (*Result, error) {
	log := c.logger().With("job", run.JobID, "source", run.SourceID, "url", run.URL)
	if progress == nil {
		progress = func(ProgressEvent) {}
	}

	result, err := c.execute(ctx, run, progress, log)
	if err != nil {
		log.Error("crawl failed", "error", err)
		c.markFailed(context.WithoutCancel(ctx), run, err, log)
		return result, err
	}

	log.Info("crawl completed", "processed", result.Processed, "failed", result.Failed)
	return result, nil
}

func (c *Crawler) execute(ctx context.Context, run Run, progress ProgressFunc, log *slog.Logger) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("crawl panicked: %v", r)
		}
	}()

	fetcher, err := c.connect(ctx, log)
	if err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			log.Warn("close browser failed", "error", err)
		}
	}()

	if err := c.Jobs.UpdateJob(ctx, run.JobID, docsearch.JobUpdate{Status: jobStatus(docsearch.JobCrawling)}); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}

	urls, err := c.discover(ctx, fetcher, run)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}

	total := len(urls)
	if err := c.Jobs.UpdateJob(ctx, run.JobID, docsearch.JobUpdate{
		Status:     jobStatus(docsearch.JobProcessing),
		TotalPages: &total,
	}); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	log.Info("pages discovered", "total", total)
	progress(ProgressEvent{Type: ProgressStarted, Total: total})

	result = &Result{Total: total}
	c.runPool(ctx, urls, func(pageURL string) error {
		return c.processPage(ctx, fetcher, run, pageURL, log)
	}, func(pageURL string, pageErr error) {
		event := ProgressEvent{Type: ProgressCompleted, URL: pageURL, Total: total}
		if pageErr != nil {
			result.Failed++
			event.Type = ProgressFailed
			event.Error = pageErr
		} else {
			result.Processed++
		}
		event.Processed, event.Failed = result.Processed, result.Failed

		processed, failed := result.Processed, result.Failed
		if err := c.Jobs.UpdateJob(ctx, run.JobID, docsearch.JobUpdate{
			ProcessedPages: &processed,
			FailedPages:    &failed,
		}); err != nil {
			log.Warn("update job progress failed", "error", err)
		}
		progress(event)
	})

	if err := ctx.Err(); err != nil {
		return result, err
	}

	ready := docsearch.SourceReady
	if _, err := c.Sources.UpdateSource(ctx, run.SourceID, docsearch.SourceUpdate{
		Status:    &ready,
		PageCount: &result.Processed,
	}); err != nil {
		return result, fmt.Errorf("update source: %w", err)
	}
	if err := c.Jobs.UpdateJob(ctx, run.JobID, docsearch.JobUpdate{Status: jobStatus(docsearch.JobCompleted)}); err != nil {
		return result, fmt.Errorf("update job: %w", err)
	}

	progress(ProgressEvent{Type: ProgressFinished, Processed: result.Processed, Failed: result.Failed, Total: total})
	return result, nil
}

// runPool calls work for each URL with at most Concurrency calls in
// flight. done is called from the calling goroutine once per URL, in
// completion order, so it may mutate state without locking.
func (c *Crawler) runPool(ctx context.Context, urls []string, work func(string) error, done func(string, error)) {
	type pageResult struct {
		url string
		err error
	}

	resultCh := make(chan pageResult, len(urls))

	var g errgroup.Group
	g.SetLimit(c.concurrency())

	go func() {
		for _, u := range urls {
			if ctx.Err() != nil {
				resultCh <- pageResult{url: u, err: ctx.Err()}
				continue
			}
			g.Go(func() error {
				resultCh <- pageResult{url: u, err: safeWork(work, u)}
				return nil
			})
		}
		_ = g.Wait()
		close(resultCh)
	}()

	for r := range resultCh {
		done(r.url, r.err)
	}
}

func safeWork(work func(string) error, u string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page panicked: %v", r)
		}
	}()
	return work(u)
}

func (c *Crawler) connect(ctx context.Context, log *slog.Logger) (docsearch.Fetcher, error) {
	delays := c.ConnectDelays
	if delays == nil {
		delays = DefaultConnectDelays()
	}
	return Retry(ctx, delays, nil,
		func(attempt int, err error) {
			log.Warn("browser connection failed, retrying", "attempt", attempt, "error", err)
		},
		c.Browser.Connect,
	)
}

func (c *Crawler) discover(ctx context.Context, fetcher docsearch.Fetcher, run Run) ([]string, error) {
	if err := c.waitForHost(ctx, run.URL); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.pageTimeout())
	defer cancel()

	links, err := fetcher.FetchLinks(ctx, run.URL)
	if err != nil {
		return nil, err
	}
	return DiscoverURLs(run.URL, links, run.Filter, run.MaxPages)
}

func (c *Crawler) markFailed(ctx context.Context, run Run, cause error, log *slog.Logger) {
	msg := cause.Error()
	if err := c.Jobs.UpdateJob(ctx, run.JobID, docsearch.JobUpdate{
		Status: jobStatus(docsearch.JobFailed),
		Error:  &msg,
	}); err != nil {
		log.Error("mark job failed", "error", err)
	}
	c.markSourceFailed(ctx, run.SourceID, log)
}

func (c *Crawler) markSourceFailed(ctx context.Context, sourceID string, log *slog.Logger) {
	failed := docsearch.SourceFailed
	if _, err := c.Sources.UpdateSource(ctx, sourceID, docsearch.SourceUpdate{Status: &failed}); err != nil {
		log.Error("mark source failed", "source", sourceID, "error", err)
	}
}

func (c *Crawler) waitForHost(ctx context.Context, rawURL string) error {
	if c.RateLimiter == nil {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return docsearch.Errorf(docsearch.EINVALID, "invalid URL %q", rawURL)
	}
	return c.RateLimiter.Wait(ctx, u.Host)
}

func (c *Crawler) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

func (c *Crawler) concurrency() int {
	if c.Concurrency <= 0 {
		return docsearch.DefaultConcurrency
	}
	return c.Concurrency
}

func (c *Crawler) maxPages() int {
	if c.MaxPages <= 0 {
		return docsearch.DefaultMaxPages
	}
	return c.MaxPages
}

func (c *Crawler) pageTimeout() time.Duration {
	if c.PageTimeout <= 0 {
		return DefaultPageTimeout
	}
	return c.PageTimeout
}

func jobStatus(s docsearch.JobStatus) *docsearch.JobStatus {
	return &s
}
