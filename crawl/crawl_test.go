package crawl_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/docsearch"
	"github.com/fwojciec/docsearch/crawl"
	"github.com/fwojciec/docsearch/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedURL = "https://docs.example.com/guide"

// harness backs a Crawler with in-memory sources, pages and jobs.
type harness struct {
	mu      sync.Mutex
	sources map[string]*docsearch.Source
	pages   map[string]*docsearch.Page
	jobs    map[string]*docsearch.Job
	history []docsearch.Job
	links   []string

	upserts    int
	embedCalls int
	createJobs int
	fetches    map[string]int

	// fetchErr, if set, decides whether the nth fetch of url fails.
	fetchErr func(url string, n int) error
	delay    time.Duration

	active    atomic.Int32
	maxActive atomic.Int32
	closed    atomic.Bool
	connects  atomic.Int32
	connectFn func(n int32) error
	extractFn func(html, url string) (*docsearch.ExtractResult, error)
}

func newHarness(links ...string) *harness {
	return &harness{
		sources: map[string]*docsearch.Source{},
		pages:   map[string]*docsearch.Page{},
		jobs:    map[string]*docsearch.Job{},
		fetches: map[string]int{},
		links:   links,
	}
}

func pageMarkdown(url string) string {
	return "# " + url + "\n\nBody of " + url + "."
}

func (h *harness) fetcher() *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(ctx context.Context, url string) (string, error) {
			n := h.active.Add(1)
			defer h.active.Add(-1)
			for {
				m := h.maxActive.Load()
				if n <= m || h.maxActive.CompareAndSwap(m, n) {
					break
				}
			}

			h.mu.Lock()
			h.fetches[url]++
			count := h.fetches[url]
			h.mu.Unlock()

			if h.delay > 0 {
				select {
				case <-time.After(h.delay):
				case <-ctx.Done():
					return "", ctx.Err()
				}
			}
			if h.fetchErr != nil {
				if err := h.fetchErr(url, count); err != nil {
					return "", err
				}
			}
			return pageMarkdown(url), nil
		},
		FetchLinksFn: func(_ context.Context, _ string) ([]string, error) {
			return h.links, nil
		},
		CloseFn: func() error {
			h.closed.Store(true)
			return nil
		},
	}
}

func (h *harness) crawler() *crawl.Crawler {
	return &crawl.Crawler{
		Browser: &mock.Browser{
			ConnectFn: func(_ context.Context) (docsearch.Fetcher, error) {
				n := h.connects.Add(1)
				if h.connectFn != nil {
					if err := h.connectFn(n); err != nil {
						return nil, err
					}
				}
				return h.fetcher(), nil
			},
		},
		Extractor: &mock.Extractor{
			ExtractFn: func(html, url string) (*docsearch.ExtractResult, error) {
				if h.extractFn != nil {
					return h.extractFn(html, url)
				}
				return &docsearch.ExtractResult{Title: "Title " + url, ContentHTML: html}, nil
			},
		},
		Converter: &mock.Converter{
			ConvertFn: func(html string) (string, error) { return html, nil },
		},
		Embedder: &mock.Embedder{
			EmbedTextsFn: func(_ context.Context, texts []string) ([][]float32, error) {
				h.mu.Lock()
				h.embedCalls++
				h.mu.Unlock()
				out := make([][]float32, len(texts))
				for i := range texts {
					out[i] = []float32{float32(i), 1}
				}
				return out, nil
			},
		},
		Sources: h.sourceService(),
		Pages:   h.pageService(),
		Jobs:    h.jobService(),

		Concurrency:   3,
		ConnectDelays: []time.Duration{0, 0},
		RetryDelays:   []time.Duration{0, 0},
	}
}

func (h *harness) sourceService() *mock.SourceService {
	return &mock.SourceService{
		CreateSourceFn: func(_ context.Context, s *docsearch.Source) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			s.ID = fmt.Sprintf("src-%d", len(h.sources)+1)
			cp := *s
			h.sources[s.ID] = &cp
			return nil
		},
		FindSourceByBaseURLFn: func(_ context.Context, baseURL string) (*docsearch.Source, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			for _, s := range h.sources {
				if s.BaseURL == baseURL {
					cp := *s
					return &cp, nil
				}
			}
			return nil, docsearch.Errorf(docsearch.ENOTFOUND, "source not found")
		},
		UpdateSourceFn: func(_ context.Context, id string, upd docsearch.SourceUpdate) (*docsearch.Source, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			s, ok := h.sources[id]
			if !ok {
				return nil, docsearch.Errorf(docsearch.ENOTFOUND, "source not found")
			}
			if upd.Name != nil {
				s.Name = *upd.Name
			}
			if upd.Status != nil {
				s.Status = *upd.Status
			}
			if upd.JobID != nil {
				s.JobID = *upd.JobID
			}
			if upd.PageCount != nil {
				s.PageCount = *upd.PageCount
			}
			cp := *s
			return &cp, nil
		},
	}
}

func (h *harness) pageService() *mock.PageService {
	return &mock.PageService{
		FindPageByURLFn: func(_ context.Context, url string) (*docsearch.Page, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			if p, ok := h.pages[url]; ok {
				cp := *p
				return &cp, nil
			}
			return nil, docsearch.Errorf(docsearch.ENOTFOUND, "page not found")
		},
		UpsertPageFn: func(_ context.Context, page *docsearch.Page, _ []*docsearch.Chunk) (docsearch.UpsertResult, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.upserts++
			cp := *page
			h.pages[page.URL] = &cp
			return docsearch.UpsertCreated, nil
		},
	}
}

func (h *harness) jobService() *mock.JobService {
	return &mock.JobService{
		CreateJobFn: func(_ context.Context, id string) (*docsearch.Job, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.createJobs++
			h.jobs[id] = &docsearch.Job{ID: id, Status: docsearch.JobPending}
			return h.jobs[id], nil
		},
		FindJobByIDFn: func(_ context.Context, id string) (*docsearch.Job, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			if j, ok := h.jobs[id]; ok {
				cp := *j
				return &cp, nil
			}
			return nil, docsearch.Errorf(docsearch.ENOTFOUND, "job not found")
		},
		UpdateJobFn: func(_ context.Context, id string, upd docsearch.JobUpdate) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			j, ok := h.jobs[id]
			if !ok {
				j = &docsearch.Job{ID: id}
				h.jobs[id] = j
			}
			if upd.Status != nil {
				j.Status = *upd.Status
			}
			if upd.TotalPages != nil {
				j.TotalPages = *upd.TotalPages
			}
			if upd.ProcessedPages != nil {
				j.ProcessedPages = *upd.ProcessedPages
			}
			if upd.FailedPages != nil {
				j.FailedPages = *upd.FailedPages
			}
			if upd.Error != nil {
				j.Error = *upd.Error
			}
			h.history = append(h.history, *j)
			return nil
		},
	}
}

func (h *harness) addSource(s docsearch.Source) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cp := s
	h.sources[s.ID] = &cp
}

func (h *harness) job(id string) docsearch.Job {
	h.mu.Lock()
	defer h.mu.Unlock()
	return *h.jobs[id]
}

func (h *harness) source(id string) docsearch.Source {
	h.mu.Lock()
	defer h.mu.Unlock()
	return *h.sources[id]
}

func siteLinks(names ...string) []string {
	links := make([]string, len(names))
	for i, n := range names {
		links[i] = seedURL + "/" + n
	}
	return links
}

func TestCrawler_Execute(t *testing.T) {
	t.Parallel()

	t.Run("caps discovered pages at maxPages", func(t *testing.T) {
		t.Parallel()

		h := newHarness(siteLinks("a", "b", "c", "d", "e")...)
		h.addSource(docsearch.Source{ID: "src-1", Name: "Guide", BaseURL: seedURL, Status: docsearch.SourceCrawling})
		c := h.crawler()

		var started []int
		result, err := c.Execute(context.Background(), crawl.Run{
			JobID: "job-1", SourceID: "src-1", URL: seedURL, MaxPages: 3,
		}, func(e crawl.ProgressEvent) {
			if e.Type == crawl.ProgressStarted {
				started = append(started, e.Total)
			}
		})

		require.NoError(t, err)
		assert.Equal(t, &crawl.Result{Total: 3, Processed: 3}, result)
		assert.Equal(t, []int{3}, started)

		h.mu.Lock()
		crawled := make([]string, 0, len(h.pages))
		for url := range h.pages {
			crawled = append(crawled, url)
		}
		h.mu.Unlock()
		assert.ElementsMatch(t, []string{seedURL, seedURL + "/a", seedURL + "/b"}, crawled)

		job := h.job("job-1")
		assert.Equal(t, docsearch.JobCompleted, job.Status)
		assert.Equal(t, 3, job.TotalPages)
		assert.Equal(t, 3, job.ProcessedPages)

		source := h.source("src-1")
		assert.Equal(t, docsearch.SourceReady, source.Status)
		assert.Equal(t, 3, source.PageCount)
		assert.True(t, h.closed.Load())
	})

	t.Run("walks job through crawling and processing", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		h.addSource(docsearch.Source{ID: "src-1", BaseURL: seedURL})
		c := h.crawler()

		_, err := c.Execute(context.Background(), crawl.Run{JobID: "job-1", SourceID: "src-1", URL: seedURL}, nil)
		require.NoError(t, err)

		var statuses []docsearch.JobStatus
		for _, j := range h.history {
			if len(statuses) == 0 || statuses[len(statuses)-1] != j.Status {
				statuses = append(statuses, j.Status)
			}
		}
		assert.Equal(t, []docsearch.JobStatus{docsearch.JobCrawling, docsearch.JobProcessing, docsearch.JobCompleted}, statuses)
	})

	t.Run("never runs more than Concurrency pages at once", func(t *testing.T) {
		t.Parallel()

		h := newHarness(siteLinks("a", "b", "c", "d", "e", "f", "g", "h")...)
		h.addSource(docsearch.Source{ID: "src-1", BaseURL: seedURL})
		h.delay = 20 * time.Millisecond
		c := h.crawler()
		c.Concurrency = 2

		result, err := c.Execute(context.Background(), crawl.Run{JobID: "job-1", SourceID: "src-1", URL: seedURL}, nil)

		require.NoError(t, err)
		assert.Equal(t, 9, result.Processed)
		assert.LessOrEqual(t, h.maxActive.Load(), int32(2))
		assert.Equal(t, int32(2), h.maxActive.Load())
	})

	t.Run("keeps counters monotonic and within total", func(t *testing.T) {
		t.Parallel()

		h := newHarness(siteLinks("a", "b", "c", "d", "e", "f")...)
		h.addSource(docsearch.Source{ID: "src-1", BaseURL: seedURL})
		h.fetchErr = func(url string, _ int) error {
			if strings.HasSuffix(url, "/c") || strings.HasSuffix(url, "/e") {
				return errors.New("navigation timeout")
			}
			return nil
		}
		c := h.crawler()
		c.Concurrency = 4

		result, err := c.Execute(context.Background(), crawl.Run{JobID: "job-1", SourceID: "src-1", URL: seedURL}, nil)

		require.NoError(t, err)
		assert.Equal(t, 5, result.Processed)
		assert.Equal(t, 2, result.Failed)

		var prev docsearch.Job
		for _, j := range h.history {
			assert.GreaterOrEqual(t, j.ProcessedPages, prev.ProcessedPages)
			assert.GreaterOrEqual(t, j.FailedPages, prev.FailedPages)
			if j.TotalPages > 0 {
				assert.LessOrEqual(t, j.ProcessedPages+j.FailedPages, j.TotalPages)
			}
			prev = j
		}
		assert.Equal(t, 5, prev.ProcessedPages)
		assert.Equal(t, 2, prev.FailedPages)
		assert.Equal(t, docsearch.JobCompleted, prev.Status)
		assert.Equal(t, 5, h.source("src-1").PageCount)
	})

	t.Run("retries transient page failures", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		h.addSource(docsearch.Source{ID: "src-1", BaseURL: seedURL})
		h.fetchErr = func(_ string, n int) error {
			if n < 3 {
				return docsearch.Errorf(docsearch.EUNAVAILABLE, "upstream 503")
			}
			return nil
		}
		c := h.crawler()

		result, err := c.Execute(context.Background(), crawl.Run{JobID: "job-1", SourceID: "src-1", URL: seedURL}, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, 3, h.fetches[seedURL])
	})

	t.Run("fails page after exhausting retries and continues", func(t *testing.T) {
		t.Parallel()

		h := newHarness(siteLinks("a")...)
		h.addSource(docsearch.Source{ID: "src-1", BaseURL: seedURL})
		h.fetchErr = func(url string, _ int) error {
			if url == seedURL {
				return errors.New("boom")
			}
			return nil
		}
		c := h.crawler()

		result, err := c.Execute(context.Background(), crawl.Run{JobID: "job-1", SourceID: "src-1", URL: seedURL}, nil)

		require.NoError(t, err)
		assert.Equal(t, &crawl.Result{Total: 2, Processed: 1, Failed: 1}, result)
		assert.Equal(t, 3, h.fetches[seedURL])
		assert.Equal(t, docsearch.JobCompleted, h.job("job-1").Status)
	})

	t.Run("does not retry pages without readable content", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		h.addSource(docsearch.Source{ID: "src-1", BaseURL: seedURL})
		h.extractFn = func(_, _ string) (*docsearch.ExtractResult, error) {
			return nil, docsearch.Errorf(docsearch.ENOCONTENT, "no readable content")
		}
		c := h.crawler()

		result, err := c.Execute(context.Background(), crawl.Run{JobID: "job-1", SourceID: "src-1", URL: seedURL}, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, 1, h.fetches[seedURL])
	})

	t.Run("skips embedding and storage for unchanged pages", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		h.addSource(docsearch.Source{ID: "src-1", BaseURL: seedURL})
		h.pages[seedURL] = &docsearch.Page{URL: seedURL, ContentHash: crawl.ComputeHash(pageMarkdown(seedURL))}
		c := h.crawler()

		result, err := c.Execute(context.Background(), crawl.Run{JobID: "job-1", SourceID: "src-1", URL: seedURL}, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Processed)
		assert.Zero(t, h.upserts)
		assert.Zero(t, h.embedCalls)
	})

	t.Run("stores chunks with word count and hash", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		h.addSource(docsearch.Source{ID: "src-1", BaseURL: seedURL})
		var stored []*docsearch.Chunk
		c := h.crawler()
		c.Pages = &mock.PageService{
			FindPageByURLFn: func(_ context.Context, _ string) (*docsearch.Page, error) {
				return nil, docsearch.Errorf(docsearch.ENOTFOUND, "page not found")
			},
			UpsertPageFn: func(_ context.Context, page *docsearch.Page, chunks []*docsearch.Chunk) (docsearch.UpsertResult, error) {
				assert.Equal(t, "src-1", page.SourceID)
				assert.Equal(t, "Title "+seedURL, page.Title)
				assert.Equal(t, crawl.ComputeHash(page.Markdown), page.ContentHash)
				assert.Equal(t, docsearch.CountWords(page.Markdown), page.WordCount)
				stored = chunks
				return docsearch.UpsertCreated, nil
			},
		}

		_, err := c.Execute(context.Background(), crawl.Run{JobID: "job-1", SourceID: "src-1", URL: seedURL}, nil)

		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, seedURL, stored[0].Heading)
		assert.NotNil(t, stored[0].Embedding)
	})

	t.Run("fails crawl when browser connection keeps failing", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		h.addSource(docsearch.Source{ID: "src-1", BaseURL: seedURL, Status: docsearch.SourceCrawling})
		h.connectFn = func(int32) error { return errors.New("ws dial refused") }
		c := h.crawler()

		_, err := c.Execute(context.Background(), crawl.Run{JobID: "job-1", SourceID: "src-1", URL: seedURL}, nil)

		require.Error(t, err)
		assert.Equal(t, int32(3), h.connects.Load())
		job := h.job("job-1")
		assert.Equal(t, docsearch.JobFailed, job.Status)
		assert.Contains(t, job.Error, "ws dial refused")
		assert.Equal(t, docsearch.SourceFailed, h.source("src-1").Status)
	})

	t.Run("recovers when browser connects on a later attempt", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		h.addSource(docsearch.Source{ID: "src-1", BaseURL: seedURL})
		h.connectFn = func(n int32) error {
			if n < 3 {
				return errors.New("not ready")
			}
			return nil
		}
		c := h.crawler()

		_, err := c.Execute(context.Background(), crawl.Run{JobID: "job-1", SourceID: "src-1", URL: seedURL}, nil)

		require.NoError(t, err)
		assert.Equal(t, docsearch.JobCompleted, h.job("job-1").Status)
	})

	t.Run("fails crawl when discovery fails", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		h.addSource(docsearch.Source{ID: "src-1", BaseURL: seedURL})
		c := h.crawler()
		c.Browser = &mock.Browser{
			ConnectFn: func(context.Context) (docsearch.Fetcher, error) {
				f := h.fetcher()
				f.FetchLinksFn = func(context.Context, string) ([]string, error) {
					return nil, errors.New("seed timed out")
				}
				return f, nil
			},
		}

		_, err := c.Execute(context.Background(), crawl.Run{JobID: "job-1", SourceID: "src-1", URL: seedURL}, nil)

		require.Error(t, err)
		assert.Equal(t, docsearch.JobFailed, h.job("job-1").Status)
		assert.Equal(t, docsearch.SourceFailed, h.source("src-1").Status)
		assert.True(t, h.closed.Load())
	})

	t.Run("waits on rate limiter per host", func(t *testing.T) {
		t.Parallel()

		h := newHarness(siteLinks("a")...)
		h.addSource(docsearch.Source{ID: "src-1", BaseURL: seedURL})
		var waits atomic.Int32
		c := h.crawler()
		c.RateLimiter = &mock.DomainLimiter{
			WaitFn: func(_ context.Context, domain string) error {
				assert.Equal(t, "docs.example.com", domain)
				waits.Add(1)
				return nil
			},
		}

		_, err := c.Execute(context.Background(), crawl.Run{JobID: "job-1", SourceID: "src-1", URL: seedURL}, nil)

		require.NoError(t, err)
		assert.Equal(t, int32(3), waits.Load()) // discovery plus two pages
	})
}

func TestCrawler_StartCrawl(t *testing.T) {
	t.Parallel()

	t.Run("creates source and job then crawls in background", func(t *testing.T) {
		t.Parallel()

		h := newHarness(siteLinks("a")...)
		c := h.crawler()
		c.Supervisor = crawl.NewSupervisor(nil)

		jobID, err := c.StartCrawl(context.Background(), docsearch.CrawlRequest{URL: seedURL, Name: "Guide"})
		require.NoError(t, err)
		require.NotEmpty(t, jobID)

		c.Supervisor.Wait()

		job := h.job(jobID)
		assert.Equal(t, docsearch.JobCompleted, job.Status)
		assert.Equal(t, 2, job.ProcessedPages)
		source := h.source("src-1")
		assert.Equal(t, "Guide", source.Name)
		assert.Equal(t, jobID, source.JobID)
		assert.Equal(t, docsearch.SourceReady, source.Status)
	})

	t.Run("returns running job for a source already crawling", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		h.addSource(docsearch.Source{ID: "src-1", BaseURL: seedURL, Status: docsearch.SourceCrawling, JobID: "job-running"})
		c := h.crawler()
		c.Supervisor = crawl.NewSupervisor(nil)

		jobID, err := c.StartCrawl(context.Background(), docsearch.CrawlRequest{URL: seedURL, Name: "Guide"})

		require.NoError(t, err)
		assert.Equal(t, "job-running", jobID)
		assert.Zero(t, h.createJobs)
		assert.Zero(t, h.connects.Load())
	})

	t.Run("reuses existing source with a fresh job", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		h.addSource(docsearch.Source{ID: "src-1", Name: "Old", BaseURL: seedURL, Status: docsearch.SourceReady, JobID: "job-old"})
		c := h.crawler()
		c.Supervisor = crawl.NewSupervisor(nil)

		jobID, err := c.StartCrawl(context.Background(), docsearch.CrawlRequest{URL: seedURL, Name: "New"})
		require.NoError(t, err)
		c.Supervisor.Wait()

		assert.NotEqual(t, "job-old", jobID)
		source := h.source("src-1")
		assert.Equal(t, "New", source.Name)
		assert.Equal(t, jobID, source.JobID)
		assert.Len(t, h.sources, 1)
	})

	t.Run("concurrent starts launch one crawl", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		h.delay = 50 * time.Millisecond
		c := h.crawler()
		c.Supervisor = crawl.NewSupervisor(nil)

		var wg sync.WaitGroup
		ids := make([]string, 5)
		for i := range ids {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id, err := c.StartCrawl(context.Background(), docsearch.CrawlRequest{URL: seedURL, Name: "Guide"})
				assert.NoError(t, err)
				ids[i] = id
			}()
		}
		wg.Wait()
		c.Supervisor.Wait()

		for _, id := range ids[1:] {
			assert.Equal(t, ids[0], id)
		}
		assert.Equal(t, 1, h.createJobs)
	})

	t.Run("marks source failed when job cannot be created", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		c := h.crawler()
		c.Jobs = &mock.JobService{
			CreateJobFn: func(context.Context, string) (*docsearch.Job, error) {
				return nil, errors.New("redis down")
			},
		}

		_, err := c.StartCrawl(context.Background(), docsearch.CrawlRequest{URL: seedURL, Name: "Guide"})

		require.Error(t, err)
		assert.Equal(t, docsearch.SourceFailed, h.source("src-1").Status)
	})

	t.Run("validates request", func(t *testing.T) {
		t.Parallel()

		c := newHarness().crawler()

		for _, req := range []docsearch.CrawlRequest{
			{Name: "Guide"},
			{URL: seedURL},
			{URL: seedURL, Name: "Guide", MaxPages: 501},
			{URL: "not a url", Name: "Guide"},
		} {
			_, err := c.StartCrawl(context.Background(), req)
			assert.Equal(t, docsearch.EINVALID, docsearch.ErrorCode(err), "%+v", req)
		}
	})
}

func TestComputeHash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, crawl.ComputeHash("abc"), crawl.ComputeHash("abc"))
	assert.NotEqual(t, crawl.ComputeHash("abc"), crawl.ComputeHash("abd"))
	assert.Len(t, crawl.ComputeHash(""), 16)
}
