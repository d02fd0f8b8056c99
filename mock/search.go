package mock

import (
	"context"

	"github.com/fwojciec/docsearch"
)

var (
	_ docsearch.SearchService = (*SearchService)(nil)
	_ docsearch.ChunkSearcher = (*ChunkSearcher)(nil)
	_ docsearch.CrawlService  = (*CrawlService)(nil)
)

// SearchService is a mock implementation of docsearch.SearchService.
type SearchService struct {
	SearchFn func(ctx context.Context, query string, opts docsearch.SearchOptions) ([]*docsearch.SearchResult, error)
}

func (s *SearchService) Search(ctx context.Context, query string, opts docsearch.SearchOptions) ([]*docsearch.SearchResult, error) {
	return s.SearchFn(ctx, query, opts)
}

// ChunkSearcher is a mock implementation of docsearch.ChunkSearcher.
type ChunkSearcher struct {
	VectorSearchFn  func(ctx context.Context, vec []float32, q docsearch.VectorQuery) ([]*docsearch.SearchResult, error)
	LexicalSearchFn func(ctx context.Context, tsquery string, q docsearch.LexicalQuery) ([]*docsearch.SearchResult, error)
}

func (s *ChunkSearcher) VectorSearch(ctx context.Context, vec []float32, q docsearch.VectorQuery) ([]*docsearch.SearchResult, error) {
	return s.VectorSearchFn(ctx, vec, q)
}

func (s *ChunkSearcher) LexicalSearch(ctx context.Context, tsquery string, q docsearch.LexicalQuery) ([]*docsearch.SearchResult, error) {
	return s.LexicalSearchFn(ctx, tsquery, q)
}

// CrawlService is a mock implementation of docsearch.CrawlService.
type CrawlService struct {
	StartCrawlFn func(ctx context.Context, req docsearch.CrawlRequest) (string, error)
}

func (s *CrawlService) StartCrawl(ctx context.Context, req docsearch.CrawlRequest) (string, error) {
	return s.StartCrawlFn(ctx, req)
}
