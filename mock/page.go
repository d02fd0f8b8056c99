package mock

import (
	"context"

	"github.com/fwojciec/docsearch"
)

var _ docsearch.PageService = (*PageService)(nil)

// PageService is a mock implementation of docsearch.PageService.
type PageService struct {
	FindPageByIDFn  func(ctx context.Context, id string) (*docsearch.Page, error)
	FindPageByURLFn func(ctx context.Context, url string) (*docsearch.Page, error)
	UpsertPageFn    func(ctx context.Context, page *docsearch.Page, chunks []*docsearch.Chunk) (docsearch.UpsertResult, error)
}

func (s *PageService) FindPageByID(ctx context.Context, id string) (*docsearch.Page, error) {
	return s.FindPageByIDFn(ctx, id)
}

func (s *PageService) FindPageByURL(ctx context.Context, url string) (*docsearch.Page, error) {
	return s.FindPageByURLFn(ctx, url)
}

func (s *PageService) UpsertPage(ctx context.Context, page *docsearch.Page, chunks []*docsearch.Chunk) (docsearch.UpsertResult, error) {
	return s.UpsertPageFn(ctx, page, chunks)
}
