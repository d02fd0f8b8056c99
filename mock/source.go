package mock

import (
	"context"

	"github.com/fwojciec/docsearch"
)

var _ docsearch.SourceService = (*SourceService)(nil)

// SourceService is a mock implementation of docsearch.SourceService.
type SourceService struct {
	CreateSourceFn        func(ctx context.Context, source *docsearch.Source) error
	FindSourceByIDFn      func(ctx context.Context, id string) (*docsearch.Source, error)
	FindSourceByBaseURLFn func(ctx context.Context, baseURL string) (*docsearch.Source, error)
	FindSourcesFn         func(ctx context.Context) ([]*docsearch.Source, error)
	UpdateSourceFn        func(ctx context.Context, id string, upd docsearch.SourceUpdate) (*docsearch.Source, error)
	DeleteSourceFn        func(ctx context.Context, id string) error
}

func (s *SourceService) CreateSource(ctx context.Context, source *docsearch.Source) error {
	return s.CreateSourceFn(ctx, source)
}

func (s *SourceService) FindSourceByID(ctx context.Context, id string) (*docsearch.Source, error) {
	return s.FindSourceByIDFn(ctx, id)
}

func (s *SourceService) FindSourceByBaseURL(ctx context.Context, baseURL string) (*docsearch.Source, error) {
	return s.FindSourceByBaseURLFn(ctx, baseURL)
}

func (s *SourceService) FindSources(ctx context.Context) ([]*docsearch.Source, error) {
	return s.FindSourcesFn(ctx)
}

func (s *SourceService) UpdateSource(ctx context.Context, id string, upd docsearch.SourceUpdate) (*docsearch.Source, error) {
	return s.UpdateSourceFn(ctx, id, upd)
}

func (s *SourceService) DeleteSource(ctx context.Context, id string) error {
	return s.DeleteSourceFn(ctx, id)
}
