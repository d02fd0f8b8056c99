package mock

import (
	"context"

	"github.com/fwojciec/docsearch"
)

var _ docsearch.JobService = (*JobService)(nil)

// JobService is a mock implementation of docsearch.JobService.
type JobService struct {
	CreateJobFn   func(ctx context.Context, id string) (*docsearch.Job, error)
	FindJobByIDFn func(ctx context.Context, id string) (*docsearch.Job, error)
	UpdateJobFn   func(ctx context.Context, id string, upd docsearch.JobUpdate) error
}

func (s *JobService) CreateJob(ctx context.Context, id string) (*docsearch.Job, error) {
	return s.CreateJobFn(ctx, id)
}

func (s *JobService) FindJobByID(ctx context.Context, id string) (*docsearch.Job, error) {
	return s.FindJobByIDFn(ctx, id)
}

func (s *JobService) UpdateJob(ctx context.Context, id string, upd docsearch.JobUpdate) error {
	return s.UpdateJobFn(ctx, id, upd)
}
