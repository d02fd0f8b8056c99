// Package redis stores crawl job progress in Redis hashes that expire
// JobTTL after their last write.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fwojciec/docsearch"
	"github.com/redis/go-redis/v9"
)

// Compile-time interface verification.
var _ docsearch.JobService = (*JobService)(nil)

const keyPrefix = "job:"

// Hash field names.
const (
	fieldID             = "id"
	fieldStatus         = "status"
	fieldTotalPages     = "totalPages"
	fieldProcessedPages = "processedPages"
	fieldFailedPages    = "failedPages"
	fieldError          = "error"
	fieldStartedAt      = "startedAt"
	fieldUpdatedAt      = "updatedAt"
)

// Open creates a client from a redis:// URL and checks connectivity.
func Open(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// JobService implements docsearch.JobService on a Redis hash per job.
type JobService struct {
	client redis.Cmdable

	// Now returns the current time. Overridable in tests.
	Now func() time.Time
}

// NewJobService creates a new JobService.
func NewJobService(client redis.Cmdable) *JobService {
	return &JobService{
		client: client,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateJob writes a pending job with zeroed counters.
func (s *JobService) CreateJob(ctx context.Context, id string) (*docsearch.Job, error) {
	if id == "" {
		return nil, docsearch.Errorf(docsearch.EINVALID, "job ID required")
	}

	now := s.Now()
	job := &docsearch.Job{
		ID:        id,
		Status:    docsearch.JobPending,
		StartedAt: now,
		UpdatedAt: now,
	}

	if err := s.write(ctx, id, map[string]any{
		fieldID:             id,
		fieldStatus:         string(job.Status),
		fieldTotalPages:     0,
		fieldProcessedPages: 0,
		fieldFailedPages:    0,
		fieldStartedAt:      formatTime(now),
		fieldUpdatedAt:      formatTime(now),
	}); err != nil {
		return nil, err
	}
	return job, nil
}

// FindJobByID reads a job. Expired and unknown jobs are ENOTFOUND, as is
// a hash that an update recreated after expiry without its id field.
func (s *JobService) FindJobByID(ctx context.Context, id string) (*docsearch.Job, error) {
	fields, err := s.client.HGetAll(ctx, keyPrefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("read job %s: %w", id, err)
	}
	if fields[fieldID] == "" {
		return nil, docsearch.Errorf(docsearch.ENOTFOUND, "job not found")
	}
	return parseJob(fields)
}

// UpdateJob writes the non-nil fields of upd and renews the TTL.
func (s *JobService) UpdateJob(ctx context.Context, id string, upd docsearch.JobUpdate) error {
	values := map[string]any{
		fieldUpdatedAt: formatTime(s.Now()),
	}
	if upd.Status != nil {
		values[fieldStatus] = string(*upd.Status)
	}
	if upd.TotalPages != nil {
		values[fieldTotalPages] = *upd.TotalPages
	}
	if upd.ProcessedPages != nil {
		values[fieldProcessedPages] = *upd.ProcessedPages
	}
	if upd.FailedPages != nil {
		values[fieldFailedPages] = *upd.FailedPages
	}
	if upd.Error != nil {
		values[fieldError] = *upd.Error
	}
	return s.write(ctx, id, values)
}

// write sets values and the expiry atomically.
func (s *JobService) write(ctx context.Context, id string, values map[string]any) error {
	key := keyPrefix + id
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, values)
		pipe.Expire(ctx, key, docsearch.JobTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write job %s: %w", id, err)
	}
	return nil
}

func parseJob(fields map[string]string) (*docsearch.Job, error) {
	job := &docsearch.Job{
		ID:     fields[fieldID],
		Status: docsearch.JobStatus(fields[fieldStatus]),
		Error:  fields[fieldError],
	}

	var err error
	if job.TotalPages, err = parseInt(fields, fieldTotalPages); err != nil {
		return nil, err
	}
	if job.ProcessedPages, err = parseInt(fields, fieldProcessedPages); err != nil {
		return nil, err
	}
	if job.FailedPages, err = parseInt(fields, fieldFailedPages); err != nil {
		return nil, err
	}
	if job.StartedAt, err = parseTime(fields, fieldStartedAt); err != nil {
		return nil, err
	}
	if job.UpdatedAt, err = parseTime(fields, fieldUpdatedAt); err != nil {
		return nil, err
	}
	return job, nil
}

func parseInt(fields map[string]string, name string) (int, error) {
	v, ok := fields[name]
	if !ok || v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("job field %s: %w", name, err)
	}
	return n, nil
}

func parseTime(fields map[string]string, name string) (time.Time, error) {
	v, ok := fields[name]
	if !ok || v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("job field %s: %w", name, err)
	}
	return t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
