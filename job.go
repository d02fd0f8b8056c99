package docsearch

import (
	"context"
	"time"
)

// JobTTL is how long a job record survives after its last write.
const JobTTL = 24 * time.Hour

// JobStatus is the state of a crawl job.
type JobStatus string

// JobStatus values. Jobs move pending → crawling → processing and end in
// completed or failed.
const (
	JobPending    JobStatus = "pending"
	JobCrawling   JobStatus = "crawling"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether s is a final state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job is the ephemeral progress record of one crawl invocation.
type Job struct {
	ID             string    `json:"id"`
	Status         JobStatus `json:"status"`
	TotalPages     int       `json:"totalPages"`
	ProcessedPages int       `json:"processedPages"`
	FailedPages    int       `json:"failedPages"`
	Error          string    `json:"error,omitempty"`
	StartedAt      time.Time `json:"startedAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// JobService tracks crawl progress. Every write renews the record's TTL.
type JobService interface {
	// CreateJob initializes a pending job with zeroed counters.
	CreateJob(ctx context.Context, id string) (*Job, error)

	// FindJobByID retrieves a job by ID.
	// Returns ENOTFOUND if the job never existed or has expired.
	FindJobByID(ctx context.Context, id string) (*Job, error)

	// UpdateJob writes the non-nil fields of upd.
	UpdateJob(ctx context.Context, id string, upd JobUpdate) error
}

// JobUpdate represents a set of fields to update on a job.
// Counters are absolute values, not increments.
type JobUpdate struct {
	Status         *JobStatus
	TotalPages     *int
	ProcessedPages *int
	FailedPages    *int
	Error          *string
}
