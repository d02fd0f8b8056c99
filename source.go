package docsearch

import (
	"context"
	"time"
)

// SourceStatus is the aggregate crawl state of a Source.
type SourceStatus string

// SourceStatus values.
const (
	SourcePending    SourceStatus = "pending"
	SourceCrawling   SourceStatus = "crawling"
	SourceProcessing SourceStatus = "processing"
	SourceReady      SourceStatus = "ready"
	SourceFailed     SourceStatus = "failed"
)

// Source represents one crawlable documentation site.
type Source struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	BaseURL   string       `json:"baseUrl"`
	Status    SourceStatus `json:"status"`
	JobID     string       `json:"jobId,omitempty"` // latest crawl, may point to an expired job
	PageCount int          `json:"pageCount"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Validate returns an error if the source contains invalid fields.
func (s *Source) Validate() error {
	if s.Name == "" {
		return Errorf(EINVALID, "source name required")
	}
	if s.BaseURL == "" {
		return Errorf(EINVALID, "source base URL required")
	}
	return nil
}

// SourceService represents a service for managing sources.
type SourceService interface {
	// CreateSource creates a new source.
	// Returns ECONFLICT if a source with the same base URL exists.
	CreateSource(ctx context.Context, source *Source) error

	// FindSourceByID retrieves a source by ID.
	// Returns ENOTFOUND if source does not exist.
	FindSourceByID(ctx context.Context, id string) (*Source, error)

	// FindSourceByBaseURL retrieves a source by its base URL.
	// Returns ENOTFOUND if source does not exist.
	FindSourceByBaseURL(ctx context.Context, baseURL string) (*Source, error)

	// FindSources retrieves all sources ordered by name.
	FindSources(ctx context.Context) ([]*Source, error)

	// UpdateSource updates an existing source.
	// Returns ENOTFOUND if source does not exist.
	UpdateSource(ctx context.Context, id string, upd SourceUpdate) (*Source, error)

	// DeleteSource permanently removes a source with its pages and chunks.
	// Returns ENOTFOUND if source does not exist.
	DeleteSource(ctx context.Context, id string) error
}

// SourceUpdate represents a set of fields to update on a source.
// Nil fields are left unchanged.
type SourceUpdate struct {
	Name      *string       `json:"name"`
	Status    *SourceStatus `json:"status"`
	JobID     *string       `json:"jobId"`
	PageCount *int          `json:"pageCount"`
}
