package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fwojciec/docsearch"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Compile-time interface verification.
var _ docsearch.SourceService = (*SourceService)(nil)

const sourceColumns = `id, name, base_url, status, COALESCE(job_id, ''), page_count, created_at, updated_at`

// SourceService implements docsearch.SourceService using PostgreSQL.
type SourceService struct {
	db *DB
}

// NewSourceService creates a new SourceService.
func NewSourceService(db *DB) *SourceService {
	return &SourceService{db: db}
}

// CreateSource creates a new source.
func (s *SourceService) CreateSource(ctx context.Context, source *docsearch.Source) error {
	if err := source.Validate(); err != nil {
		return err
	}

	source.ID = uuid.NewString()
	if source.Status == "" {
		source.Status = docsearch.SourcePending
	}
	now := s.db.Now()
	source.CreatedAt = now
	source.UpdatedAt = now

	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO sources (id, name, base_url, status, job_id, page_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
	`, source.ID, source.Name, source.BaseURL, string(source.Status), source.JobID, source.PageCount,
		source.CreatedAt, source.UpdatedAt)
	if isUniqueViolation(err) {
		return docsearch.Errorf(docsearch.ECONFLICT, "source with base URL %q already exists", source.BaseURL)
	}
	return err
}

// FindSourceByID retrieves a source by ID.
func (s *SourceService) FindSourceByID(ctx context.Context, id string) (*docsearch.Source, error) {
	row := s.db.pool.QueryRow(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = $1`, id)
	return scanSource(row)
}

// FindSourceByBaseURL retrieves a source by its base URL.
func (s *SourceService) FindSourceByBaseURL(ctx context.Context, baseURL string) (*docsearch.Source, error) {
	row := s.db.pool.QueryRow(ctx, `SELECT `+sourceColumns+` FROM sources WHERE base_url = $1`, baseURL)
	return scanSource(row)
}

// FindSources retrieves all sources ordered by name.
func (s *SourceService) FindSources(ctx context.Context) ([]*docsearch.Source, error) {
	rows, err := s.db.pool.Query(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*docsearch.Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

// UpdateSource updates an existing source.
func (s *SourceService) UpdateSource(ctx context.Context, id string, upd docsearch.SourceUpdate) (*docsearch.Source, error) {
	var sets []string
	var args []any
	add := func(expr string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf(expr, len(args)))
	}

	if upd.Name != nil {
		add("name = $%d", *upd.Name)
	}
	if upd.Status != nil {
		add("status = $%d", string(*upd.Status))
	}
	if upd.JobID != nil {
		add("job_id = NULLIF($%d, '')", *upd.JobID)
	}
	if upd.PageCount != nil {
		add("page_count = $%d", *upd.PageCount)
	}
	add("updated_at = $%d", s.db.Now())
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE sources SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), sourceColumns)

	return scanSource(s.db.pool.QueryRow(ctx, query, args...))
}

// DeleteSource permanently removes a source. Pages and chunks are removed
// by cascade.
func (s *SourceService) DeleteSource(ctx context.Context, id string) error {
	tag, err := s.db.pool.Exec(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return docsearch.Errorf(docsearch.ENOTFOUND, "source not found")
	}
	return nil
}

func scanSource(row pgx.Row) (*docsearch.Source, error) {
	var source docsearch.Source
	var status string
	err := row.Scan(&source.ID, &source.Name, &source.BaseURL, &status, &source.JobID,
		&source.PageCount, &source.CreatedAt, &source.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, docsearch.Errorf(docsearch.ENOTFOUND, "source not found")
	}
	if err != nil {
		return nil, err
	}
	source.Status = docsearch.SourceStatus(status)
	return &source, nil
}
