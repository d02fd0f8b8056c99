package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/docsearch"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// Compile-time interface verification.
var _ docsearch.PageService = (*PageService)(nil)

const pageColumns = `id, source_id, url, COALESCE(title, ''), markdown, content_hash, word_count, created_at, updated_at`

// PageService implements docsearch.PageService using PostgreSQL.
type PageService struct {
	db *DB
}

// NewPageService creates a new PageService.
func NewPageService(db *DB) *PageService {
	return &PageService{db: db}
}

// FindPageByID retrieves a page by ID.
func (s *PageService) FindPageByID(ctx context.Context, id string) (*docsearch.Page, error) {
	return scanPage(s.db.pool.QueryRow(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = $1`, id))
}

// FindPageByURL retrieves a page by URL.
func (s *PageService) FindPageByURL(ctx context.Context, url string) (*docsearch.Page, error) {
	return scanPage(s.db.pool.QueryRow(ctx, `SELECT `+pageColumns+` FROM pages WHERE url = $1`, url))
}

// The WHERE clause on the conflict branch makes an unchanged hash return
// no row at all. xmax is zero only for freshly inserted tuples.
const upsertPageSQL = `
	INSERT INTO pages (id, source_id, url, title, markdown, content_hash, word_count, created_at, updated_at)
	VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $8)
	ON CONFLICT (url) DO UPDATE SET
		source_id    = EXCLUDED.source_id,
		title        = EXCLUDED.title,
		markdown     = EXCLUDED.markdown,
		content_hash = EXCLUDED.content_hash,
		word_count   = EXCLUDED.word_count,
		updated_at   = EXCLUDED.updated_at
	WHERE pages.content_hash IS DISTINCT FROM EXCLUDED.content_hash
	RETURNING id, created_at, (xmax = 0)
`

const insertChunkSQL = `
	INSERT INTO page_chunks (id, page_id, chunk_index, content, token_count, heading, embedding, created_at)
	VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
`

// UpsertPage stores page and replaces its chunk set in one transaction.
func (s *PageService) UpsertPage(ctx context.Context, page *docsearch.Page, chunks []*docsearch.Chunk) (docsearch.UpsertResult, error) {
	if err := page.Validate(); err != nil {
		return 0, err
	}

	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}

	result, err := upsertPage(ctx, tx, s.db.Now(), page, chunks)
	if err != nil || result == docsearch.UpsertUnchanged {
		_ = tx.Rollback(ctx)
		return result, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return result, nil
}

func upsertPage(ctx context.Context, tx pgx.Tx, now time.Time, page *docsearch.Page, chunks []*docsearch.Chunk) (docsearch.UpsertResult, error) {
	id := page.ID
	if id == "" {
		id = uuid.NewString()
	}

	var inserted bool
	err := tx.QueryRow(ctx, upsertPageSQL,
		id, page.SourceID, page.URL, page.Title, page.Markdown, page.ContentHash, page.WordCount, now,
	).Scan(&id, &page.CreatedAt, &inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		return docsearch.UpsertUnchanged, nil
	}
	if err != nil {
		return 0, fmt.Errorf("upsert page: %w", err)
	}
	page.ID = id
	page.UpdatedAt = now

	result := docsearch.UpsertCreated
	if !inserted {
		result = docsearch.UpsertUpdated
		if _, err := tx.Exec(ctx, `DELETE FROM page_chunks WHERE page_id = $1`, page.ID); err != nil {
			return 0, fmt.Errorf("delete chunks: %w", err)
		}
	}

	for _, c := range chunks {
		c.ID = uuid.NewString()
		c.PageID = page.ID
		var embedding *pgvector.Vector
		if c.Embedding != nil {
			v := pgvector.NewVector(c.Embedding)
			embedding = &v
		}
		if _, err := tx.Exec(ctx, insertChunkSQL,
			c.ID, c.PageID, c.Index, c.Content, c.TokenCount, c.Heading, embedding, now,
		); err != nil {
			return 0, fmt.Errorf("insert chunk %d: %w", c.Index, err)
		}
	}

	return result, nil
}

func scanPage(row pgx.Row) (*docsearch.Page, error) {
	var p docsearch.Page
	err := row.Scan(&p.ID, &p.SourceID, &p.URL, &p.Title, &p.Markdown, &p.ContentHash,
		&p.WordCount, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, docsearch.Errorf(docsearch.ENOTFOUND, "page not found")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
