package postgres

import (
	"context"
	"fmt"

	"github.com/fwojciec/docsearch"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// Compile-time interface verification.
var _ docsearch.ChunkSearcher = (*ChunkSearcher)(nil)

// ChunkSearcher implements docsearch.ChunkSearcher with pgvector cosine
// distance and PostgreSQL full-text search.
type ChunkSearcher struct {
	db *DB
}

// NewChunkSearcher creates a new ChunkSearcher.
func NewChunkSearcher(db *DB) *ChunkSearcher {
	return &ChunkSearcher{db: db}
}

const resultColumns = `c.id, c.content, COALESCE(c.heading, ''), %s, COALESCE(p.title, ''), p.url, s.name`

const resultJoins = `
	FROM page_chunks c
	JOIN pages p ON p.id = c.page_id
	JOIN sources s ON s.id = p.source_id
`

// VectorSearch returns chunks with cosine similarity of at least
// q.Threshold, nearest first.
func (s *ChunkSearcher) VectorSearch(ctx context.Context, vec []float32, q docsearch.VectorQuery) ([]*docsearch.SearchResult, error) {
	args := []any{pgvector.NewVector(vec), q.Threshold}
	query := `SELECT ` + fmt.Sprintf(resultColumns, `1 - (c.embedding <=> $1) AS similarity`) + resultJoins + `
	WHERE c.embedding IS NOT NULL AND 1 - (c.embedding <=> $1) >= $2`
	if q.SourceID != "" {
		args = append(args, q.SourceID)
		query += fmt.Sprintf(` AND p.source_id = $%d`, len(args))
	}
	args = append(args, q.Limit)
	query += fmt.Sprintf(` ORDER BY c.embedding <=> $1 LIMIT $%d`, len(args))

	rows, err := s.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return scanResults(rows)
}

// LexicalSearch returns chunks matching tsquery ranked by ts_rank.
func (s *ChunkSearcher) LexicalSearch(ctx context.Context, tsquery string, q docsearch.LexicalQuery) ([]*docsearch.SearchResult, error) {
	args := []any{tsquery}
	query := `SELECT ` + fmt.Sprintf(resultColumns, `ts_rank(to_tsvector('english', c.content), to_tsquery('english', $1))::float8 AS rank`) + resultJoins + `
	WHERE to_tsvector('english', c.content) @@ to_tsquery('english', $1)`
	if q.SourceID != "" {
		args = append(args, q.SourceID)
		query += fmt.Sprintf(` AND p.source_id = $%d`, len(args))
	}
	args = append(args, q.Limit)
	query += fmt.Sprintf(` ORDER BY rank DESC LIMIT $%d`, len(args))

	rows, err := s.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	return scanResults(rows)
}

func scanResults(rows pgx.Rows) ([]*docsearch.SearchResult, error) {
	defer rows.Close()

	results := []*docsearch.SearchResult{}
	for rows.Next() {
		var r docsearch.SearchResult
		if err := rows.Scan(&r.ChunkID, &r.Content, &r.Heading, &r.Similarity,
			&r.PageTitle, &r.PageURL, &r.SourceName); err != nil {
			return nil, err
		}
		results = append(results, &r)
	}
	return results, rows.Err()
}
