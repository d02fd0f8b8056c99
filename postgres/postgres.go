// Package postgres provides PostgreSQL storage for sources, pages and
// chunks, with pgvector similarity search and full-text ranking.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the subset of pgxpool.Pool used by the services. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// DB represents a PostgreSQL connection pool.
type DB struct {
	pool Pool

	// Now returns the current time. Overridable in tests.
	Now func() time.Time
}

// NewDB wraps an existing pool.
func NewDB(pool Pool) *DB {
	return &DB{
		pool: pool,
		Now:  func() time.Time { return time.Now().UTC() },
	}
}

// Open connects to the database at dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewDB(pool), nil
}

// Close closes the pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS sources (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	base_url   TEXT NOT NULL UNIQUE,
	status     TEXT NOT NULL DEFAULT 'pending',
	job_id     TEXT,
	page_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pages (
	id           TEXT PRIMARY KEY,
	source_id    TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
	url          TEXT NOT NULL UNIQUE,
	title        TEXT,
	markdown     TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	word_count   INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS pages_source_id_idx ON pages (source_id);

CREATE TABLE IF NOT EXISTS page_chunks (
	id          TEXT PRIMARY KEY,
	page_id     TEXT NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	chunk_index INTEGER NOT NULL,
	content     TEXT NOT NULL,
	token_count INTEGER NOT NULL,
	heading     TEXT,
	embedding   vector(%d),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (page_id, chunk_index)
);

CREATE INDEX IF NOT EXISTS page_chunks_content_fts_idx
	ON page_chunks USING GIN (to_tsvector('english', content));

CREATE INDEX IF NOT EXISTS page_chunks_embedding_idx
	ON page_chunks USING hnsw (embedding vector_cosine_ops);
`

// Migrate creates the extension, tables and indexes if they don't exist.
// dim is the embedding dimensionality.
func (db *DB) Migrate(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	if _, err := db.pool.Exec(ctx, fmt.Sprintf(schema, dim)); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
