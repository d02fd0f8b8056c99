package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/docsearch"
	"github.com/fwojciec/docsearch/tools"
)

// Migrator applies the database schema.
type Migrator interface {
	Migrate(ctx context.Context, dim int) error
}

// Waiter blocks until background crawls finish.
type Waiter interface {
	Wait()
}

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx          context.Context
	Stdout       io.Writer
	Stderr       io.Writer
	Logger       *slog.Logger
	Migrator     Migrator
	EmbeddingDim int
	Sources      docsearch.SourceService
	Jobs         docsearch.JobService
	Tools        *tools.Server
	Crawls       Waiter
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config

	Migrate MigrateCmd `cmd:"" help:"Create the database schema"`
	Fetch   FetchCmd   `cmd:"" help:"Crawl and index a documentation site"`
	Sources SourcesCmd `cmd:"" help:"List indexed documentation sources"`
	Page    PageCmd    `cmd:"" help:"Print a stored page as markdown"`
	Search  SearchCmd  `cmd:"" help:"Search indexed documentation"`
	Delete  DeleteCmd  `cmd:"" help:"Delete a source with its pages and chunks"`
}

// Config holds connection and pipeline settings. Every field can be set
// from the environment.
type Config struct {
	DatabaseURL string `name:"database-url" env:"DATABASE_URL" default:"postgres://localhost:5432/docsearch" help:"PostgreSQL connection string"`
	RedisURL    string `name:"redis-url" env:"REDIS_URL" default:"redis://localhost:6379/0" help:"Redis connection URL for job progress"`
	BrowserURL  string `name:"browser-url" env:"BROWSER_URL" help:"DevTools URL of a running Chrome (empty launches one)"`
	Renderer    string `env:"RENDERER" enum:"rod,http" default:"rod" help:"Page renderer (rod, http)"`
	Extractor   string `env:"EXTRACTOR" enum:"readability,trafilatura" default:"readability" help:"Article extractor (readability, trafilatura)"`

	EmbeddingProvider string `name:"embedding-provider" env:"EMBEDDING_PROVIDER" enum:"openai,gemini" default:"openai" help:"Embedding provider (openai, gemini)"`
	EmbeddingAPIKey   string `name:"embedding-api-key" env:"EMBEDDING_API_KEY" help:"Embedding provider API key"`
	EmbeddingBaseURL  string `name:"embedding-base-url" env:"EMBEDDING_BASE_URL" default:"https://openrouter.ai/api/v1" help:"Base URL of the OpenAI-compatible embeddings API"`
	EmbeddingModel    string `name:"embedding-model" env:"EMBEDDING_MODEL" help:"Embedding model (empty uses the provider default)"`
	EmbeddingDim      int    `name:"embedding-dim" env:"EMBEDDING_DIM" default:"1536" help:"Embedding vector dimensions"`

	CrawlConcurrency int           `name:"crawl-concurrency" env:"CRAWL_CONCURRENCY" default:"3" help:"Pages processed in parallel"`
	CrawlMaxPages    int           `name:"crawl-max-pages" env:"CRAWL_MAX_PAGES" default:"100" help:"Default page cap per crawl"`
	CrawlPageTimeout time.Duration `name:"crawl-page-timeout" env:"CRAWL_PAGE_TIMEOUT" default:"30s" help:"Per-page navigation timeout"`
	CrawlRateLimit   float64       `name:"crawl-rate-limit" env:"CRAWL_RATE_LIMIT" default:"0" help:"Requests per second per domain (0 disables)"`

	LogLevel string `name:"log-level" env:"LOG_LEVEL" enum:"debug,info,warn,error" default:"info" help:"Log level (debug, info, warn, error)"`
}

// MigrateCmd is the "migrate" subcommand.
type MigrateCmd struct{}

// FetchCmd is the "fetch" subcommand.
type FetchCmd struct {
	URL      string   `arg:"" help:"Documentation URL"`
	Name     string   `arg:"" help:"Source name"`
	MaxPages int      `short:"m" name:"max-pages" help:"Maximum pages to crawl (1-500)"`
	Include  []string `short:"i" help:"Only index URLs matching this regex (repeatable)"`
	Exclude  []string `short:"x" help:"Skip URLs matching this regex (repeatable)"`
}

// SourcesCmd is the "sources" subcommand.
type SourcesCmd struct{}

// PageCmd is the "page" subcommand.
type PageCmd struct {
	URL string `xor:"page" help:"Page URL"`
	ID  string `xor:"page" help:"Page ID"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Query     string   `arg:"" help:"Search query"`
	Source    string   `short:"s" help:"Restrict to a source ID"`
	Limit     *int     `short:"l" help:"Maximum results (1-20, default 5)"`
	Threshold *float64 `short:"t" help:"Minimum similarity (0-1, default 0.3)"`
}

// DeleteCmd is the "delete" subcommand.
type DeleteCmd struct {
	Name  string `arg:"" help:"Source name"`
	Force bool   `help:"Confirm deletion"`
}
