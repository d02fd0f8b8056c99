package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/docsearch"
	"github.com/fwojciec/docsearch/crawl"
	"github.com/fwojciec/docsearch/embedding"
	"github.com/fwojciec/docsearch/gemini"
	"github.com/fwojciec/docsearch/htmltomarkdown"
	dshttp "github.com/fwojciec/docsearch/http"
	"github.com/fwojciec/docsearch/openai"
	"github.com/fwojciec/docsearch/postgres"
	"github.com/fwojciec/docsearch/readability"
	dsredis "github.com/fwojciec/docsearch/redis"
	"github.com/fwojciec/docsearch/rod"
	"github.com/fwojciec/docsearch/search"
	dsslog "github.com/fwojciec/docsearch/slog"
	"github.com/fwojciec/docsearch/tools"
	"github.com/fwojciec/docsearch/trafilatura"
	"github.com/redis/go-redis/v9"
	"google.golang.org/genai"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	if cerr := m.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	DB         *postgres.DB
	Redis      *redis.Client
	Supervisor *crawl.Supervisor
}

// NewMain returns a new instance of Main.
func NewMain() *Main {
	return &Main{}
}

// Close stops background crawls and releases connections.
func (m *Main) Close() error {
	var err error
	if m.Supervisor != nil {
		err = m.Supervisor.Close()
		m.Supervisor = nil
	}
	if m.Redis != nil {
		if cerr := m.Redis.Close(); err == nil {
			err = cerr
		}
		m.Redis = nil
	}
	if m.DB != nil {
		m.DB.Close()
		m.DB = nil
	}
	return err
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("docsearch"),
		kong.Description("Crawl documentation sites and search them semantically."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'docsearch --help' to see available commands")
	}
	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := strings.Fields(kongCtx.Command())[0]

	cfg := &cli.Config
	logger := newLogger(stderr, cfg.LogLevel)
	deps.Logger = logger
	deps.EmbeddingDim = cfg.EmbeddingDim

	if err := m.wire(ctx, cmd, cfg, deps); err != nil {
		return err
	}
	return kongCtx.Run(deps)
}

// wire opens the connections the command needs and builds its services.
func (m *Main) wire(ctx context.Context, cmd string, cfg *Config, deps *Dependencies) error {
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintln(deps.Stderr, "Hint: set DATABASE_URL to a PostgreSQL server with the pgvector extension")
		return err
	}
	m.DB = db
	deps.Migrator = db

	sources := postgres.NewSourceService(db)
	pages := postgres.NewPageService(db)
	deps.Sources = sources
	deps.Tools = &tools.Server{
		Sources: sources,
		Pages:   pages,
		Logger:  deps.Logger,
	}

	if cmd == "fetch" || cmd == "sources" {
		client, err := dsredis.Open(ctx, cfg.RedisURL)
		if err != nil {
			fmt.Fprintln(deps.Stderr, "Hint: set REDIS_URL to a reachable Redis server")
			return err
		}
		m.Redis = client
		jobs := dsredis.NewJobService(client)
		deps.Jobs = jobs
		deps.Tools.Jobs = jobs
	}

	if cmd != "fetch" && cmd != "search" {
		return nil
	}

	if cfg.EmbeddingAPIKey == "" {
		fmt.Fprintln(deps.Stderr, "Hint: set EMBEDDING_API_KEY for the configured embedding provider")
		return fmt.Errorf("EMBEDDING_API_KEY not set")
	}
	embedder, err := newEmbedder(ctx, cfg, cmd == "search", deps.Logger)
	if err != nil {
		return err
	}

	if cmd == "search" {
		deps.Tools.Search = search.NewService(embedder, postgres.NewChunkSearcher(db), deps.Logger)
		return nil
	}

	m.Supervisor = crawl.NewSupervisor(deps.Logger)
	deps.Crawls = m.Supervisor

	crawler := &crawl.Crawler{
		Browser:     dsslog.NewLoggingBrowser(newBrowser(cfg), deps.Logger),
		Extractor:   newExtractor(cfg),
		Converter:   htmltomarkdown.NewConverter(),
		Embedder:    embedder,
		Sources:     sources,
		Pages:       pages,
		Jobs:        deps.Jobs,
		Supervisor:  m.Supervisor,
		Logger:      deps.Logger,
		Concurrency: cfg.CrawlConcurrency,
		MaxPages:    cfg.CrawlMaxPages,
		PageTimeout: cfg.CrawlPageTimeout,
	}
	if cfg.CrawlRateLimit > 0 {
		crawler.RateLimiter = crawl.NewDomainLimiter(cfg.CrawlRateLimit, 1)
	}
	deps.Tools.Crawler = crawler
	return nil
}

// newEmbedder builds the configured embedding client. Gemini embeds search
// queries with a different task type than stored chunks.
func newEmbedder(ctx context.Context, cfg *Config, queries bool, logger *slog.Logger) (docsearch.Embedder, error) {
	var backend docsearch.EmbeddingBackend
	switch cfg.EmbeddingProvider {
	case "gemini":
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.EmbeddingAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Gemini API: %w", err)
		}
		b := gemini.NewBackend(client.Models, cfg.EmbeddingModel, cfg.EmbeddingDim)
		if queries {
			b.TaskType = gemini.TaskRetrievalQuery
		}
		backend = b
	default:
		b := openai.NewBackend(cfg.EmbeddingAPIKey)
		b.BaseURL = strings.TrimRight(cfg.EmbeddingBaseURL, "/")
		if cfg.EmbeddingModel != "" {
			b.Model = cfg.EmbeddingModel
		}
		b.Dimensions = cfg.EmbeddingDim
		backend = b
	}

	return dsslog.NewLoggingEmbedder(embedding.NewClient(backend, logger), logger), nil
}

func newBrowser(cfg *Config) docsearch.Browser {
	if cfg.Renderer == "http" {
		return &dshttp.Browser{Options: []dshttp.Option{dshttp.WithTimeout(cfg.CrawlPageTimeout)}}
	}
	return &rod.Browser{ControlURL: cfg.BrowserURL}
}

func newExtractor(cfg *Config) docsearch.Extractor {
	if cfg.Extractor == "trafilatura" {
		return trafilatura.NewExtractor()
	}
	return readability.NewExtractor()
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
