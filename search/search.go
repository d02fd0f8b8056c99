// Package search implements hybrid retrieval: vector similarity first,
// with a full-text fallback when too few chunks clear the threshold.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/fwojciec/docsearch"
)

// MinVectorResults is the number of vector matches below which the lexical
// fallback runs.
const MinVectorResults = 2

var _ docsearch.SearchService = (*Service)(nil)

var nonAlphanumRe = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Service implements docsearch.SearchService.
type Service struct {
	embedder docsearch.Embedder
	chunks   docsearch.ChunkSearcher
	logger   *slog.Logger
}

// NewService creates a hybrid search service. A nil logger discards output.
func NewService(embedder docsearch.Embedder, chunks docsearch.ChunkSearcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{embedder: embedder, chunks: chunks, logger: logger}
}

// Search embeds query and ranks chunks by cosine similarity. When fewer
// than MinVectorResults pass the threshold, full-text matches are appended
// for chunks not already present. Similarity values from the two paths use
// different scales and are reported unmodified apart from rounding.
func (s *Service) Search(ctx context.Context, query string, opts docsearch.SearchOptions) ([]*docsearch.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, docsearch.Errorf(docsearch.EINVALID, "search query required")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = docsearch.DefaultSearchLimit
	}
	threshold := docsearch.DefaultSearchThreshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}

	start := time.Now()
	log := s.logger.With("query", query, "source", opts.SourceID)

	vecs, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		log.Error("embed query failed", "error", err)
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, docsearch.Errorf(docsearch.EINTERNAL, "embedder returned %d vectors for 1 query", len(vecs))
	}

	results, err := s.chunks.VectorSearch(ctx, vecs[0], docsearch.VectorQuery{
		SourceID:  opts.SourceID,
		Threshold: threshold,
		Limit:     limit,
	})
	if err != nil {
		log.Error("vector search failed", "error", err)
		return nil, err
	}

	if len(results) < MinVectorResults {
		if tsquery := LexicalQuery(query); tsquery != "" {
			lexical, err := s.chunks.LexicalSearch(ctx, tsquery, docsearch.LexicalQuery{
				SourceID: opts.SourceID,
				Limit:    limit,
			})
			if err != nil {
				log.Error("lexical search failed", "error", err)
				return nil, err
			}
			results = Merge(results, lexical, limit)
		}
	}

	for _, r := range results {
		r.Similarity = Round(r.Similarity)
	}

	log.Debug("search complete", "results", len(results), "duration", time.Since(start))
	return results, nil
}

// LexicalQuery turns free text into an AND-conjunction of alphanumeric
// terms suitable for to_tsquery. It returns "" when no terms remain.
func LexicalQuery(query string) string {
	var terms []string
	for _, field := range strings.Fields(query) {
		if term := nonAlphanumRe.ReplaceAllString(field, ""); term != "" {
			terms = append(terms, term)
		}
	}
	return strings.Join(terms, " & ")
}

// Merge appends the entries of extra whose chunk is not already in primary
// and truncates the result to limit.
func Merge(primary, extra []*docsearch.SearchResult, limit int) []*docsearch.SearchResult {
	seen := make(map[string]struct{}, len(primary)+len(extra))
	merged := make([]*docsearch.SearchResult, 0, len(primary)+len(extra))
	for _, list := range [][]*docsearch.SearchResult{primary, extra} {
		for _, r := range list {
			if _, ok := seen[r.ChunkID]; ok {
				continue
			}
			seen[r.ChunkID] = struct{}{}
			merged = append(merged, r)
		}
	}
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// Round rounds v to three decimal places.
func Round(v float64) float64 {
	return math.Round(v*1000) / 1000
}
