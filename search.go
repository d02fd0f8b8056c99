package docsearch

import "context"

// Search defaults.
const (
	DefaultSearchLimit     = 5
	DefaultSearchThreshold = 0.3
)

// SearchService provides hybrid search over stored chunks.
type SearchService interface {
	// Search returns chunks ranked by relevance to the query.
	// An empty slice means nothing matched.
	Search(ctx context.Context, query string, opts SearchOptions) ([]*SearchResult, error)
}

// SearchOptions configures search behavior.
type SearchOptions struct {
	// SourceID restricts results to one source when set.
	SourceID string `json:"sourceId,omitempty"`

	// Limit is the maximum number of results. Zero means DefaultSearchLimit.
	Limit int `json:"limit,omitempty"`

	// Threshold is the minimum vector similarity. Nil means DefaultSearchThreshold.
	Threshold *float64 `json:"threshold,omitempty"`
}

// SearchResult represents a search match with its page context.
//
// Similarity is cosine similarity in [0,1] for vector matches and the
// full-text rank for lexical matches. The two scales are not comparable.
type SearchResult struct {
	ChunkID    string  `json:"chunkId"`
	Content    string  `json:"content"`
	Heading    string  `json:"heading,omitempty"`
	Similarity float64 `json:"similarity"`
	PageTitle  string  `json:"pageTitle"`
	PageURL    string  `json:"pageUrl"`
	SourceName string  `json:"source"`
}

// ChunkSearcher runs the two retrieval paths of hybrid search against the
// chunk store.
type ChunkSearcher interface {
	// VectorSearch returns chunks whose similarity to vec is at least
	// q.Threshold, most similar first.
	VectorSearch(ctx context.Context, vec []float32, q VectorQuery) ([]*SearchResult, error)

	// LexicalSearch returns chunks matching a full-text conjunction query,
	// best ranked first.
	LexicalSearch(ctx context.Context, tsquery string, q LexicalQuery) ([]*SearchResult, error)
}

// VectorQuery scopes a vector search.
type VectorQuery struct {
	SourceID  string
	Threshold float64
	Limit     int
}

// LexicalQuery scopes a full-text search.
type LexicalQuery struct {
	SourceID string
	Limit    int
}
