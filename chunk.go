package docsearch

import (
	"regexp"
	"strings"
	"unicode/utf16"
)

// Chunk size limits in estimated tokens.
const (
	TargetTokens = 500
	MaxTokens    = 800
)

var (
	headingRe       = regexp.MustCompile(`^#{1,6}\s`)
	headingPrefixRe = regexp.MustCompile(`^#+\s*`)
)

// Chunk is a token-bounded, heading-labeled segment of a page's markdown.
type Chunk struct {
	ID         string    `json:"id"`
	PageID     string    `json:"pageId"`
	Index      int       `json:"index"`
	Content    string    `json:"content"`
	TokenCount int       `json:"tokenCount"`
	Heading    string    `json:"heading,omitempty"` // empty before the first heading
	Embedding  []float32 `json:"embedding,omitempty"`
}

// EstimateTokens approximates the token count of s as a quarter of its
// length in UTF-16 code units, rounded up. Characters outside the Basic
// Multilingual Plane count as two units.
func EstimateTokens(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return (n + 3) / 4
}

// ChunkMarkdown splits markdown into ordered chunks. Every heading starts a
// new chunk and labels the chunks that follow it. A chunk is closed early
// when the next line would take it past MaxTokens, or at a blank line once
// it has reached TargetTokens. Chunks that are blank after trimming are
// dropped without consuming an index.
//
// The cap is checked against the sum of per-line estimates, so a chunk of
// n lines may report up to ceil((n-1)/4) tokens over MaxTokens once the
// joining newlines are counted.
func ChunkMarkdown(markdown string) []*Chunk {
	var (
		chunks  []*Chunk
		lines   []string
		tokens  int
		heading string
	)

	flush := func() {
		text := strings.TrimSpace(strings.Join(lines, "\n"))
		lines, tokens = lines[:0], 0
		if text == "" {
			return
		}
		chunks = append(chunks, &Chunk{
			Index:      len(chunks),
			Content:    text,
			TokenCount: EstimateTokens(text),
			Heading:    heading,
		})
	}

	for _, line := range strings.Split(markdown, "\n") {
		lineTokens := EstimateTokens(line)

		if headingRe.MatchString(line) {
			if tokens > 0 {
				flush()
			}
			heading = strings.TrimSpace(headingPrefixRe.ReplaceAllString(line, ""))
			lines = append(lines, line)
			tokens += lineTokens
			continue
		}

		if tokens+lineTokens > MaxTokens && tokens > 0 {
			flush()
		}

		lines = append(lines, line)
		tokens += lineTokens

		if tokens >= TargetTokens && strings.TrimSpace(line) == "" {
			flush()
		}
	}
	flush()

	return chunks
}
