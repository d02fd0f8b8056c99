package docsearch

import (
	"regexp"
	"strings"
)

var (
	blankRunRe      = regexp.MustCompile(`\n{3,}`)
	trailingSpaceRe = regexp.MustCompile(`(?m)[ \t]+$`)
)

// NormalizeMarkdown collapses runs of three or more newlines to a single
// blank line, strips trailing whitespace from every line and trims the
// document.
func NormalizeMarkdown(markdown string) string {
	markdown = blankRunRe.ReplaceAllString(markdown, "\n\n")
	markdown = trailingSpaceRe.ReplaceAllString(markdown, "")
	return strings.TrimSpace(markdown)
}

// CountWords returns the number of whitespace-delimited tokens in s.
func CountWords(s string) int {
	return len(strings.Fields(s))
}
