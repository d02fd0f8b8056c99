package docsearch

import "strings"

// URLFilter restricts discovered URLs by substring. A URL passes when it
// contains at least one Include pattern (or Include is empty) and none of
// the Exclude patterns.
type URLFilter struct {
	Include []string
	Exclude []string
}

// Match reports whether rawURL passes the filter.
func (f *URLFilter) Match(rawURL string) bool {
	if f == nil {
		return true
	}
	if len(f.Include) > 0 && !containsAny(rawURL, f.Include) {
		return false
	}
	return !containsAny(rawURL, f.Exclude)
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
