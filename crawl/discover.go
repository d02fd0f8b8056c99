package crawl

import (
	"net/url"
	"strings"

	"github.com/fwojciec/docsearch"
)

// DiscoverURLs selects the pages to crawl from the links found on the
// seed page. A link is kept when it shares the seed's scheme and host, its
// path starts with the seed's path, and it passes filter. Fragments are
// stripped before de-duplication. The seed always comes first and the list
// is capped at maxPages when maxPages is positive.
func DiscoverURLs(seed string, links []string, filter *docsearch.URLFilter, maxPages int) ([]string, error) {
	base, err := url.Parse(seed)
	if err != nil || base.Host == "" {
		return nil, docsearch.Errorf(docsearch.EINVALID, "invalid seed URL %q", seed)
	}
	basePath := base.EscapedPath()

	urls := []string{seed}
	seen := map[string]struct{}{seed: {}}
	for _, link := range links {
		u, err := url.Parse(link)
		if err != nil {
			continue
		}
		if u.Scheme != base.Scheme || u.Host != base.Host {
			continue
		}
		if !strings.HasPrefix(u.EscapedPath(), basePath) {
			continue
		}

		u.Fragment = ""
		u.RawFragment = ""
		normalized := u.String()

		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}

		if !filter.Match(normalized) {
			continue
		}
		urls = append(urls, normalized)
	}

	if maxPages > 0 && len(urls) > maxPages {
		urls = urls[:maxPages]
	}
	return urls, nil
}
