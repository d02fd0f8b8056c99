package docsearch

// ExtractResult holds the extracted content from an HTML page.
type ExtractResult struct {
	// Title is the article title, empty when none was found.
	Title string

	// ContentHTML is the main content as clean HTML.
	// Boilerplate (nav, footer, sidebar, ads) has been removed.
	ContentHTML string
}

// Extractor extracts main content from HTML pages, removing boilerplate.
type Extractor interface {
	// Extract processes rendered HTML fetched from pageURL and returns the
	// main article. Returns ENOCONTENT if no article-like content exists.
	Extract(html, pageURL string) (*ExtractResult, error)
}
