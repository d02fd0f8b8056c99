package readability_test

import (
	"testing"

	"github.com/fwojciec/docsearch"
	"github.com/fwojciec/docsearch/readability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const docPage = `<!DOCTYPE html>
<html>
<head><title>Routing Guide</title></head>
<body>
<nav><a href="/home">Top Nav Home</a><a href="/blog">Top Nav Blog</a></nav>
<aside class="sidebar"><p>Sidebar table of contents</p></aside>
<article>
<h1>Routing</h1>
<p>The router matches incoming requests against registered patterns and dispatches them to handlers.</p>
<h2>Path parameters</h2>
<p>Segments wrapped in braces capture values that handlers can read from the request context.</p>
<ul><li>Named segments</li><li>Wildcards</li></ul>
<p>See <a href="params">the parameter reference</a> for details.</p>
</article>
<footer><p>Copyright footer line</p></footer>
</body>
</html>`

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("extracts title and article", func(t *testing.T) {
		t.Parallel()

		result, err := readability.NewExtractor().Extract(docPage, "https://example.com/docs/routing")

		require.NoError(t, err)
		assert.Equal(t, "Routing Guide", result.Title)
		assert.Contains(t, result.ContentHTML, "registered patterns")
		assert.Contains(t, result.ContentHTML, "Path parameters")
		assert.Contains(t, result.ContentHTML, "<li")
	})

	t.Run("drops boilerplate", func(t *testing.T) {
		t.Parallel()

		result, err := readability.NewExtractor().Extract(docPage, "https://example.com/docs/routing")

		require.NoError(t, err)
		assert.NotContains(t, result.ContentHTML, "Top Nav Home")
		assert.NotContains(t, result.ContentHTML, "Copyright footer line")
		assert.NotContains(t, result.ContentHTML, "Sidebar table of contents")
	})

	t.Run("resolves relative links against page URL", func(t *testing.T) {
		t.Parallel()

		result, err := readability.NewExtractor().Extract(docPage, "https://example.com/docs/routing")

		require.NoError(t, err)
		assert.Contains(t, result.ContentHTML, "https://example.com/docs/params")
	})

	t.Run("empty input has no content", func(t *testing.T) {
		t.Parallel()

		_, err := readability.NewExtractor().Extract("", "https://example.com/")

		require.Error(t, err)
		assert.Equal(t, docsearch.ENOCONTENT, docsearch.ErrorCode(err))
	})

	t.Run("page without text has no content", func(t *testing.T) {
		t.Parallel()

		_, err := readability.NewExtractor().Extract(`<html><body><div></div></body></html>`, "")

		require.Error(t, err)
		assert.Equal(t, docsearch.ENOCONTENT, docsearch.ErrorCode(err))
	})

	t.Run("rejects malformed page URL", func(t *testing.T) {
		t.Parallel()

		_, err := readability.NewExtractor().Extract(docPage, "://bad")

		require.Error(t, err)
		assert.Equal(t, docsearch.EINVALID, docsearch.ErrorCode(err))
	})
}
