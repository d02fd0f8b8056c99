package goquery_test

import (
	"testing"

	"github.com/fwojciec/docsearch"
	"github.com/fwojciec/docsearch/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractHrefs(t *testing.T) {
	t.Parallel()

	t.Run("resolves links in document order", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
<nav><a href="/docs/intro">Intro</a></nav>
<main>
	<a href="guide#setup">Guide</a>
	<a href="https://other.example.org/x">External</a>
	<a href="../blog/">Blog</a>
</main>
</body></html>`

		hrefs, err := goquery.ExtractHrefs(html, "https://example.com/docs/start")

		require.NoError(t, err)
		assert.Equal(t, []string{
			"https://example.com/docs/intro",
			"https://example.com/docs/guide#setup",
			"https://other.example.org/x",
			"https://example.com/blog/",
		}, hrefs)
	})

	t.Run("skips non-HTTP and empty links", func(t *testing.T) {
		t.Parallel()

		html := `<a href="javascript:void(0)">js</a>
<a href="mailto:team@example.com">mail</a>
<a href="tel:+123">tel</a>
<a href="data:text/plain,hi">data</a>
<a href="ftp://example.com/file">ftp</a>
<a href="">empty</a>
<a>no href</a>
<a href="/docs/kept">kept</a>`

		hrefs, err := goquery.ExtractHrefs(html, "https://example.com/")

		require.NoError(t, err)
		assert.Equal(t, []string{"https://example.com/docs/kept"}, hrefs)
	})

	t.Run("keeps duplicates", func(t *testing.T) {
		t.Parallel()

		html := `<a href="/a">one</a><a href="/a">two</a>`

		hrefs, err := goquery.ExtractHrefs(html, "https://example.com/")

		require.NoError(t, err)
		assert.Equal(t, []string{"https://example.com/a", "https://example.com/a"}, hrefs)
	})

	t.Run("honors base element", func(t *testing.T) {
		t.Parallel()

		html := `<html><head><base href="/v2/"></head><body><a href="api">API</a></body></html>`

		hrefs, err := goquery.ExtractHrefs(html, "https://example.com/docs/")

		require.NoError(t, err)
		assert.Equal(t, []string{"https://example.com/v2/api"}, hrefs)
	})

	t.Run("rejects invalid page URL", func(t *testing.T) {
		t.Parallel()

		_, err := goquery.ExtractHrefs("<a href='/x'>x</a>", "://bad")

		require.Error(t, err)
		assert.Equal(t, docsearch.EINVALID, docsearch.ErrorCode(err))
	})
}
