package docsearch_test

import (
	"testing"

	"github.com/fwojciec/docsearch"
	"github.com/stretchr/testify/assert"
)

func TestFormatPage(t *testing.T) {
	t.Parallel()

	t.Run("includes header block", func(t *testing.T) {
		t.Parallel()

		page := &docsearch.Page{
			URL:       "https://go.dev/doc/effective_go",
			Title:     "Effective Go",
			Markdown:  "## Introduction\n\nGo is a new language.",
			WordCount: 7,
		}

		got := docsearch.FormatPage(page, "Go Docs")

		want := "# Effective Go\n\n" +
			"Source: Go Docs | URL: https://go.dev/doc/effective_go | Words: 7\n\n" +
			"---\n\n" +
			"## Introduction\n\nGo is a new language."
		assert.Equal(t, want, got)
	})

	t.Run("falls back to Untitled", func(t *testing.T) {
		t.Parallel()

		got := docsearch.FormatPage(&docsearch.Page{URL: "https://x.dev/"}, "X")

		assert.Contains(t, got, "# Untitled\n\n")
	})
}

func TestPage_Validate(t *testing.T) {
	t.Parallel()

	t.Run("requires source ID", func(t *testing.T) {
		t.Parallel()

		err := (&docsearch.Page{URL: "https://x.dev/", ContentHash: "h"}).Validate()
		assert.Equal(t, docsearch.EINVALID, docsearch.ErrorCode(err))
	})

	t.Run("requires URL", func(t *testing.T) {
		t.Parallel()

		err := (&docsearch.Page{SourceID: "s", ContentHash: "h"}).Validate()
		assert.Equal(t, docsearch.EINVALID, docsearch.ErrorCode(err))
	})

	t.Run("valid page", func(t *testing.T) {
		t.Parallel()

		err := (&docsearch.Page{SourceID: "s", URL: "https://x.dev/", ContentHash: "h"}).Validate()
		assert.NoError(t, err)
	})
}

func TestUpsertResult_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "created", docsearch.UpsertCreated.String())
	assert.Equal(t, "updated", docsearch.UpsertUpdated.String())
	assert.Equal(t, "unchanged", docsearch.UpsertUnchanged.String())
}
