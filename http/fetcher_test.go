package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fwojciec/docsearch"
	dshttp "github.com/fwojciec/docsearch/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("returns HTML body and sends user agent", func(t *testing.T) {
		t.Parallel()

		var gotUA string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html><body>docs home</body></html>"))
		}))
		defer server.Close()

		fetcher := dshttp.NewFetcher(dshttp.WithUserAgent("docsearch-test"))
		defer fetcher.Close()

		html, err := fetcher.Fetch(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, "<html><body>docs home</body></html>", html)
		assert.Equal(t, "docsearch-test", gotUA)
	})

	t.Run("times out slow servers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			_, _ = w.Write([]byte("late"))
		}))
		defer server.Close()

		fetcher := dshttp.NewFetcher(dshttp.WithTimeout(10 * time.Millisecond))

		_, err := fetcher.Fetch(context.Background(), server.URL)
		require.Error(t, err)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("unreachable"))
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := dshttp.NewFetcher().Fetch(ctx, server.URL)
		require.Error(t, err)
	})

	t.Run("classifies status codes", func(t *testing.T) {
		t.Parallel()

		cases := map[int]string{
			http.StatusTooManyRequests:    docsearch.ERATELIMIT,
			http.StatusServiceUnavailable: docsearch.EUNAVAILABLE,
			http.StatusBadGateway:         docsearch.EUNAVAILABLE,
			http.StatusNotFound:           docsearch.EINTERNAL,
		}
		for status, code := range cases {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}))

			_, err := dshttp.NewFetcher().Fetch(context.Background(), server.URL)
			server.Close()

			require.Error(t, err)
			assert.Equal(t, code, docsearch.ErrorCode(err), "status %d", status)
		}
	})
}

func TestFetcher_FetchLinks(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<a href="/docs/a">a</a><a href="b#frag">b</a>`))
	}))
	defer server.Close()

	browser := &dshttp.Browser{}
	fetcher, err := browser.Connect(context.Background())
	require.NoError(t, err)
	defer fetcher.Close()

	links, err := fetcher.FetchLinks(context.Background(), server.URL+"/docs/")

	require.NoError(t, err)
	assert.Equal(t, []string{server.URL + "/docs/a", server.URL + "/docs/b#frag"}, links)
}
