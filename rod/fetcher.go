// Package rod renders documentation pages in Chrome via go-rod.
package rod

import (
	"context"
	"fmt"
	"time"

	"github.com/fwojciec/docsearch"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// networkIdle is how long the page must go without requests before it
// counts as rendered.
const networkIdle = 500 * time.Millisecond

const anchorsJS = `() => Array.from(document.querySelectorAll("a[href]")).map(a => a.href).filter(Boolean)`

// Ensure types implement their domain interfaces at compile time.
var (
	_ docsearch.Browser = (*Browser)(nil)
	_ docsearch.Fetcher = (*Fetcher)(nil)
)

// Browser connects to Chrome. An empty ControlURL launches a local
// headless Chrome.
type Browser struct {
	ControlURL   string
	RecycleAfter int
}

// Connect opens a browser session for one crawl.
func (b *Browser) Connect(ctx context.Context) (docsearch.Fetcher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := []ManagerOption{WithControlURL(b.ControlURL)}
	if b.RecycleAfter > 0 {
		opts = append(opts, WithRecycleAfter(b.RecycleAfter))
	}
	return NewFetcher(opts...)
}

// Fetcher retrieves rendered HTML from URLs using Chrome browser automation.
// Every call opens its own tab, so Fetcher is safe for concurrent use by
// multiple goroutines.
type Fetcher struct {
	manager *BrowserManager
}

// NewFetcher creates a new Fetcher. Close must be called when the Fetcher
// is no longer needed.
//
// Returns an error if Chrome/Chromium cannot be found, launched or reached.
func NewFetcher(opts ...ManagerOption) (*Fetcher, error) {
	manager, err := NewBrowserManager(opts...)
	if err != nil {
		return nil, err
	}
	return &Fetcher{manager: manager}, nil
}

// Fetch navigates to the URL, waits for the network to go idle and returns
// the rendered HTML. The context deadline bounds the whole navigation.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var html string
	err := f.withPage(ctx, url, func(page *rod.Page) error {
		var err error
		html, err = page.HTML()
		return err
	})
	return html, err
}

// FetchLinks navigates to the URL and returns the resolved href of every
// anchor on the rendered page.
func (f *Fetcher) FetchLinks(ctx context.Context, url string) ([]string, error) {
	var links []string
	err := f.withPage(ctx, url, func(page *rod.Page) error {
		res, err := page.Eval(anchorsJS)
		if err != nil {
			return err
		}
		for _, v := range res.Value.Arr() {
			if s := v.Str(); s != "" {
				links = append(links, s)
			}
		}
		return nil
	})
	return links, err
}

// withPage opens a tab, navigates to url, waits for the network to settle
// and runs fn on the loaded page. The tab is closed afterwards.
func (f *Fetcher) withPage(ctx context.Context, url string, fn func(*rod.Page) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	browser, err := f.manager.acquire()
	if err != nil {
		return err
	}
	defer f.manager.release()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("open tab: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx)

	wait := page.WaitRequestIdle(networkIdle, nil, nil, nil)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	wait()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("wait for %s: %w", url, err)
	}

	return fn(page)
}

// Close releases browser resources.
func (f *Fetcher) Close() error {
	return f.manager.Close()
}

// LauncherPID returns the process ID of the browser launcher.
func (f *Fetcher) LauncherPID() int {
	return f.manager.LauncherPID()
}
