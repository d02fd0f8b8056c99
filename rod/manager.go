package rod

import (
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// DefaultRecycleAfter is the default number of pages before a locally
// launched browser is recycled.
const DefaultRecycleAfter = 75

// BrowserManager owns one browser connection shared by all workers of a
// crawl. A locally launched browser is recycled after a number of pages to
// keep Chrome's memory in check; recycling waits until no page is open so
// in-flight fetches never lose their tab. A remote browser is never
// recycled.
//
// BrowserManager is safe for concurrent use.
type BrowserManager struct {
	controlURL   string
	recycleAfter int

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	pages    int // pages served since launch
	open     int // pages currently in use
	closed   bool
}

// ManagerOption configures a BrowserManager.
type ManagerOption func(*BrowserManager)

// WithRecycleAfter sets the number of pages before a local browser is
// recycled. Zero disables recycling.
func WithRecycleAfter(n int) ManagerOption {
	return func(bm *BrowserManager) {
		bm.recycleAfter = n
	}
}

// WithControlURL connects to an already running browser (for example a
// browserless container) instead of launching Chrome locally.
func WithControlURL(u string) ManagerOption {
	return func(bm *BrowserManager) {
		bm.controlURL = u
	}
}

// NewBrowserManager connects to a browser. Close must be called when the
// BrowserManager is no longer needed.
func NewBrowserManager(opts ...ManagerOption) (*BrowserManager, error) {
	bm := &BrowserManager{
		recycleAfter: DefaultRecycleAfter,
	}
	for _, opt := range opts {
		opt(bm)
	}
	if bm.controlURL != "" {
		bm.recycleAfter = 0
	}

	if err := bm.connect(); err != nil {
		return nil, err
	}

	return bm, nil
}

// acquire returns the browser to open a page on. Every call must be paired
// with a release.
func (bm *BrowserManager) acquire() (*rod.Browser, error) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.closed {
		return nil, fmt.Errorf("browser manager closed")
	}
	if bm.recycleAfter > 0 && bm.pages >= bm.recycleAfter && bm.open == 0 {
		bm.recycle()
	}

	bm.pages++
	bm.open++
	return bm.browser, nil
}

func (bm *BrowserManager) release() {
	bm.mu.Lock()
	bm.open--
	bm.mu.Unlock()
}

// Close releases browser resources. Close is safe to call multiple times.
func (bm *BrowserManager) Close() error {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.closed {
		return nil
	}
	bm.closed = true
	return bm.closeBrowser()
}

// connect attaches to the remote browser or launches a local one with
// stability flags.
func (bm *BrowserManager) connect() error {
	if bm.controlURL != "" {
		browser := rod.New().ControlURL(bm.controlURL)
		if err := browser.Connect(); err != nil {
			return fmt.Errorf("connecting to browser at %s: %w", bm.controlURL, err)
		}
		bm.browser = browser
		return nil
	}

	lnchr := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		Leakless(true).
		Headless(true)

	u, err := lnchr.Launch()
	if err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		lnchr.Kill()
		return fmt.Errorf("connecting to browser: %w", err)
	}

	bm.browser = browser
	bm.launcher = lnchr
	return nil
}

// closeBrowser shuts down the current browser and launcher.
// Must be called with mu held.
func (bm *BrowserManager) closeBrowser() error {
	var err error
	if bm.browser != nil {
		err = bm.browser.Close()
		bm.browser = nil
	}
	if bm.launcher != nil {
		bm.launcher.Kill()
		bm.launcher = nil
	}
	return err
}

// recycle starts a fresh browser and closes the old one. If launching the
// new browser fails, the old browser is kept.
// Must be called with mu held.
func (bm *BrowserManager) recycle() {
	oldBrowser, oldLauncher := bm.browser, bm.launcher
	bm.browser, bm.launcher = nil, nil

	if err := bm.connect(); err != nil {
		bm.browser, bm.launcher = oldBrowser, oldLauncher
		return
	}

	if oldBrowser != nil {
		_ = oldBrowser.Close()
	}
	if oldLauncher != nil {
		oldLauncher.Kill()
	}
	bm.pages = 0
}

// LauncherPID returns the process ID of the browser launcher, or zero for
// a remote browser. This method exists for testing purposes to verify
// proper cleanup.
func (bm *BrowserManager) LauncherPID() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if bm.launcher == nil {
		return 0
	}
	return bm.launcher.PID()
}
