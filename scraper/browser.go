package scraper

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"web-scraper-app/utils"
)

var _ Fetcher = (*BrowserFetcher)(nil)

// BrowserFetcher renders pages in headless Chrome, for listing pages that
// build their content with JavaScript.
type BrowserFetcher struct {
	allocCtx    context.Context
	browserCtx  context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc

	start    sync.Once
	startErr error

	timeout time.Duration
	settle  time.Duration
	waitFor string
	logger  *utils.Logger
}

// BrowserConfig holds the BrowserFetcher settings. Zero values pick defaults.
type BrowserConfig struct {
	ChromeBin string
	UserAgent string
	Timeout   time.Duration
	Settle    time.Duration
	WaitFor   string
}

// NewBrowserFetcher starts a headless browser allocator. The browser process
// itself is launched lazily on the first Fetch.
func NewBrowserFetcher(cfg BrowserConfig, logger *utils.Logger) *BrowserFetcher {
	chromeBin := cfg.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	if chromeBin != "" {
		logger.Info("[browser] Using browser binary: %s", chromeBin)
	} else {
		logger.Warn("[browser] No Chrome binary found, relying on chromedp lookup")
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(ua),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	// chromedp logs every unknown CDP event otherwise
	browserCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	b := &BrowserFetcher{
		allocCtx:    allocCtx,
		browserCtx:  browserCtx,
		cancelAlloc: cancelAlloc,
		cancelTab:   cancelTab,
		timeout:     cfg.Timeout,
		settle:      cfg.Settle,
		waitFor:     cfg.WaitFor,
		logger:      logger,
	}
	if b.timeout <= 0 {
		b.timeout = 60 * time.Second
	}
	if b.settle <= 0 {
		b.settle = 2 * time.Second
	}
	if b.waitFor == "" {
		b.waitFor = "body"
	}
	return b
}

// launch starts the browser process once. Tabs opened from browserCtx share
// it; without this first Run every tab would spawn its own browser.
func (b *BrowserFetcher) launch() error {
	b.start.Do(func() {
		if err := chromedp.Run(b.browserCtx); err != nil {
			b.startErr = fmt.Errorf("browser: launch: %w", err)
			return
		}
		b.logger.Info("[browser] Browser started")
	})
	return b.startErr
}

// Fetch navigates a fresh tab to url and returns the rendered document.
func (b *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := b.launch(); err != nil {
		return "", err
	}

	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(b.waitFor, chromedp.ByQuery),
		chromedp.Sleep(b.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("browser: render %s: %w", url, err)
	}
	b.logger.Debug("[browser] Rendered %s (%d bytes)", url, len(html))
	return html, nil
}

// Close shuts the browser down.
func (b *BrowserFetcher) Close() error {
	b.cancelTab()
	b.cancelAlloc()
	return nil
}

// findChromeBinary locates a Chrome or Chromium executable: CHROME_BIN first,
// then PATH, then the usual install locations.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	for _, name := range []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	for _, p := range []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
