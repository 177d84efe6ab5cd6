package crawler

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"sjsage522/sailingworker/helpers"
	"sjsage522/sailingworker/logger"
)

const (
	defaultSettleDelay = 1500 * time.Millisecond
	chromeUserAgent    = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	frameSourcesJS     = `Array.from(document.querySelectorAll('iframe[src]')).map(f => f.src).filter(s => /^https?:/.test(s))`
)

// ChromeOptions configures the headless browser
type ChromeOptions struct {
	ExecPath    string
	UserAgent   string
	PageTimeout time.Duration
	SettleDelay time.Duration
	MaxFrames   int
}

// ChromeRenderer loads pages in headless Chrome so client-rendered widgets
// are present in the captured HTML. One browser is shared; each Render opens
// its own tab.
type ChromeRenderer struct {
	opts          ChromeOptions
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
}

// NewChromeRenderer starts the browser
func NewChromeRenderer(opts ChromeOptions) (*ChromeRenderer, error) {
	if opts.SettleDelay == 0 {
		opts.SettleDelay = defaultSettleDelay
	}
	if opts.MaxFrames == 0 {
		opts.MaxFrames = defaultMaxFrames
	}
	if opts.UserAgent == "" {
		opts.UserAgent = chromeUserAgent
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.UserAgent(opts.UserAgent),
	)
	chromeBin := opts.ExecPath
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	if chromeBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser %q: %w", chromeBin, err)
	}

	logger.ForWorker().Info().Str("binary", chromeBin).Msg("Headless browser started")
	return &ChromeRenderer{
		opts:          opts,
		browserCtx:    browserCtx,
		cancelAlloc:   cancelAlloc,
		cancelBrowser: cancelBrowser,
	}, nil
}

// Render navigates a fresh tab to url, waits for the body plus a settle
// delay, and captures the document and its iframes. The page timeout bounds
// the whole operation; cancelling ctx closes the tab.
func (r *ChromeRenderer) Render(ctx context.Context, url string) (*Page, error) {
	start := time.Now()

	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.opts.PageTimeout)
	defer cancelTimeout()

	var (
		location string
		html     string
		srcs     []string
	)
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.opts.SettleDelay),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Evaluate(frameSourcesJS, &srcs),
	)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		return nil, renderError(url, time.Since(start), err)
	}
	if location == "" {
		location = url
	}

	page := &Page{URL: location, HTML: html}
	log := logger.ForExtractor("chrome")
	seen := map[string]bool{}
	for _, src := range srcs {
		if len(page.Frames) >= r.opts.MaxFrames {
			break
		}
		src = helpers.ResolveURL(location, src)
		if seen[src] {
			continue
		}
		seen[src] = true

		var frameHTML string
		err := chromedp.Run(tabCtx,
			chromedp.Navigate(src),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(r.opts.SettleDelay),
			chromedp.OuterHTML("html", &frameHTML, chromedp.ByQuery),
		)
		if err != nil {
			log.Debug().Err(err).Str("frame", src).Msg("frame load failed")
			if tabCtx.Err() != nil {
				break
			}
			continue
		}
		page.Frames = append(page.Frames, Frame{URL: src, HTML: frameHTML})
	}
	return page, nil
}

// Close shuts the browser down
func (r *ChromeRenderer) Close() error {
	r.cancelBrowser()
	r.cancelAlloc()
	return nil
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
