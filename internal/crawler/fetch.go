package crawler

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/sailingworker/helpers"
	"sjsage522/sailingworker/logger"
	"sjsage522/sailingworker/pkg/errors"
)

const defaultMaxFrames = 4

// HTTPRenderer loads pages with plain GET requests. Iframes are fetched as
// separate documents, which covers booking widgets embedded by src.
type HTTPRenderer struct {
	fetcher   *helpers.Fetcher
	maxFrames int
	limiter   Limiter
}

// NewHTTPRenderer creates a renderer on top of fetcher. Frame fetches wait on
// limiter; the caller waits before Render itself.
func NewHTTPRenderer(fetcher *helpers.Fetcher, maxFrames int, limiter Limiter) *HTTPRenderer {
	return &HTTPRenderer{fetcher: fetcher, maxFrames: maxFrames, limiter: limiter}
}

// WaitTurn blocks on l before fetching url. A nil limiter never blocks.
func WaitTurn(ctx context.Context, l Limiter, url string) error {
	if l == nil {
		return nil
	}
	if err := l.Wait(ctx); err != nil {
		return errors.New(errors.ErrorTypeExtractionTimeout, url, "rate limiter wait aborted", err)
	}
	return nil
}

// Render fetches url and up to maxFrames of its iframes. Frame failures are
// logged and skipped; only a main document failure is returned.
func (r *HTTPRenderer) Render(ctx context.Context, url string) (*Page, error) {
	start := time.Now()
	resp, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, renderError(url, time.Since(start), err)
	}

	page := &Page{URL: resp.URL, HTML: string(resp.Body)}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return page, nil
	}

	log := logger.ForExtractor("http")
	for _, src := range frameSources(doc, page.URL, r.maxFrames) {
		if err := WaitTurn(ctx, r.limiter, src); err != nil {
			log.Debug().Err(err).Str("frame", src).Msg("frame skipped")
			break
		}
		fr, err := r.fetcher.Fetch(ctx, src)
		if err != nil {
			log.Debug().Err(err).Str("frame", src).Msg("frame fetch failed")
			continue
		}
		page.Frames = append(page.Frames, Frame{URL: fr.URL, HTML: string(fr.Body)})
	}
	return page, nil
}

// Close is a no-op; the fetcher owns no resources
func (r *HTTPRenderer) Close() error {
	return nil
}

// frameSources lists resolvable iframe srcs in document order
func frameSources(doc *goquery.Document, base string, limit int) []string {
	var srcs []string
	seen := map[string]bool{}
	doc.Find("iframe[src]").EachWithBreak(func(_ int, f *goquery.Selection) bool {
		if len(srcs) >= limit {
			return false
		}
		src := strings.TrimSpace(f.AttrOr("src", ""))
		lower := strings.ToLower(src)
		if src == "" || strings.HasPrefix(lower, "about:") || strings.HasPrefix(lower, "data:") || strings.HasPrefix(lower, "javascript:") {
			return true
		}
		abs := helpers.ResolveURL(base, src)
		if !seen[abs] {
			seen[abs] = true
			srcs = append(srcs, abs)
		}
		return true
	})
	return srcs
}

// renderError classifies a failed page load. Deadlines become extraction
// timeouts; everything else is a network error unless already typed.
func renderError(url string, elapsed time.Duration, err error) error {
	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return errors.NewExtractionTimeout(url, elapsed.Round(time.Millisecond), err)
	}
	if errors.TypeOf(err) != "" {
		return err
	}
	return errors.NewNetwork(url, fmt.Sprintf("render failed after %v", elapsed.Round(time.Millisecond)), err)
}
