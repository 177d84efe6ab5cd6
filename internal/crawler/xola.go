package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"sjsage522/sailingworker/helpers"
)

const (
	xolaBlocks = ".trip, .activity, .event, .listing, .xola-activity, [class*='calendar'], section:has(a), li:has(a)"
	xolaLinks  = "a[href*='xola'], a:contains('Book'), a:contains('Reserve')"
)

// XolaExtractor reads activity blocks from Xola checkout pages and the
// landing sites that embed them
type XolaExtractor struct{}

// NewXolaExtractor creates the block-based extractor
func NewXolaExtractor() *XolaExtractor {
	return &XolaExtractor{}
}

func (e *XolaExtractor) Name() string  { return PlatformXola }
func (e *XolaExtractor) Priority() int { return 80 }

func (e *XolaExtractor) Detect(rawURL string) bool {
	return strings.Contains(helpers.Hostname(rawURL), "xola")
}

func (e *XolaExtractor) Extract(page *Page) []RawListing {
	return firstNonEmpty(page, func(d Document) []RawListing {
		if out := collect(e.Name(), innermostBlocks(d, xolaBlocks, PlatformXola, nil)); len(out) > 0 {
			return out
		}
		return jsonLDEvents(d, PlatformXola)
	})
}

// innermostBlocks reads every element matching selector that has a parseable
// date, keeping only the innermost of nested matches so a wrapping section
// does not merge its children into one listing. keep, when set, filters
// candidates by their text.
func innermostBlocks(d Document, selector, platform string, keep func(text string) bool) []Block {
	candidates := d.Doc.Find(selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		text := nodeText(s)
		if text == "" || !dateInRowRe.MatchString(text) {
			return false
		}
		return keep == nil || keep(text)
	})

	qualifying := map[*html.Node]bool{}
	candidates.Each(func(_ int, s *goquery.Selection) {
		qualifying[s.Get(0)] = true
	})

	var blocks []Block
	candidates.Each(func(_ int, s *goquery.Selection) {
		hasInner := false
		s.Find("*").EachWithBreak(func(_ int, c *goquery.Selection) bool {
			if qualifying[c.Get(0)] {
				hasInner = true
				return false
			}
			return true
		})
		if hasInner {
			return
		}

		href := blockHref(s, d.URL)
		blocks = append(blocks, Block{
			Text:      nodeText(s),
			SourceURL: href,
			ItemID:    tripIDParam(href),
			Platform:  platform,
		})
	})
	return blocks
}

// blockHref prefers a booking link inside the block, then the block itself
// when it is an anchor, then the page URL
func blockHref(s *goquery.Selection, base string) string {
	if href := firstHref(s, base, xolaLinks, "a[href*='book']", "a[href]"); href != "" {
		return href
	}
	if goquery.NodeName(s) == "a" {
		if href, ok := s.Attr("href"); ok && strings.TrimSpace(href) != "" && !strings.HasPrefix(href, "#") {
			return helpers.ResolveURL(base, href)
		}
	}
	return base
}
