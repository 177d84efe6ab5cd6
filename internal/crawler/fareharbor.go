package crawler

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"sjsage522/sailingworker/helpers"
)

const (
	fareHarborLinks = "a[href*='/book/'], .fh-card a[href], .fh-item a[href], .tour-card a[href], " +
		".activity-card a[href], a[href*='/items/'], a[href*='full-items='], a:contains('Book'), a:contains('Reserve')"
	cardContainer = "li, article, [class*='card'], [class*='item'], [class*='listing'], [class*='activity']"
	cardHeading   = "h1, h2, h3, h4, h5, [class*='title'], [class*='name']"
)

var availabilityRe = regexp.MustCompile(`/availability/(\d+)`)

// FareHarborExtractor reads item cards from fareharbor.com booking pages,
// falling back to schema.org Event markup when no card parses
type FareHarborExtractor struct{}

// NewFareHarborExtractor creates the card-based extractor
func NewFareHarborExtractor() *FareHarborExtractor {
	return &FareHarborExtractor{}
}

func (e *FareHarborExtractor) Name() string  { return PlatformFareHarbor }
func (e *FareHarborExtractor) Priority() int { return 90 }

func (e *FareHarborExtractor) Detect(rawURL string) bool {
	host := helpers.Hostname(rawURL)
	return strings.Contains(host, "fareharbor.com") || strings.Contains(host, "fh-sites.com")
}

// Extract parses the main document first and only falls through to frames
// when it yields nothing
func (e *FareHarborExtractor) Extract(page *Page) []RawListing {
	return firstNonEmpty(page, func(d Document) []RawListing {
		if out := collect(e.Name(), cardBlocks(d, PlatformFareHarbor)); len(out) > 0 {
			return out
		}
		return jsonLDEvents(d, PlatformFareHarbor)
	})
}

// cardBlocks reads the nearest card container around each booking anchor.
// A card holding several anchors is read once.
func cardBlocks(d Document, platform string) []Block {
	var blocks []Block
	seen := map[*html.Node]bool{}

	d.Doc.Find(fareHarborLinks).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" || strings.HasPrefix(href, "#") {
			return
		}

		card := a.Closest(cardContainer)
		if card.Length() == 0 {
			card = a
		}
		node := card.Get(0)
		if seen[node] {
			return
		}
		seen[node] = true

		text := nodeText(card)
		if text == "" {
			return
		}
		sourceURL := helpers.ResolveURL(d.URL, href)
		b := Block{
			Text:      text,
			SourceURL: sourceURL,
			Platform:  platform,
		}
		if m := availabilityRe.FindStringSubmatch(sourceURL); m != nil {
			b.ItemID = m[1]
		}
		if h := nodeText(card.Find(cardHeading).First()); h != "" {
			b.Title = DeriveTitle(h)
		}
		blocks = append(blocks, b)
	})
	return blocks
}

// firstNonEmpty runs fn over the page documents in order and returns the
// first non-empty result
func firstNonEmpty(page *Page, fn func(Document) []RawListing) []RawListing {
	for _, d := range page.Documents() {
		if out := fn(d); len(out) > 0 {
			return out
		}
	}
	return nil
}
