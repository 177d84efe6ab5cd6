package crawler

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/sailingworker/helpers"
)

var (
	priceCellRe = regexp.MustCompile(`\$\s*\d`)
	countCellRe = regexp.MustCompile(`^\d{1,3}$`)
	zeroCellRe  = regexp.MustCompile(`(?i)^(?:full|sold\s*out|wait\s*list|waitlist)$`)
	dateInRowRe = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`)
)

var frnLinkSelectors = []string{
	"a[href*='trip_id=']",
	"a[href*='/book/']",
	"a[href*='sales']",
	"a[href]",
}

// FRNExtractor reads the schedule tables served by fishingreservations.net
type FRNExtractor struct{}

// NewFRNExtractor creates the table-based extractor
func NewFRNExtractor() *FRNExtractor {
	return &FRNExtractor{}
}

func (e *FRNExtractor) Name() string  { return PlatformFRN }
func (e *FRNExtractor) Priority() int { return 100 }

func (e *FRNExtractor) Detect(rawURL string) bool {
	return strings.Contains(helpers.Hostname(rawURL), "fishingreservations.net")
}

func (e *FRNExtractor) Extract(page *Page) []RawListing {
	var blocks []Block
	for _, d := range page.Documents() {
		blocks = append(blocks, tableRowBlocks(d, PlatformFRN, frnLinkSelectors)...)
	}
	return collect(e.Name(), blocks)
}

// tableRowBlocks turns each data row of every table into a block. Rows whose
// link carries a trip_id already seen on the page are skipped.
func tableRowBlocks(d Document, platform string, linkSelectors []string) []Block {
	var blocks []Block
	seen := map[string]bool{}

	d.Doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		// layout rows wrapping a nested schedule table
		if row.Find("tr").Length() > 0 {
			return
		}
		text := nodeText(row)
		if text == "" || whaleWatchRe.MatchString(text) {
			return
		}

		href := firstHref(row, d.URL, linkSelectors...)
		itemID := tripIDParam(href)
		if itemID != "" {
			if seen[itemID] {
				return
			}
			seen[itemID] = true
		}
		if href == "" {
			href = d.URL
		}

		b := Block{
			Text:      text,
			SourceURL: href,
			ItemID:    itemID,
			Platform:  platform,
		}
		b.VesselGuess = nodeText(row.Find("[class*='boat'], [class*='vessel']").First())
		readGrid(row, &b)
		blocks = append(blocks, b)
	})
	return blocks
}

// readGrid applies the column convention: the cell left of the price is the
// boat's load and the cell right of it is the open spot count. The title is
// built from the remaining cells so it does not move with availability.
func readGrid(row *goquery.Selection, b *Block) {
	var cells []string
	row.Find("td, th").Each(func(_ int, c *goquery.Selection) {
		cells = append(cells, nodeText(c))
	})

	priceIdx := -1
	for i, c := range cells {
		if priceCellRe.MatchString(c) {
			priceIdx = i
			break
		}
	}
	if priceIdx < 0 || len(cells) < 3 {
		return
	}

	used := map[int]bool{priceIdx: true}
	if priceIdx > 0 {
		if n, ok := gridCount(cells[priceIdx-1]); ok {
			b.Load = &n
			used[priceIdx-1] = true
		}
	}
	if priceIdx+1 < len(cells) {
		if n, ok := gridCount(cells[priceIdx+1]); ok {
			b.Spots = &n
			used[priceIdx+1] = true
		}
	}

	var parts []string
	for i, c := range cells {
		if used[i] || c == "" || dateInRowRe.MatchString(c) {
			continue
		}
		parts = append(parts, c)
	}
	b.Title = DeriveTitle(strings.Join(parts, " "))
}

func gridCount(cell string) (int, bool) {
	cell = strings.TrimSpace(cell)
	if countCellRe.MatchString(cell) {
		n, err := strconv.Atoi(cell)
		return n, err == nil
	}
	if zeroCellRe.MatchString(cell) {
		return 0, true
	}
	return 0, false
}

// tripIDParam returns the vendor trip identifier carried in a booking URL
func tripIDParam(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	for _, key := range []string{"trip_id", "tripId", "id"} {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			return v
		}
	}
	return ""
}
