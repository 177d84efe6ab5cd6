package crawler

import (
	"regexp"
	"strings"
)

const (
	genericBlocks    = "a, article, li, .card, .fh-item, .xola-activity, .booking-item, .trip, .row, .item"
	maxGenericBlocks = 500
)

var (
	durationKeywordRe = regexp.MustCompile(`(?i)\b(?:day|hour|overnight)|\b1/2\b|\b3/4\b`)
	rateSheetRe       = regexp.MustCompile(`(?i)\bcharter\s*rates?\b`)
)

// GenericExtractor is the permissive fallback for sites without a known
// booking engine. It accepts any block that mentions a price and a trip length.
type GenericExtractor struct{}

// NewGenericExtractor creates the fallback extractor
func NewGenericExtractor() *GenericExtractor {
	return &GenericExtractor{}
}

func (e *GenericExtractor) Name() string         { return PlatformGeneric }
func (e *GenericExtractor) Priority() int        { return 0 }
func (e *GenericExtractor) Detect(_ string) bool { return true }

// Extract scans every document, stopping once the block cap is reached
func (e *GenericExtractor) Extract(page *Page) []RawListing {
	var blocks []Block
	for _, d := range page.Documents() {
		blocks = append(blocks, innermostBlocks(d, genericBlocks, PlatformGeneric, isFareBlock)...)
		if len(blocks) >= maxGenericBlocks {
			blocks = blocks[:maxGenericBlocks]
			break
		}
	}
	return collect(e.Name(), blocks)
}

func isFareBlock(text string) bool {
	return strings.Contains(text, "$") &&
		durationKeywordRe.MatchString(text) &&
		!rateSheetRe.MatchString(text)
}
