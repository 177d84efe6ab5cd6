package crawler

import (
	stderrors "errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"sjsage522/sailingworker/helpers"
	"sjsage522/sailingworker/internal/heuristics"
	"sjsage522/sailingworker/internal/models"
	"sjsage522/sailingworker/logger"
	"sjsage522/sailingworker/pkg/errors"
)

// Block is the text of one candidate listing plus whatever the extractor
// could read from structure around it
type Block struct {
	Text        string
	Title       string
	SourceURL   string
	ItemID      string
	VesselGuess string
	Platform    string
	// Grid occupancy read from table cells; overrides text parsing
	Load  *int
	Spots *int
}

const maxTitleRunes = 120

var (
	whaleWatchRe = regexp.MustCompile(`(?i)\bwhale\s*watch`)
	volatileRe   = regexp.MustCompile(`(?i)` + strings.Join([]string{
		`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}(?:\s+\d{1,2}:\d{2}\s*[ap]\.?m\.?)?`,
		`\b\d{1,2}:\d{2}\s*[ap]\.?m\.?`,
		`\$\s*[\d,]+(?:\.\d{1,2})?`,
		`\b\d{1,3}\s*of\s*\d{1,3}\b`,
		`\b(?:load|spots)\s*:\s*\w+`,
		`\b\d{1,3}\s*(?:spots?|seats?)?\s*(?:available|open|left|remaining)\b`,
		`\b(?:sold\s*out|wait\s*list|book(?:\s*now)?|reserve|details|open|available|includes?\s+[\d.]+\s*%)\b`,
		`\.{2,}|…`,
		`\b(?:mon|tues?|wed(?:nes)?|thu(?:rs?)?|fri|sat(?:ur)?|sun)(?:day)?\b\.?`,
	}, "|"))
	titleTrimSet = " -|:,.()/"
)

// ErrExcluded marks blocks that are deliberately skipped
var ErrExcluded = stderrors.New("excluded listing")

// BuildListing runs the text heuristics over a block. Blocks without a
// parseable depart time or fare are rejected with a parse_ambiguous error.
func BuildListing(b Block) (RawListing, error) {
	text := helpers.CleanText(b.Text)
	if whaleWatchRe.MatchString(text) || whaleWatchRe.MatchString(b.Title) {
		return RawListing{}, ErrExcluded
	}

	dt, ok := heuristics.ParseDateTimes(text)
	if !ok {
		return RawListing{}, errors.NewParseAmbiguous(b.SourceURL, "no depart date/time")
	}

	tiers := heuristics.ParseFareTiers(text)
	if len(tiers) == 0 {
		return RawListing{}, errors.NewParseAmbiguous(b.SourceURL, "no fare in range")
	}

	ret := dt.Return
	if ret == nil {
		ret = heuristics.ComputeReturnFromLength(dt.Depart, text)
	}

	load, spots := b.Load, b.Spots
	labeledLoad, labeledSpots := heuristics.LabeledCounts(text)
	if load == nil {
		load = labeledLoad
	}
	if spots == nil {
		spots = labeledSpots
	}
	if spots == nil {
		if occ, ok := heuristics.ParseOccupancy(text); ok {
			open := occ.Open
			spots = &open
			if load == nil {
				load = occ.Capacity
			}
		}
	}

	fee, includesFees := heuristics.ParseServiceFee(text)

	title := helpers.CleanText(b.Title)
	if title == "" {
		title = DeriveTitle(text)
	}

	return RawListing{
		Title:             title,
		DepartLocal:       dt.Depart,
		ReturnLocal:       ret,
		Timezone:          models.Timezone,
		PriceTiers:        tiers,
		Load:              load,
		SpotsOpen:         spots,
		Status:            heuristics.ParseStatus(text, spots),
		Flags:             heuristics.ParseFlags(text),
		Promo:             heuristics.DetectPromotion(text),
		PriceIncludesFees: includesFees,
		ServiceFeePct:     fee,
		SourceURL:         b.SourceURL,
		SourceItemID:      b.ItemID,
		VesselGuess:       helpers.CleanText(b.VesselGuess),
		Platform:          b.Platform,
		Text:              text,
	}, nil
}

// DeriveTitle strips dates, prices, occupancy and status words from block
// text so that the title stays stable while availability changes
func DeriveTitle(text string) string {
	title := helpers.CleanText(volatileRe.ReplaceAllString(text, " "))
	title = strings.Trim(title, titleTrimSet)
	title = helpers.CleanText(title)

	if utf8.RuneCountInString(title) > maxTitleRunes {
		runes := []rune(title)[:maxTitleRunes]
		cut := string(runes)
		if i := strings.LastIndex(cut, " "); i > maxTitleRunes/2 {
			cut = cut[:i]
		}
		title = strings.Trim(cut, titleTrimSet)
	}
	if title == "" {
		if l, ok := heuristics.ParseLengthLabel(text); ok {
			return l.Label
		}
		return "Trip"
	}
	return title
}

// DedupKey identifies a listing within a single pass
func DedupKey(l RawListing) string {
	return strings.Join([]string{
		helpers.NormalizeName(l.VesselGuess),
		helpers.NormalizeName(l.Title),
		strconv.FormatInt(heuristics.PrimaryPrice(l.PriceTiers), 10),
		strconv.FormatInt(l.DepartLocal.Unix(), 10),
	}, "|")
}

// Dedup keeps the first listing for each (vessel, title, price, depart) tuple
func Dedup(listings []RawListing) []RawListing {
	seen := make(map[string]bool, len(listings))
	out := make([]RawListing, 0, len(listings))
	for _, l := range listings {
		key := DedupKey(l)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	return out
}

// firstHref returns the first resolvable href matched by any selector, in selector order
func firstHref(s *goquery.Selection, base string, selectors ...string) string {
	for _, sel := range selectors {
		var found string
		s.Find(sel).EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, ok := a.Attr("href")
			href = strings.TrimSpace(href)
			if !ok || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
				return true
			}
			found = helpers.ResolveURL(base, href)
			return false
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// nodeText joins the text nodes under s with spaces so adjacent cells and
// spans do not run together. Script and style contents are skipped.
func nodeText(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return helpers.CleanText(b.String())
}

// collect runs BuildListing over blocks, logging drops at debug level
func collect(name string, blocks []Block) []RawListing {
	log := logger.ForExtractor(name)
	var out []RawListing
	for _, b := range blocks {
		l, err := BuildListing(b)
		if err != nil {
			if !stderrors.Is(err, ErrExcluded) {
				log.Debug().Err(err).Str("url", b.SourceURL).Msg("candidate dropped")
			}
			continue
		}
		out = append(out, l)
	}
	return out
}
