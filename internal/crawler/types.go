package crawler

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/sailingworker/internal/models"
)

// Frame is an iframe document loaded alongside a page
type Frame struct {
	URL  string
	HTML string
}

// Page is a fully loaded booking page and its iframes
type Page struct {
	URL    string
	HTML   string
	Frames []Frame
}

// Document is a parsed page or frame with the URL links resolve against
type Document struct {
	URL string
	Doc *goquery.Document
}

// Documents parses the page and each frame, main document first.
// Frames that fail to parse are skipped.
func (p *Page) Documents() []Document {
	var docs []Document
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.HTML)); err == nil {
		docs = append(docs, Document{URL: p.URL, Doc: doc})
	}
	for _, f := range p.Frames {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(f.HTML))
		if err != nil {
			continue
		}
		docs = append(docs, Document{URL: f.URL, Doc: doc})
	}
	return docs
}

// RawListing is one sailing as extracted from a single page render
type RawListing struct {
	Title             string
	DepartLocal       time.Time
	ReturnLocal       *time.Time
	Timezone          string
	PriceTiers        []models.FareTier
	Load              *int
	SpotsOpen         *int
	Status            string
	Flags             []string
	Promo             *models.TripPromotion
	PriceIncludesFees bool
	ServiceFeePct     *float64
	SourceURL         string
	SourceItemID      string
	VesselGuess       string
	Platform          string
	Text              string
}

// PlatformExtractor turns a rendered page into raw listings for one vendor platform
type PlatformExtractor interface {
	// Name is the platform tag, e.g. "frn"
	Name() string

	// Priority orders extractors in the registry, higher first
	Priority() int

	// Detect reports whether url belongs to this platform
	Detect(url string) bool

	// Extract reads every listing on the page and its frames
	Extract(page *Page) []RawListing
}

// LinkFollower is implemented by extractors that can point at schedule
// pages one hop away when the landing page itself lists nothing
type LinkFollower interface {
	FollowLinks(page *Page) []string
}

// Renderer loads a URL into a Page
type Renderer interface {
	Render(ctx context.Context, url string) (*Page, error)
	Close() error
}

// Limiter spaces remote fetches; *rate.Limiter satisfies it
type Limiter interface {
	Wait(ctx context.Context) error
}
