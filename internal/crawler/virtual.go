package crawler

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/sailingworker/helpers"
)

const (
	virtualRows     = ".schedule-row, .trip-row, .event-row, li:has(a), .event, .trip, .schedule-item, .row"
	maxFollowLinks  = 5
	virtualHostPart = "virtuallanding.com"
)

var (
	virtualLinkSelectors = []string{"a[href*='book']", "a[href]"}
	schedulePaths        = []string{"/schedule", "/schedules", "/trips", "/calendar"}
	scheduleLinkRe       = regexp.MustCompile(`(?i)schedule|trip|calendar|book|reserve`)
)

// VirtualExtractor reads Virtual Landing schedule pages, which show either a
// schedule table or a list of trip rows
type VirtualExtractor struct{}

// NewVirtualExtractor creates the virtual landing extractor
func NewVirtualExtractor() *VirtualExtractor {
	return &VirtualExtractor{}
}

func (e *VirtualExtractor) Name() string  { return PlatformVirtual }
func (e *VirtualExtractor) Priority() int { return 70 }

func (e *VirtualExtractor) Detect(rawURL string) bool {
	return strings.Contains(helpers.Hostname(rawURL), virtualHostPart)
}

func (e *VirtualExtractor) Extract(page *Page) []RawListing {
	return firstNonEmpty(page, func(d Document) []RawListing {
		if out := collect(e.Name(), tableRowBlocks(d, PlatformVirtual, virtualLinkSelectors)); len(out) > 0 {
			return out
		}
		return collect(e.Name(), innermostBlocks(d, virtualRows, PlatformVirtual, nil))
	})
}

// FollowLinks lists same-host schedule pages one hop from page: the
// conventional schedule paths first, then anchors that look like schedules
func (e *VirtualExtractor) FollowLinks(page *Page) []string {
	base, err := url.Parse(page.URL)
	if err != nil || base.Host == "" {
		return nil
	}
	origin := base.Scheme + "://" + base.Host

	seen := map[string]bool{strings.TrimRight(page.URL, "/"): true}
	var links []string
	add := func(u string) {
		key := strings.TrimRight(u, "/")
		if seen[key] || len(links) >= maxFollowLinks {
			return
		}
		seen[key] = true
		links = append(links, u)
	}

	for _, p := range schedulePaths {
		add(origin + p)
	}
	for _, d := range page.Documents() {
		d.Doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			abs := helpers.ResolveURL(d.URL, href)
			if !strings.HasPrefix(abs, "http") || !helpers.SameHost(abs, page.URL) {
				return
			}
			if u, err := url.Parse(abs); err == nil && scheduleLinkRe.MatchString(u.Path) {
				u.Fragment = ""
				add(u.String())
			}
		})
	}
	return links
}
