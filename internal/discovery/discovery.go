package discovery

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/sailingworker/helpers"
	"sjsage522/sailingworker/internal/crawler"
	"sjsage522/sailingworker/logger"
	"sjsage522/sailingworker/pkg/errors"
	"sjsage522/sailingworker/services/cache"
)

// Method records which rule produced a Result
type Method string

const (
	MethodVendorDomain  Method = "vendor_domain"
	MethodOverride      Method = "override"
	MethodDOMProbe      Method = "dom_probe"
	MethodNameHeuristic Method = "name_heuristic"
)

const cacheNamespace = "discovery"

// Result is a resolved booking platform and its canonical schedule URL
type Result struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
	Method   Method `json:"method"`
}

// DefaultOverrides maps landing names to FareHarbor company slugs
var DefaultOverrides = map[string]string{
	"Marina Del Rey Sportfishing": "mdrsf",
	"Davey's Locker":              "daveyslocker",
	"Dana Wharf Sportfishing":     "danawharf",
}

// nameGuesses are virtual landing deployments named after the harbor
var nameGuesses = []struct {
	keyword string
	url     string
}{
	{"pierpoint", "https://pierpoint.virtuallanding.com/"},
	{"redondo", "https://redondo.virtuallanding.com/"},
	{"ventura", "https://ventura.virtuallanding.com/"},
}

var (
	fareHarborSlugRe   = regexp.MustCompile(`(?i)(?:fareharbor\.com|fh-sites\.com)/([^/?#]+)`)
	fareHarborEmbedRe  = regexp.MustCompile(`(?i)fareharbor\.com/embeds/book/([^/?#]+)`)
	fareHarborScriptRe = regexp.MustCompile(`(?i)fareharbor\.com/([^/?#]+)/embeds`)
)

// Discoverer maps a landing's marketing URL to a vendor platform. Rules are
// tried in order: vendor domain, override table, page probe, name guess.
type Discoverer struct {
	renderer  crawler.Renderer
	cache     cache.CacheService
	ttl       time.Duration
	overrides map[string]string
	limiter   crawler.Limiter
	log       *logger.Logger
}

// Option configures a Discoverer
type Option func(*Discoverer)

// WithCache caches successful results for ttl
func WithCache(c cache.CacheService, ttl time.Duration) Option {
	return func(d *Discoverer) {
		d.cache = c
		d.ttl = ttl
	}
}

// WithOverrides adds landing name to FareHarbor slug entries
func WithOverrides(overrides map[string]string) Option {
	return func(d *Discoverer) {
		for name, slug := range overrides {
			d.overrides[helpers.NormalizeName(name)] = slug
		}
	}
}

// WithLimiter makes page probes wait on l, the limiter the worker renders with
func WithLimiter(l crawler.Limiter) Option {
	return func(d *Discoverer) {
		d.limiter = l
	}
}

// New creates a Discoverer probing pages with renderer
func New(renderer crawler.Renderer, opts ...Option) *Discoverer {
	d := &Discoverer{
		renderer:  renderer,
		overrides: make(map[string]string),
		log:       logger.ForDiscovery(),
	}
	for name, slug := range DefaultOverrides {
		d.overrides[helpers.NormalizeName(name)] = slug
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover resolves the platform for one landing. No match returns a
// discovery failure; the caller skips the target.
func (d *Discoverer) Discover(ctx context.Context, landingName, startURL string) (*Result, error) {
	if r := Canonicalize(startURL); r != nil {
		return r, nil
	}

	key := cache.Key(cacheNamespace, landingName, startURL)
	if r := d.cached(key); r != nil {
		d.log.Debug().Str("landing", landingName).Str("platform", r.Platform).Msg("discovery cache hit")
		return r, nil
	}

	r, err := d.discover(ctx, landingName, startURL)
	if err != nil {
		return nil, err
	}
	d.store(key, r)
	return r, nil
}

func (d *Discoverer) discover(ctx context.Context, landingName, startURL string) (*Result, error) {
	if slug, ok := d.overrides[helpers.NormalizeName(landingName)]; ok {
		return &Result{Platform: crawler.PlatformFareHarbor, URL: fareHarborItems(slug), Method: MethodOverride}, nil
	}

	if d.renderer != nil && startURL != "" {
		if err := crawler.WaitTurn(ctx, d.limiter, startURL); err != nil {
			return nil, err
		}
		page, err := d.renderer.Render(ctx, startURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			d.log.Warn().Err(err).Str("landing", landingName).Str("url", startURL).Msg("probe failed")
		} else if r := Probe(page); r != nil {
			return r, nil
		}
	}

	if r := GuessByName(landingName); r != nil {
		return r, nil
	}
	return nil, errors.NewDiscovery(startURL, "no booking platform found for "+landingName)
}

func (d *Discoverer) cached(key string) *Result {
	if d.cache == nil {
		return nil
	}
	data, err := d.cache.Get(key)
	if err != nil {
		if !stderrors.Is(err, cache.ErrMiss) {
			d.log.Warn().Err(err).Msg("discovery cache unavailable")
		}
		return nil
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil || r.URL == "" {
		return nil
	}
	return &r
}

func (d *Discoverer) store(key string, r *Result) {
	if d.cache == nil {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := d.cache.Set(key, data, d.ttl); err != nil {
		d.log.Warn().Err(err).Msg("discovery cache write failed")
	}
}

// Canonicalize recognizes URLs already on a vendor domain
func Canonicalize(rawURL string) *Result {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return nil
	}
	host := strings.ToLower(u.Hostname())

	switch {
	case strings.HasSuffix(host, "fishingreservations.net"):
		path := strings.ToLower(u.Path)
		if strings.Contains(path, "/sales") || strings.Contains(path, "user.php") {
			return &Result{Platform: crawler.PlatformFRN, URL: rawURL, Method: MethodVendorDomain}
		}
		return &Result{Platform: crawler.PlatformFRN, URL: frnSales(host), Method: MethodVendorDomain}
	case strings.HasSuffix(host, "virtuallanding.com"):
		return &Result{Platform: crawler.PlatformVirtual, URL: rawURL, Method: MethodVendorDomain}
	case strings.HasSuffix(host, "fareharbor.com"), strings.HasSuffix(host, "fh-sites.com"):
		out := rawURL
		if slug := fareHarborSlug(rawURL); slug != "" {
			out = fareHarborItems(slug)
		}
		return &Result{Platform: crawler.PlatformFareHarbor, URL: out, Method: MethodVendorDomain}
	case strings.Contains(host, "xola.com"):
		return &Result{Platform: crawler.PlatformXola, URL: rawURL, Method: MethodVendorDomain}
	}
	return nil
}

// Probe scans a rendered marketing page, frames included, for links and
// embeds pointing at a vendor
func Probe(page *crawler.Page) *Result {
	docs := page.Documents()

	for _, d := range docs {
		if href := firstAttr(d.Doc, "a[href*='fishingreservations.net/']", "href"); href != "" {
			host := helpers.Hostname(helpers.ResolveURL(d.URL, href))
			if host != "" {
				return &Result{Platform: crawler.PlatformFRN, URL: frnSales(host), Method: MethodDOMProbe}
			}
		}
	}

	for _, d := range docs {
		var found string
		d.Doc.Find("a[href*='fareharbor.com/'], a[href*='fh-sites.com/'], iframe[src*='fareharbor.com/']").
			EachWithBreak(func(_ int, s *goquery.Selection) bool {
				link, ok := s.Attr("href")
				if !ok {
					link, _ = s.Attr("src")
				}
				found = fareHarborSlug(link)
				return found == ""
			})
		if found == "" {
			d.Doc.Find("script[src*='fareharbor.com/']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
				src, _ := s.Attr("src")
				if m := fareHarborScriptRe.FindStringSubmatch(src); m != nil && !strings.EqualFold(m[1], "embeds") {
					found = m[1]
				}
				return found == ""
			})
		}
		if found != "" {
			return &Result{Platform: crawler.PlatformFareHarbor, URL: fareHarborItems(found), Method: MethodDOMProbe}
		}
	}

	for _, d := range docs {
		if href := firstAttr(d.Doc, "a[href*='xola']", "href"); href != "" {
			return &Result{Platform: crawler.PlatformXola, URL: helpers.ResolveURL(d.URL, href), Method: MethodDOMProbe}
		}
	}

	for _, d := range docs {
		if href := firstAttr(d.Doc, "a[href*='virtuallanding.com/']", "href"); href != "" {
			return &Result{Platform: crawler.PlatformVirtual, URL: helpers.ResolveURL(d.URL, href), Method: MethodDOMProbe}
		}
	}
	return nil
}

// GuessByName maps harbor names with a known virtual landing deployment
func GuessByName(landingName string) *Result {
	name := strings.ToLower(landingName)
	for _, g := range nameGuesses {
		if strings.Contains(name, g.keyword) {
			return &Result{Platform: crawler.PlatformVirtual, URL: g.url, Method: MethodNameHeuristic}
		}
	}
	return nil
}

func firstAttr(doc *goquery.Document, selector, attr string) string {
	v, _ := doc.Find(selector).First().Attr(attr)
	return strings.TrimSpace(v)
}

// fareHarborSlug extracts the company slug, looking past /embeds/book/
func fareHarborSlug(link string) string {
	if m := fareHarborEmbedRe.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	m := fareHarborSlugRe.FindStringSubmatch(link)
	if m == nil || strings.EqualFold(m[1], "embeds") || strings.EqualFold(m[1], "api") {
		return ""
	}
	return m[1]
}

func fareHarborItems(slug string) string {
	return "https://fareharbor.com/" + slug + "/items/"
}

func frnSales(host string) string {
	sub := strings.Split(host, ".")[0]
	return "https://" + sub + ".fishingreservations.net/sales/"
}
