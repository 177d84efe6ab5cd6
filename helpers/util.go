package helpers

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9]+`)
)

// CleanText collapses runs of whitespace and trims the result
func CleanText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// NormalizeName lowercases s and turns every run of non-alphanumerics into one space
func NormalizeName(s string) string {
	return strings.TrimSpace(nonAlnumRe.ReplaceAllString(strings.ToLower(s), " "))
}

// Slugify is NormalizeName joined with dashes
func Slugify(s string) string {
	return strings.ReplaceAll(NormalizeName(s), " ", "-")
}

// ResolveURL resolves href against base. Unparseable input returns href unchanged.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

// Hostname returns the lowercased host of rawURL without port, or "" if unparseable
func Hostname(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// SameHost reports whether a and b share a hostname, ignoring a leading "www."
func SameHost(a, b string) bool {
	ha := strings.TrimPrefix(Hostname(a), "www.")
	hb := strings.TrimPrefix(Hostname(b), "www.")
	return ha != "" && ha == hb
}
