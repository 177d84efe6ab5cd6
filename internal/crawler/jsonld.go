package crawler

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/sailingworker/helpers"
	"sjsage522/sailingworker/internal/heuristics"
	"sjsage522/sailingworker/internal/models"
)

var jsonLDLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// jsonLDEvents reads schema.org Event nodes from ld+json scripts. Events
// without a parseable start or an in-range price are dropped.
func jsonLDEvents(d Document, platform string) []RawListing {
	var out []RawListing
	d.Doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		var data any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &data); err != nil {
			return
		}
		for _, node := range flattenJSONLD(data) {
			if l, ok := eventListing(node, d.URL, platform); ok {
				out = append(out, l)
			}
		}
	})
	return out
}

func flattenJSONLD(data any) []map[string]any {
	var nodes []map[string]any
	switch v := data.(type) {
	case []any:
		for _, item := range v {
			nodes = append(nodes, flattenJSONLD(item)...)
		}
	case map[string]any:
		if graph, ok := v["@graph"]; ok {
			nodes = append(nodes, flattenJSONLD(graph)...)
		}
		nodes = append(nodes, v)
	}
	return nodes
}

func isEvent(node map[string]any) bool {
	switch t := node["@type"].(type) {
	case string:
		return strings.HasSuffix(t, "Event")
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.HasSuffix(s, "Event") {
				return true
			}
		}
	}
	return false
}

func eventListing(node map[string]any, pageURL, platform string) (RawListing, bool) {
	if !isEvent(node) {
		return RawListing{}, false
	}
	start, ok := parseJSONLDTime(stringField(node, "startDate"))
	if !ok {
		return RawListing{}, false
	}
	offer := firstOffer(node["offers"])
	cents, ok := offerCents(offer)
	if !ok {
		return RawListing{}, false
	}

	text := helpers.CleanText(stringField(node, "name") + " " + stringField(node, "description"))
	if whaleWatchRe.MatchString(text) {
		return RawListing{}, false
	}

	l := RawListing{
		Title:       helpers.CleanText(stringField(node, "name")),
		DepartLocal: start,
		Timezone:    models.Timezone,
		PriceTiers: []models.FareTier{{
			Type: models.FareAdult, Label: "Adult", PriceCents: cents, Currency: currencyOf(offer),
		}},
		Flags:     heuristics.ParseFlags(text),
		Promo:     heuristics.DetectPromotion(text),
		SourceURL: pageURL,
		Platform:  platform,
		Text:      text,
	}
	if l.Title == "" {
		l.Title = DeriveTitle(text)
	}
	if end, ok := parseJSONLDTime(stringField(node, "endDate")); ok {
		l.ReturnLocal = &end
	} else {
		l.ReturnLocal = heuristics.ComputeReturnFromLength(start, text)
	}
	if u := stringField(node, "url"); u != "" {
		l.SourceURL = helpers.ResolveURL(pageURL, u)
	}
	if n, ok := intField(node, "maximumAttendeeCapacity"); ok {
		l.Load = &n
	}
	if n, ok := intField(node, "remainingAttendeeCapacity"); ok {
		l.SpotsOpen = &n
	}
	if offer != nil && strings.HasSuffix(stringField(offer, "availability"), "SoldOut") && l.SpotsOpen == nil {
		zero := 0
		l.SpotsOpen = &zero
	}
	l.Status = heuristics.ParseStatus(text, l.SpotsOpen)
	return l, true
}

func parseJSONLDTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range jsonLDLayouts {
		var t time.Time
		var err error
		if layout == time.RFC3339 {
			t, err = time.Parse(layout, raw)
		} else {
			t, err = time.ParseInLocation(layout, raw, heuristics.Location)
		}
		if err == nil {
			return t.In(heuristics.Location), true
		}
	}
	return time.Time{}, false
}

func firstOffer(v any) map[string]any {
	switch o := v.(type) {
	case map[string]any:
		return o
	case []any:
		for _, item := range o {
			if m, ok := item.(map[string]any); ok {
				if _, has := m["price"]; has {
					return m
				}
			}
		}
	}
	return nil
}

func offerCents(offer map[string]any) (int64, bool) {
	if offer == nil {
		return 0, false
	}
	var price float64
	switch p := offer["price"].(type) {
	case float64:
		price = p
	case string:
		f, err := strconv.ParseFloat(strings.TrimLeft(strings.ReplaceAll(p, ",", ""), "$ "), 64)
		if err != nil {
			return 0, false
		}
		price = f
	default:
		return 0, false
	}
	cents := int64(math.Round(price * 100))
	if cents < heuristics.MinFareCents || cents > heuristics.MaxFareCents {
		return 0, false
	}
	return cents, true
}

func currencyOf(offer map[string]any) string {
	if c := stringField(offer, "priceCurrency"); c != "" {
		return strings.ToUpper(c)
	}
	return "USD"
}

func stringField(node map[string]any, key string) string {
	if node == nil {
		return ""
	}
	s, _ := node[key].(string)
	return s
}

func intField(node map[string]any, key string) (int, bool) {
	switch v := node[key].(type) {
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}
