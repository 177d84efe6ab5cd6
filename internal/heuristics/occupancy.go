package heuristics

import (
	"regexp"
	"strconv"
)

// Occupancy is the open-spot count and, when known, the boat's capacity
type Occupancy struct {
	Open     int
	Capacity *int
}

const occupancyWindow = 8

var (
	ofRe      = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:of|/)\s*(\d{1,3})\b`)
	blacklist = regexp.MustCompile(`(?i)(?:\b1/2\b|\b3/4\b|\d+\s*-?\s*(?:hours?|hrs?)\b|\d+\s*-?\s*days?\b)`)
	spotsRe   = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:spots?|seats?)?\s*(?:available|open|left|remaining)\b|\b(\d{1,3})\s+(?:spots?|seats?)\b`)
	soldOutRe = regexp.MustCompile(`(?i)\bsold[\s-]*out\b`)
)

// ParseOccupancy reads "X of Y" / "X/Y" when the text around the match does not
// look like a duration, then falls back to "N spots|available|open" and "sold out".
func ParseOccupancy(text string) (Occupancy, bool) {
	for _, m := range ofRe.FindAllStringSubmatchIndex(text, -1) {
		// part of a date such as 6/14/2025
		if (m[0] > 0 && text[m[0]-1] == '/') || (m[1] < len(text) && text[m[1]] == '/') {
			continue
		}
		start := max(0, m[0]-occupancyWindow)
		end := min(len(text), m[1]+occupancyWindow)
		if blacklist.MatchString(text[start:end]) {
			continue
		}
		open, _ := strconv.Atoi(text[m[2]:m[3]])
		capacity, _ := strconv.Atoi(text[m[4]:m[5]])
		if capacity == 0 || open > capacity {
			continue
		}
		return Occupancy{Open: open, Capacity: &capacity}, true
	}

	if m := spotsRe.FindStringSubmatch(text); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		open, _ := strconv.Atoi(raw)
		return Occupancy{Open: open}, true
	}

	if soldOutRe.MatchString(text) {
		return Occupancy{Open: 0}, true
	}
	return Occupancy{}, false
}
