package heuristics

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// LengthLabel is a recognized trip duration phrase
type LengthLabel struct {
	Label string
	Days  int
}

var (
	overnightRe = regexp.MustCompile(`(?i)\bover\s*night\b`)
	fullDayRe   = regexp.MustCompile(`(?i)\bfull[\s-]*day\b`)
	multiDayRe  = regexp.MustCompile(`(?i)\b(\d{1,2}(?:\.5)?)[\s-]*days?\b`)
)

// ParseLengthLabel finds the first duration phrase that moves the return to a later date.
// Half and three-quarter day phrases return ok=false since they carry no day offset.
func ParseLengthLabel(text string) (LengthLabel, bool) {
	type hit struct {
		pos   int
		label LengthLabel
	}
	var best *hit
	consider := func(pos int, l LengthLabel) {
		if best == nil || pos < best.pos {
			best = &hit{pos, l}
		}
	}

	if loc := overnightRe.FindStringIndex(text); loc != nil {
		consider(loc[0], LengthLabel{Label: "Overnight", Days: 1})
	}
	if loc := fullDayRe.FindStringIndex(text); loc != nil {
		consider(loc[0], LengthLabel{Label: "Full Day", Days: 1})
	}
	for _, m := range multiDayRe.FindAllStringSubmatchIndex(text, -1) {
		raw := text[m[2]:m[3]]
		// "1/2 Day" and "3/4 Day" are fractions, not day counts
		if m[2] > 0 && text[m[2]-1] == '/' {
			continue
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || n < 1 {
			continue
		}
		days := int(n + 0.5)
		consider(m[0], LengthLabel{Label: strings.TrimSpace(text[m[0]:m[1]]), Days: days})
		break
	}

	if best == nil {
		return LengthLabel{}, false
	}
	return best.label, true
}

// ComputeReturnFromLength derives a return time from depart and a duration phrase.
// Without a recognized phrase the return stays unknown.
func ComputeReturnFromLength(depart time.Time, text string) *time.Time {
	l, ok := ParseLengthLabel(text)
	if !ok {
		return nil
	}
	ret := depart.AddDate(0, 0, l.Days)
	return &ret
}
