package heuristics

import (
	"regexp"
	"strconv"

	"sjsage522/sailingworker/internal/models"
)

var (
	fullRe      = regexp.MustCompile(`(?i)\b(?:full|sold[\s-]*out|no\s+spots)\b`)
	waitlistRe  = regexp.MustCompile(`(?i)\bwait[\s-]*list`)
	charteredRe = regexp.MustCompile(`(?i)\b(?:chartered|private\s+charter)\b`)
	loadLabelRe = regexp.MustCompile(`(?i)\bload\s*:\s*(\d{1,3})\b`)
	spotLabelRe = regexp.MustCompile(`(?i)\bspots\s*:\s*(\d{1,3}|full|waitlist|chartered)\b`)
	feeRe       = regexp.MustCompile(`(?i)\binclud(?:es|ing)\s+(?:a\s+)?(\d{1,2}(?:\.\d{1,2})?)\s*%`)
)

// ParseStatus derives the trip status. Known zero open spots means FULL.
func ParseStatus(text string, open *int) string {
	switch {
	case charteredRe.MatchString(text):
		return models.StatusChartered
	case waitlistRe.MatchString(text):
		return models.StatusWaitlist
	case fullRe.MatchString(fullDayRe.ReplaceAllString(text, " ")):
		return models.StatusFull
	case open != nil && *open == 0:
		return models.StatusFull
	}
	return models.StatusOpen
}

// LabeledCounts reads "Load: N" and "Spots: N" fields. A word value in
// Spots ("Full", "Waitlist") yields zero open spots.
func LabeledCounts(text string) (load, spots *int) {
	if m := loadLabelRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		load = &n
	}
	if m := spotLabelRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			n = 0
		}
		spots = &n
	}
	return load, spots
}

// ParseServiceFee reads "includes 3.5%" style fee notes
func ParseServiceFee(text string) (*float64, bool) {
	m := feeRe.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, false
	}
	return &pct, true
}
