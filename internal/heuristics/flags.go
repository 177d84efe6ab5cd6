package heuristics

import (
	"regexp"
	"strings"

	"sjsage522/sailingworker/internal/models"
)

// Flag names carried on a raw listing
const (
	FlagMeals    = "meals included"
	FlagPassport = "passport required"
	FlagPermits  = "permits included"
)

var (
	mealsRe    = regexp.MustCompile(`(?i)\bmeals?\s+(?:are\s+)?incl`)
	passportRe = regexp.MustCompile(`(?i)\bpassports?\s+(?:is\s+|are\s+)?req`)
	permitsRe  = regexp.MustCompile(`(?i)\b(?:mexican\s+)?permits?\s+(?:are\s+)?incl`)
	kidsFreeRe = regexp.MustCompile(`(?i)\bkids?\s+fish\s+free\b`)
	pctOffRe   = regexp.MustCompile(`(?i)\b(\d{1,2})\s*%\s*off\b`)
	weekdayRe  = regexp.MustCompile(`(?i)\b(?:weekdays?|mon(?:day)?\s*-\s*(?:thu|fri))`)
	weekendRe  = regexp.MustCompile(`(?i)\bweekends?\b`)
)

// ParseFlags lists the amenity and requirement flags mentioned in text
func ParseFlags(text string) []string {
	var flags []string
	if mealsRe.MatchString(text) {
		flags = append(flags, FlagMeals)
	}
	if passportRe.MatchString(text) {
		flags = append(flags, FlagPassport)
	}
	if permitsRe.MatchString(text) {
		flags = append(flags, FlagPermits)
	}
	return flags
}

// HasFlag reports whether flags contains name
func HasFlag(flags []string, name string) bool {
	for _, f := range flags {
		if f == name {
			return true
		}
	}
	return false
}

// DetectPromotion recognizes the promotional offers landings advertise inline
func DetectPromotion(text string) *models.TripPromotion {
	appliesWhen := ""
	switch {
	case weekdayRe.MatchString(text):
		appliesWhen = "weekdays"
	case weekendRe.MatchString(text):
		appliesWhen = "weekends"
	}

	if kidsFreeRe.MatchString(text) {
		return &models.TripPromotion{
			Slug:        "kids-fish-free",
			Summary:     "Kids fish free with paid adult",
			AppliesWhen: appliesWhen,
		}
	}
	if m := pctOffRe.FindStringSubmatch(text); m != nil {
		return &models.TripPromotion{
			Slug:        m[1] + "-pct-off",
			Summary:     m[1] + "% off",
			Details:     strings.TrimSpace(m[0]),
			AppliesWhen: appliesWhen,
		}
	}
	return nil
}
