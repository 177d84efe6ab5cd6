package heuristics

import (
	"regexp"
	"strconv"
	"strings"

	"sjsage522/sailingworker/internal/models"
)

var (
	labeledPriceRe = regexp.MustCompile(`(?i)\b(adults?|juniors?|kids?|child(?:ren)?|youth|seniors?|military|students?)\b([^$]{0,24})\$\s*(\d{1,3}(?:,\d{3})+|\d+)(?:\.(\d{1,2}))?`)
	underAgeRe     = regexp.MustCompile(`(?i)\b(?:under|below)\s*(\d{1,2})\b`)
	ageRangeRe     = regexp.MustCompile(`(?i)\b(?:ages?\s*)?(\d{1,2})\s*(?:-|to)\s*(\d{1,2})\b`)
	agePlusRe      = regexp.MustCompile(`\b(\d{1,2})\s*\+`)
	bareDateRe     = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-](?:\d{4}|\d{2})\b`)
)

// ClassifyFare maps a tier label onto a fare type
func ClassifyFare(label string) models.FareType {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "adult"):
		return models.FareAdult
	case strings.Contains(l, "junior"), strings.Contains(l, "kid"),
		strings.Contains(l, "child"), strings.Contains(l, "youth"):
		return models.FareJunior
	case strings.Contains(l, "senior"):
		return models.FareSenior
	case strings.Contains(l, "military"):
		return models.FareMilitary
	case strings.Contains(l, "student"):
		return models.FareStudent
	default:
		return models.FareOther
	}
}

// ParseAgeBounds reads "under 16", "12-15" and "65+" style qualifiers
func ParseAgeBounds(text string) (minAge, maxAge *int) {
	if m := underAgeRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		n--
		return nil, &n
	}
	if m := ageRangeRe.FindStringSubmatch(text); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		if lo <= hi {
			return &lo, &hi
		}
	}
	if m := agePlusRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return &n, nil
	}
	return nil, nil
}

// ParseFareTiers returns labeled tiers ("Adult $225 Junior $175") when present,
// otherwise a single ADULT tier from ParseMoney. Amounts outside the fare window are ignored.
func ParseFareTiers(text string) []models.FareTier {
	var tiers []models.FareTier
	seen := map[models.FareType]bool{}
	for _, m := range labeledPriceRe.FindAllStringSubmatch(text, -1) {
		cents, ok := toCents(m[3], m[4])
		if !ok || cents < MinFareCents || cents > MaxFareCents {
			continue
		}
		fareType := ClassifyFare(m[1])
		if seen[fareType] {
			continue
		}
		seen[fareType] = true

		label := strings.ToUpper(m[1][:1]) + strings.ToLower(m[1][1:])
		qualifier := ageQualifier(m[2])
		minAge, maxAge := ParseAgeBounds(qualifier)
		if qualifier != "" && (minAge != nil || maxAge != nil) {
			label += " (" + strings.TrimSpace(qualifier) + ")"
		}
		tiers = append(tiers, models.FareTier{
			Type:       fareType,
			Label:      label,
			PriceCents: cents,
			Currency:   "USD",
			MinAge:     minAge,
			MaxAge:     maxAge,
		})
	}
	if len(tiers) > 0 {
		return tiers
	}

	cents, ok := ParseMoney(text)
	if !ok {
		return nil
	}
	return []models.FareTier{{Type: models.FareAdult, Label: "Adult", PriceCents: cents, Currency: "USD"}}
}

// ageQualifier is the text between a tier label and its price with dates and
// departure times removed, so "6-14-2025" never reads as ages 6 to 14
func ageQualifier(text string) string {
	text = dateTimeRe.ReplaceAllString(text, " ")
	text = bareDateRe.ReplaceAllString(text, " ")
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimSpace(strings.Trim(text, "():-"))
}

// PrimaryPrice is the ADULT tier price, else the first tier's
func PrimaryPrice(tiers []models.FareTier) int64 {
	for _, t := range tiers {
		if t.Type == models.FareAdult {
			return t.PriceCents
		}
	}
	if len(tiers) > 0 {
		return tiers[0].PriceCents
	}
	return 0
}
