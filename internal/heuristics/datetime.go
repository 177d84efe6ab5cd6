package heuristics

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dateTimeRe = regexp.MustCompile(`(?i)\b(\d{1,2})[/-](\d{1,2})[/-](\d{4}|\d{2})\s+(\d{1,2}):(\d{2})\s*([AP])\.?M\.?`)

// DateTimes is the depart/return pair found in a block of text
type DateTimes struct {
	Depart time.Time
	Return *time.Time
}

// FindDateTimes returns every valid MM/DD/YYYY HH:MM AM|PM in document order
func FindDateTimes(text string) []time.Time {
	var out []time.Time
	for _, m := range dateTimeRe.FindAllStringSubmatch(text, -1) {
		if t, ok := buildTime(m[1:]); ok {
			out = append(out, t)
		}
	}
	return out
}

// ParseDateTimes treats the first match as depart and the second as return,
// by position and never by value. ok is false when nothing matched.
func ParseDateTimes(text string) (DateTimes, bool) {
	hits := FindDateTimes(text)
	if len(hits) == 0 {
		return DateTimes{}, false
	}
	dt := DateTimes{Depart: hits[0]}
	if len(hits) > 1 {
		ret := hits[1]
		dt.Return = &ret
	}
	return dt, true
}

func buildTime(p []string) (time.Time, bool) {
	month, _ := strconv.Atoi(p[0])
	day, _ := strconv.Atoi(p[1])
	year, _ := strconv.Atoi(p[2])
	hour, _ := strconv.Atoi(p[3])
	minute, _ := strconv.Atoi(p[4])
	if year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > 31 || hour < 1 || hour > 12 || minute > 59 {
		return time.Time{}, false
	}

	pm := strings.EqualFold(p[5], "P")
	switch {
	case pm && hour < 12:
		hour += 12
	case !pm && hour == 12:
		hour = 0
	}

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, Location)
	// time.Date normalizes Feb 30 into March; reject those
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}
