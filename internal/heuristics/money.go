package heuristics

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Fare window in cents. Amounts outside it are deposits, fees or surcharges.
const (
	MinFareCents int64 = 50_00
	MaxFareCents int64 = 5000_00
)

var moneyRe = regexp.MustCompile(`\$\s*(\d{1,3}(?:,\d{3})+|\d+)(?:\.(\d{1,2}))?`)

// MoneyAmounts returns every dollar amount in text, in document order, as cents
func MoneyAmounts(text string) []int64 {
	matches := moneyRe.FindAllStringSubmatch(text, -1)
	out := make([]int64, 0, len(matches))
	for _, m := range matches {
		cents, ok := toCents(m[1], m[2])
		if ok {
			out = append(out, cents)
		}
	}
	return out
}

// ParseMoney picks the listed fare from text: the median of the amounts that
// fall inside the fare window. With an even count the upper middle wins.
func ParseMoney(text string) (int64, bool) {
	var in []int64
	for _, c := range MoneyAmounts(text) {
		if c >= MinFareCents && c <= MaxFareCents {
			in = append(in, c)
		}
	}
	if len(in) == 0 {
		return 0, false
	}
	sort.Slice(in, func(i, j int) bool { return in[i] < in[j] })
	return in[len(in)/2], true
}

func toCents(dollars, fraction string) (int64, bool) {
	d, err := strconv.ParseInt(strings.ReplaceAll(dollars, ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	var c int64
	if fraction != "" {
		if len(fraction) == 1 {
			fraction += "0"
		}
		c, err = strconv.ParseInt(fraction, 10, 64)
		if err != nil {
			return 0, false
		}
	}
	return d*100 + c, true
}
