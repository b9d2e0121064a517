// Package date parses the free text dates found on the theater's pages into
// canonical DD.MM.YYYY dates.
package date

import (
	"regexp"
	"strconv"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Layout is the canonical date layout.
const Layout = "02.01.2006"

// months maps genitive russian month names to months. Lookups are done on the
// lower cased token, so title case spellings match as well.
var months = map[string]time.Month{
	"января":   time.January,
	"февраля":  time.February,
	"марта":    time.March,
	"апреля":   time.April,
	"мая":      time.May,
	"июня":     time.June,
	"июля":     time.July,
	"августа":  time.August,
	"сентября": time.September,
	"октября":  time.October,
	"ноября":   time.November,
	"декабря":  time.December,
}

// a day of one or two digits (not the tail of a longer number) followed by a word
var dayMonth = regexp.MustCompile(`(?:^|\D)(\d{1,2})\s+(\p{L}+)`)

var lower = cases.Lower(language.Russian)

// ParseLocalized is extracting the first "<day> <month>" pair from text, e.g.
// "11 октября, суббота, 11:00", and returns it as canonical date. Pairs whose
// word is no month, like "11 часов", are skipped.
//
// The pages never state a year, so the year of now is assumed. Shows early next
// year are tagged with the current year when parsed in december.
func ParseLocalized(text string, now time.Time) (string, bool) {
	for _, m := range dayMonth.FindAllStringSubmatch(text, -1) {
		day, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		month, ok := months[lower.String(m[2])]
		if !ok {
			continue
		}

		t := time.Date(now.Year(), month, day, 0, 0, 0, 0, now.Location())
		// time.Date normalizes e.g. 31 february into march
		if t.Day() != day || t.Month() != month {
			return "", false
		}

		return Format(t), true
	}

	return "", false
}

// Format returns t as canonical date.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Parse is parsing a canonical date in loc.
func Parse(s string, loc *time.Location) (time.Time, bool) {
	if len(s) != len(Layout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(Layout, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsCanonical is reporting whether s is a valid canonical date.
func IsCanonical(s string) bool {
	_, ok := Parse(s, time.UTC)
	return ok
}

// Compare orders canonical dates chronologically. Dates which can't be parsed
// sort after all valid dates.
func Compare(a, b string) int {
	ta, okA := Parse(a, time.UTC)
	tb, okB := Parse(b, time.UTC)

	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return 1
	case !okB:
		return -1
	}
	return ta.Compare(tb)
}
