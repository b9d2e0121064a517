package date

import (
	"time"
)

// Window is a set of canonical dates a run is restricted to.
type Window struct {
	dates []string
}

// NewWindow returns a window containing the given canonical dates.
func NewWindow(dates ...string) Window {
	return Window{dates: append([]string{}, dates...)}
}

// UpcomingWeekend is returning the next saturday and the next sunday after now.
// Both are looked up strictly in the future, so on a saturday the window holds
// tomorrow and the saturday a week later.
func UpcomingWeekend(now time.Time) Window {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return NewWindow(
		Format(today.AddDate(0, 0, daysUntil(now.Weekday(), time.Saturday))),
		Format(today.AddDate(0, 0, daysUntil(now.Weekday(), time.Sunday))),
	)
}

// Dates returns the dates of the window.
func (w Window) Dates() []string {
	return append([]string{}, w.dates...)
}

// Contains is reporting whether the canonical date d is in the window.
// Unknown dates are never in a window.
func (w Window) Contains(d string) bool {
	if d == "" {
		return false
	}
	for _, wd := range w.dates {
		if wd == d {
			return true
		}
	}
	return false
}

// Intersects is reporting whether any of dates is in the window.
func (w Window) Intersects(dates []string) bool {
	for _, d := range dates {
		if w.Contains(d) {
			return true
		}
	}
	return false
}

func daysUntil(from, to time.Weekday) int {
	d := (int(to) - int(from) + 7) % 7
	if d == 0 {
		d = 7
	}
	return d
}
