// Package notify is turning snapshot diffs into plain text notification messages
// and delivering them through a Publisher.
package notify

import (
	"fmt"
	"sort"
	"strings"

	"gitlab.com/henri.philipps/showwatch"
	"gitlab.com/henri.philipps/showwatch/date"
	"gitlab.com/henri.philipps/showwatch/snapshot"
)

const (
	NewShowsHeading     = "New shows:"
	UpdatedDatesHeading = "Updated dates:"
)

// Composer is composing the notification messages of a run.
type Composer struct {
	messageLimit int
	conciseLimit int
	summaryHead  int
}

// NewComposer returns a Composer using the message limits of cfg.
func NewComposer(cfg showwatch.Config) *Composer {
	c := &Composer{
		messageLimit: cfg.MessageLimit,
		conciseLimit: cfg.ConciseLimit,
		summaryHead:  cfg.SummaryHead,
	}
	if c.messageLimit <= 0 {
		c.messageLimit = showwatch.DefaultConfig().MessageLimit
	}
	if c.conciseLimit <= 0 {
		c.conciseLimit = showwatch.DefaultConfig().ConciseLimit
	}
	if c.summaryHead <= 0 || c.summaryHead > c.conciseLimit {
		c.summaryHead = min(showwatch.DefaultConfig().SummaryHead, c.conciseLimit)
	}
	return c
}

// Shows returns one message per non-empty group, new shows first and shows
// with updated dates second. Messages longer than the message limit are split.
func (c *Composer) Shows(d snapshot.Diff[*showwatch.Show]) []string {
	msgs := []string{}

	groups := []struct {
		heading string
		shows   []*showwatch.Show
	}{
		{heading: NewShowsHeading, shows: d.New},
		{heading: UpdatedDatesHeading, shows: d.ChangedEntities()},
	}

	for _, g := range groups {
		if len(g.shows) == 0 {
			continue
		}

		lines := []string{g.heading}
		for _, show := range c.concise(g.shows) {
			lines = append(lines, ShowLine(show))
		}
		if n := len(g.shows) - c.visible(len(g.shows)); n > 0 {
			lines = append(lines, fmt.Sprintf("... and %d more", n))
		}

		msgs = append(msgs, Split(strings.Join(lines, "\n"), c.messageLimit)...)
	}

	return msgs
}

// Seats returns one message per ticket page with more seats available than
// before, sorted by date with unknown dates last. New ticket pages are
// reported when they have any seat available.
func (c *Composer) Seats(d snapshot.Diff[*showwatch.Seat]) []string {
	type entry struct {
		seat  *showwatch.Seat
		delta int
	}

	entries := []entry{}
	for _, seat := range d.New {
		if seat.Count > 0 {
			entries = append(entries, entry{seat: seat, delta: seat.Count})
		}
	}
	for _, ch := range d.Changed {
		entries = append(entries, entry{seat: ch.New, delta: ch.New.Count - ch.Old.Count})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return date.Compare(entries[i].seat.Date, entries[j].seat.Date) < 0
	})

	msgs := []string{}
	for _, e := range entries {
		msgs = append(msgs, Split(SeatMessage(e.seat, e.delta), c.messageLimit)...)
	}
	return msgs
}

func (c *Composer) visible(n int) int {
	if n <= c.conciseLimit {
		return n
	}
	return c.summaryHead
}

func (c *Composer) concise(shows []*showwatch.Show) []*showwatch.Show {
	return shows[:c.visible(len(shows))]
}

// ShowLine is formatting a show as "title: link (date, date)".
func ShowLine(show *showwatch.Show) string {
	var b strings.Builder
	if show.Title != "" {
		b.WriteString(show.Title)
		b.WriteString(": ")
	}
	b.WriteString(show.Link)
	if len(show.Dates) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(show.Dates, ", "))
	}
	return b.String()
}

// SeatMessage is formatting the availability of a ticket page.
func SeatMessage(seat *showwatch.Seat, delta int) string {
	lines := []string{fmt.Sprintf("Tickets available: %s", seat.Title)}
	if seat.Date != "" {
		lines = append(lines, "Date: "+seat.Date)
	}
	lines = append(lines, fmt.Sprintf("Seats: %d (+%d)", seat.Count, delta))
	lines = append(lines, seat.URL)
	return strings.Join(lines, "\n")
}

// FilterWindow returns a diff reduced to the seat records dated inside w.
// Unchanged and removed entries are kept as they are.
func FilterWindow(d snapshot.Diff[*showwatch.Seat], w date.Window) snapshot.Diff[*showwatch.Seat] {
	filtered := snapshot.Diff[*showwatch.Seat]{
		New:       []*showwatch.Seat{},
		Changed:   []snapshot.Change[*showwatch.Seat]{},
		Unchanged: d.Unchanged,
		Removed:   d.Removed,
	}
	for _, seat := range d.New {
		if w.Contains(seat.Date) {
			filtered.New = append(filtered.New, seat)
		}
	}
	for _, ch := range d.Changed {
		if w.Contains(ch.New.Date) {
			filtered.Changed = append(filtered.Changed, ch)
		}
	}
	return filtered
}
