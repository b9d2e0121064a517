package snapshot

import (
	"strings"
	"time"

	"gitlab.com/henri.philipps/showwatch"
	"gitlab.com/henri.philipps/showwatch/date"
	"gitlab.com/henri.philipps/showwatch/link"
)

// BuildShows is building a show snapshot from raw scraped items.
//
// Links are normalized, items without a usable link are dropped. Date texts
// are parsed relative to now, unparsable ones are ignored. Items normalizing to
// the same link are merged: dates are unioned in order of first appearance and
// the first non-empty title is kept. Ticket summaries are ignored.
func BuildShows(items []showwatch.RawItem, normalizer *link.Normalizer, now time.Time) *Snapshot[*showwatch.Show] {
	b := newShowBuilder()

	for _, item := range items {
		var raw, title string
		var texts []string

		switch it := item.(type) {
		case showwatch.RawLinkOnly:
			raw = it.Link
		case *showwatch.RawLinkOnly:
			if it == nil {
				continue
			}
			raw = it.Link
		case showwatch.RawLinkWithDates:
			raw, title, texts = it.Link, it.Title, it.DateTexts
		case *showwatch.RawLinkWithDates:
			if it == nil {
				continue
			}
			raw, title, texts = it.Link, it.Title, it.DateTexts
		default:
			continue
		}

		l, ok := normalizer.Normalize(raw)
		if !ok {
			continue
		}

		dates := make([]string, 0, len(texts))
		for _, text := range texts {
			if d, ok := date.ParseLocalized(text, now); ok {
				dates = append(dates, d)
			}
		}

		b.add(l, strings.TrimSpace(title), dates)
	}

	return b.snapshot()
}

// BuildSeats is building a seat snapshot from raw ticket summaries.
//
// The ticket url is used as key as it is. The count is the number of seat
// titles containing priceMarker (case insensitive), the title falls back to
// showwatch.UnknownTitle and the date is taken from the page's date text or
// the show date hint. The first summary for an url wins, other items are ignored.
func BuildSeats(items []showwatch.RawItem, priceMarker string, now time.Time) *Snapshot[*showwatch.Seat] {
	s := New[*showwatch.Seat]()

	for _, item := range items {
		var sum showwatch.RawTicketSummary

		switch it := item.(type) {
		case showwatch.RawTicketSummary:
			sum = it
		case *showwatch.RawTicketSummary:
			if it == nil {
				continue
			}
			sum = *it
		default:
			continue
		}

		url := strings.TrimSpace(sum.URL)
		if url == "" {
			continue
		}

		seats := PricedSeats(sum.SeatTitles, priceMarker)

		title := strings.TrimSpace(sum.Heading)
		if title == "" {
			title = showwatch.UnknownTitle
		}

		d, ok := date.ParseLocalized(sum.DateText, now)
		if !ok && date.IsCanonical(sum.ShowDate) {
			d = sum.ShowDate
		}

		s.add(&showwatch.Seat{
			URL:   url,
			Title: title,
			Count: len(seats),
			Date:  d,
			Seats: seats,
		})
	}

	return s
}

// PricedSeats returns the seat titles containing marker, i.e. seats which can be bought.
func PricedSeats(titles []string, marker string) []string {
	marker = strings.ToLower(marker)
	priced := []string{}
	for _, t := range titles {
		if t != "" && strings.Contains(strings.ToLower(t), marker) {
			priced = append(priced, t)
		}
	}
	return priced
}

// showBuilder is merging shows by link.
type showBuilder struct {
	shows *Snapshot[*showwatch.Show]
	dates map[string]*link.Set[string]
}

func newShowBuilder() *showBuilder {
	return &showBuilder{shows: New[*showwatch.Show](), dates: map[string]*link.Set[string]{}}
}

func (b *showBuilder) add(l, title string, dates []string) {
	if l == "" {
		return
	}

	show, ok := b.shows.Get(l)
	if !ok {
		show = &showwatch.Show{Link: l, Title: title}
		b.shows.add(show)
		b.dates[l] = link.NewSet[string]()
	}
	if show.Title == "" {
		show.Title = title
	}

	for _, d := range dates {
		b.dates[l].Add(d)
	}
}

func (b *showBuilder) snapshot() *Snapshot[*showwatch.Show] {
	for _, show := range b.shows.Entities() {
		show.Dates = b.dates[show.Link].Items()
	}
	return b.shows
}
