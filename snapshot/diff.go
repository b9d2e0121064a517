package snapshot

import (
	"slices"

	"gitlab.com/henri.philipps/showwatch"
	"gitlab.com/henri.philipps/showwatch/link"
)

// Change is an entity present in both snapshots with a notable difference.
type Change[E Entity] struct {
	Old E
	New E
}

// Diff is the classification of a current snapshot relative to a previous one.
// New, Changed and Unchanged partition the keys of the current snapshot,
// Removed holds the keys only found in the previous one.
type Diff[E Entity] struct {
	New       []E
	Changed   []Change[E]
	Unchanged []E
	Removed   []string
}

// Notable is reporting whether the diff contains anything worth notifying about.
func (d Diff[E]) Notable() bool {
	return len(d.New) > 0 || len(d.Changed) > 0
}

// ChangedEntities returns the current version of all changed entities.
func (d Diff[E]) ChangedEntities() []E {
	entities := make([]E, 0, len(d.Changed))
	for _, c := range d.Changed {
		entities = append(entities, c.New)
	}
	return entities
}

// Compare is classifying every entity of cur relative to prev. changed decides
// whether an entity present in both snapshots has changed. Entities keep the
// order of cur, removed keys the order of prev.
func Compare[E Entity](prev, cur *Snapshot[E], changed func(old, new E) bool) Diff[E] {
	d := Diff[E]{New: []E{}, Changed: []Change[E]{}, Unchanged: []E{}, Removed: []string{}}

	for _, e := range cur.Entities() {
		old, ok := prev.Get(e.Key())
		switch {
		case !ok:
			d.New = append(d.New, e)
		case changed(old, e):
			d.Changed = append(d.Changed, Change[E]{Old: old, New: e})
		default:
			d.Unchanged = append(d.Unchanged, e)
		}
	}

	for _, k := range prev.Keys() {
		if !cur.Has(k) {
			d.Removed = append(d.Removed, k)
		}
	}

	return d
}

// DiffShows is comparing show snapshots. A show changed when its set of dates
// differs, the order of the dates is not significant.
func DiffShows(prev, cur *Snapshot[*showwatch.Show]) Diff[*showwatch.Show] {
	return Compare(prev, cur, DatesChanged)
}

// DiffSeats is comparing seat snapshots. Only an increased seat count is a change.
func DiffSeats(prev, cur *Snapshot[*showwatch.Seat]) Diff[*showwatch.Seat] {
	return Compare(prev, cur, SeatsIncreased)
}

// DatesChanged is reporting whether the date sets of both shows differ.
func DatesChanged(old, cur *showwatch.Show) bool {
	a, b := link.NewSet(old.Dates...), link.NewSet(cur.Dates...)
	if a.Len() != b.Len() {
		return true
	}
	for _, d := range a.Items() {
		if !b.Contains(d) {
			return true
		}
	}
	return false
}

// ShowModified is reporting whether a show differs in anything that is persisted.
func ShowModified(old, cur *showwatch.Show) bool {
	return old.Title != cur.Title || DatesChanged(old, cur)
}

// SeatModified is reporting whether a seat record differs in anything that is
// persisted, including a decreased count.
func SeatModified(old, cur *showwatch.Seat) bool {
	if old.Count != cur.Count || old.Title != cur.Title || old.Date != cur.Date {
		return true
	}
	return !slices.Equal(old.Seats, cur.Seats)
}

// SeatsIncreased is reporting whether more seats are available than before.
func SeatsIncreased(old, cur *showwatch.Seat) bool {
	return cur.Count > old.Count
}
