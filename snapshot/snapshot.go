// Package snapshot builds normalized snapshots from scraped items, compares
// them to the last persisted snapshot and decides what needs to be persisted.
//
// Everything in this package is free of I/O.
package snapshot

import (
	"gitlab.com/henri.philipps/showwatch"
)

// Entity is anything that can be kept in a Snapshot.
type Entity interface {
	Key() string
}

// Snapshot is an insertion ordered collection of entities, unique by key.
// A nil Snapshot is an empty snapshot.
type Snapshot[E Entity] struct {
	keys  []string
	items map[string]E
}

// New is returning a Snapshot of the given entities. Entities with an empty key
// are skipped and the first entity for a key wins.
func New[E Entity](entities ...E) *Snapshot[E] {
	s := &Snapshot[E]{items: map[string]E{}}
	for _, e := range entities {
		s.add(e)
	}
	return s
}

// Shows is returning a snapshot of persisted shows. Links are taken as they are,
// the dates of duplicate links are merged.
func Shows(shows []*showwatch.Show) *Snapshot[*showwatch.Show] {
	b := newShowBuilder()
	for _, show := range shows {
		if show == nil {
			continue
		}
		b.add(show.Link, show.Title, show.Dates)
	}
	return b.snapshot()
}

// Seats is returning a snapshot of persisted seat records.
func Seats(seats []*showwatch.Seat) *Snapshot[*showwatch.Seat] {
	s := New[*showwatch.Seat]()
	for _, seat := range seats {
		if seat != nil {
			s.add(seat.Clone())
		}
	}
	return s
}

func (s *Snapshot[E]) add(e E) bool {
	key := e.Key()
	if key == "" {
		return false
	}
	if _, ok := s.items[key]; ok {
		return false
	}
	s.keys = append(s.keys, key)
	s.items[key] = e
	return true
}

// Len returns the number of entities.
func (s *Snapshot[E]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Keys returns the keys in insertion order.
func (s *Snapshot[E]) Keys() []string {
	if s == nil {
		return []string{}
	}
	return append([]string{}, s.keys...)
}

// Get returns the entity for key.
func (s *Snapshot[E]) Get(key string) (E, bool) {
	var zero E
	if s == nil {
		return zero, false
	}
	e, ok := s.items[key]
	return e, ok
}

// Has is reporting whether an entity with key exists.
func (s *Snapshot[E]) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Entities returns all entities in insertion order.
func (s *Snapshot[E]) Entities() []E {
	entities := make([]E, 0, s.Len())
	for _, k := range s.Keys() {
		entities = append(entities, s.items[k])
	}
	return entities
}

// Filter returns a new snapshot with the entities keep returns true for.
func (s *Snapshot[E]) Filter(keep func(E) bool) *Snapshot[E] {
	filtered := New[E]()
	for _, e := range s.Entities() {
		if keep(e) {
			filtered.add(e)
		}
	}
	return filtered
}

// SameKeys is reporting whether both snapshots hold the same set of keys, regardless of order.
func (s *Snapshot[E]) SameKeys(other *Snapshot[E]) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, k := range s.Keys() {
		if !other.Has(k) {
			return false
		}
	}
	return true
}
