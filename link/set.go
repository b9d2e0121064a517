package link

// Set is an insertion ordered set. The first occurrence of an element wins.
type Set[T comparable] struct {
	seen  map[T]struct{}
	items []T
}

// NewSet returns a Set holding the given items.
func NewSet[T comparable](items ...T) *Set[T] {
	s := &Set[T]{seen: map[T]struct{}{}}
	for _, i := range items {
		s.Add(i)
	}
	return s
}

// Add is adding item if it isn't in the set yet and reports whether it was added.
func (s *Set[T]) Add(item T) bool {
	if _, ok := s.seen[item]; ok {
		return false
	}
	s.seen[item] = struct{}{}
	s.items = append(s.items, item)
	return true
}

// Contains is reporting whether item is in the set.
func (s *Set[T]) Contains(item T) bool {
	_, ok := s.seen[item]
	return ok
}

// Len returns the number of items in the set.
func (s *Set[T]) Len() int {
	return len(s.items)
}

// Items returns the items in order of first insertion.
func (s *Set[T]) Items() []T {
	return append([]T{}, s.items...)
}
