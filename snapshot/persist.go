package snapshot

import (
	"gitlab.com/henri.philipps/showwatch"
	"gitlab.com/henri.philipps/showwatch/date"
)

// FirstRun is reporting whether prev is an empty baseline. Nothing is notified on a first run.
func FirstRun[E Entity](prev *Snapshot[E]) bool {
	return prev.Len() == 0
}

// ShouldPersist decides whether cur has to replace prev in storage.
//
// It is true on a first run, when the diff is notable, when the key sets of
// both snapshots differ, e.g. after removals, or when modified reports any
// unchanged entity as modified, e.g. a decreased seat count. A nil modified
// only considers the diff and the keys.
func ShouldPersist[E Entity](prev, cur *Snapshot[E], d Diff[E], modified func(old, new E) bool) bool {
	if FirstRun(prev) {
		return true
	}
	if d.Notable() {
		return true
	}
	if !prev.SameKeys(cur) {
		return true
	}
	if modified == nil {
		return false
	}
	for _, e := range d.Unchanged {
		if old, ok := prev.Get(e.Key()); ok && modified(old, e) {
			return true
		}
	}
	return false
}

// MergeWindow applies a weekend-only seat snapshot to the previously persisted one.
//
// Entries of cur dated inside the window replace their previous version, previous
// entries dated outside of the window are carried forward unchanged and previous
// entries inside the window which were not seen again are dropped. A previous
// entry inside the window whose page now names a date outside of it is replaced
// by the current entry.
func MergeWindow(prev, cur *Snapshot[*showwatch.Seat], w date.Window) *Snapshot[*showwatch.Seat] {
	merged := New[*showwatch.Seat]()

	for _, p := range prev.Entities() {
		c, seen := cur.Get(p.URL)
		switch {
		case seen && w.Contains(c.Date):
			merged.add(c)
		case !w.Contains(p.Date):
			merged.add(p)
		case seen:
			// moved out of the window
			merged.add(c)
		}
	}

	for _, c := range cur.Entities() {
		if w.Contains(c.Date) {
			merged.add(c)
		}
	}

	return merged
}
