package catalog

import (
	"slices"
	"sync"
)

// Index is the synchronized handle to the catalog being built in a run.
// All mutation goes through Submit and SubmitOrReplace.
type Index struct {
	mu      sync.RWMutex
	entries Catalog
}

// NewIndex wraps a copy of c. c must be sorted and duplicate-free
// (Store.Load guarantees this).
func NewIndex(c Catalog) *Index {
	return &Index{entries: slices.Clone(c)}
}

// Submit locates e.Title in the catalog as it stands now and inserts e if
// the title is new. Locate and insert happen under one write lock, so a
// worker that lost a race observes the winner's entry and gets
// AlreadyPresent.
func (x *Index) Submit(e Entry) Outcome {
	x.mu.Lock()
	defer x.mu.Unlock()

	outcome := Locate(x.entries, e.Title)
	if !outcome.Present {
		x.entries = Insert(x.entries, outcome.Position, e)
	}
	return outcome
}

// SubmitOrReplace behaves like Submit, except that when the title is
// already cataloged and replace approves the existing entry, e takes its
// place. The displaced entry is returned with replaced set. replace runs
// under the write lock and must not call back into x.
func (x *Index) SubmitOrReplace(e Entry, replace func(existing Entry) bool) (outcome Outcome, displaced Entry, replaced bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	outcome = Locate(x.entries, e.Title)
	if !outcome.Present {
		x.entries = Insert(x.entries, outcome.Position, e)
		return outcome, Entry{}, false
	}
	if replace != nil && replace(x.entries[outcome.Position]) {
		displaced = x.entries[outcome.Position]
		x.entries[outcome.Position] = e
		return outcome, displaced, true
	}
	return outcome, Entry{}, false
}

// Contains reports whether title is cataloged. The answer may be stale by
// the time the caller acts on it; use it to skip work, never to decide an
// insertion.
func (x *Index) Contains(title string) bool {
	_, ok := x.Lookup(title)
	return ok
}

// Lookup returns the entry with the given title.
func (x *Index) Lookup(title string) (Entry, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	outcome := Locate(x.entries, title)
	if !outcome.Present {
		return Entry{}, false
	}
	return x.entries[outcome.Position], true
}

// Snapshot returns a copy of the current catalog.
func (x *Index) Snapshot() Catalog {
	x.mu.RLock()
	defer x.mu.RUnlock()

	return slices.Clone(x.entries)
}

// Len returns the number of entries.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	return len(x.entries)
}
