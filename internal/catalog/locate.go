package catalog

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// Outcome is the result of locating a title in a catalog.
// When Present is true, Position is the index of the existing entry and
// the catalog must not change. Otherwise Position is the insertion index.
type Outcome struct {
	Present  bool
	Position int
}

// AlreadyPresent reports a title found at index i.
func AlreadyPresent(i int) Outcome {
	return Outcome{Present: true, Position: i}
}

// InsertAt reports that a new entry belongs at index i.
func InsertAt(i int) Outcome {
	return Outcome{Position: i}
}

func (o Outcome) String() string {
	if o.Present {
		return fmt.Sprintf("AlreadyPresent(%d)", o.Position)
	}
	return fmt.Sprintf("InsertAt(%d)", o.Position)
}

func compareTitle(e Entry, title string) int {
	return strings.Compare(e.Title, title)
}

// Locate binary-searches the whole catalog for title.
func Locate(c Catalog, title string) Outcome {
	i, found := slices.BinarySearchFunc(c, title, compareTitle)
	if found {
		return AlreadyPresent(i)
	}
	return InsertAt(i)
}

// leading returns the first character of s as a string prefix, or "" for
// an empty string. Invalid UTF-8 yields its first byte.
func leading(s string) string {
	if s == "" {
		return ""
	}
	_, n := utf8.DecodeRuneInString(s)
	return s[:n]
}

// Bucket returns the inclusive range of entries whose title starts with
// the same character as title. Entries sharing a leading character are
// contiguous in a sorted catalog, so the first match from the front and
// the last match from the back delimit the run. ok is false when no entry
// shares the leading character. An empty title's bucket is the (at most
// one) entry with an empty title.
func Bucket(c Catalog, title string) (start, end int, ok bool) {
	lead := leading(title)

	start = slices.IndexFunc(c, func(e Entry) bool { return leading(e.Title) == lead })
	if start < 0 {
		return 0, 0, false
	}

	end = start
	for j := len(c) - 1; j > start; j-- {
		if leading(c[j].Title) == lead {
			end = j
			break
		}
	}
	return start, end, true
}

// LocateInBucket narrows the search to the leading-character bucket before
// binary searching on the full title. With no bucket it falls back to
// Locate, so the answer always equals Locate(c, title).
func LocateInBucket(c Catalog, title string) Outcome {
	low, high, ok := Bucket(c, title)
	if !ok {
		return Locate(c, title)
	}

	for low <= high {
		mid := int(uint(low+high) >> 1)
		switch cmp.Compare(c[mid].Title, title) {
		case 0:
			return AlreadyPresent(mid)
		case -1:
			low = mid + 1
		default:
			high = mid - 1
		}
	}
	return InsertAt(low)
}

// Insert places e at pos, shifting later entries. pos must come from a
// Locate outcome with Present == false; the result is then still sorted and
// duplicate-free. It panics if pos is out of range.
func Insert(c Catalog, pos int, e Entry) Catalog {
	return slices.Insert(c, pos, e)
}

// Validate reports the first ordering or uniqueness violation in c.
func Validate(c Catalog) error {
	for i := 1; i < len(c); i++ {
		switch cmp.Compare(c[i-1].Title, c[i].Title) {
		case 0:
			return fmt.Errorf("duplicate title %q at positions %d and %d", c[i].Title, i-1, i)
		case 1:
			return fmt.Errorf("title %q at position %d sorts after %q at position %d", c[i-1].Title, i-1, c[i].Title, i)
		}
	}
	return nil
}

// Normalize returns a sorted, duplicate-free copy of c. For duplicate
// titles the entry appearing first in c is kept. dropped counts the
// discarded duplicates.
func Normalize(c Catalog) (normalized Catalog, dropped int) {
	sorted := slices.Clone(c)
	slices.SortStableFunc(sorted, func(a, b Entry) int {
		return strings.Compare(a.Title, b.Title)
	})

	normalized = sorted[:0]
	for _, e := range sorted {
		if n := len(normalized); n > 0 && normalized[n-1].Title == e.Title {
			dropped++
			continue
		}
		normalized = append(normalized, e)
	}
	return normalized, dropped
}
