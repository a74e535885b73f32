// Package dnlist implements the DN-list primitive: an ordered or unordered
// sequence of opaque byte values (casefolded linearized DNs, or fixed-width
// GUIDs) with union, intersection, sort, and find.
//
// In GUID mode every value is 16 bytes and the list is kept sorted ascending
// by byte-lex order, so Find is a binary search. In DN mode values are
// variable-length byte strings and the list is left unsorted until the first
// Union, matching the teacher's "sort lazily at merge boundaries" discipline.
package dnlist

import "bytes"

// List is a sequence of opaque values plus the strict flag from spec.md §4.1.
//
// Strict encodes a subset-refinement contract: a strict list must never be
// widened by Intersect's superset shortcut. Strict is sticky under
// Intersect (OR of both sides) and is never set by Union.
type List struct {
	Values [][]byte
	Strict bool

	// GUIDMode selects binary-search Find and a no-op Sort (the list is
	// assumed already sorted ascending by byte-lex order). When false,
	// Find is a linear scan and Sort orders by length then lexicographic
	// bytes purely to make Union's merge-scan possible.
	GUIDMode bool
}

// New creates an empty list in the given mode.
func New(guidMode bool) *List {
	return &List{GUIDMode: guidMode}
}

// Len returns the number of values in the list.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Values)
}

// Add appends a value without sorting or deduplicating. Callers that need
// sorted/deduplicated insertion (GUID mode add) should use InsertSorted.
func (l *List) Add(v []byte) {
	l.Values = append(l.Values, v)
}

// compare orders two values the way Sort does: by length, then lexicographic
// bytes. This ordering is arbitrary but fixed; it exists only to make the
// merge-scan in Union well defined.
func compare(a, b []byte) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return bytes.Compare(a, b)
}

// Sort orders the list. A no-op in GUID mode, where the list is maintained
// sorted on every insertion; in DN mode it sorts by length then bytes.
func (l *List) Sort() {
	if l.GUIDMode {
		return
	}
	sortSlice(l.Values)
}

// sortSlice is a small in-place insertion sort kept here so the compare
// ordering has one definition shared by Sort and Union.
func sortSlice(values [][]byte) {
	// Values lists are short in practice (ldb's own assumption); a simple
	// insertion sort is sufficient and keeps this package import-light.
	for i := 1; i < len(values); i++ {
		for j := i; j > 0 && compare(values[j-1], values[j]) > 0; j-- {
			values[j-1], values[j] = values[j], values[j-1]
		}
	}
}

// NotFound is returned by Find when the needle is absent.
const NotFound = -1

// Find locates needle in the list. In GUID mode this is a binary search over
// the (assumed sorted) fixed-width values; in DN mode it is a linear scan
// with exact byte-equal comparison. Returns NotFound if absent.
//
// Mirrors the source's BINARY_ARRAY_SEARCH_GTE-then-reject-on-next-pointer
// behavior (spec.md §9 Open Question): an exact match is required, a
// greater-or-equal neighbor is never accepted as a hit.
func (l *List) Find(needle []byte) int {
	if l == nil {
		return NotFound
	}
	if l.GUIDMode {
		lo, hi := 0, len(l.Values)
		for lo < hi {
			mid := (lo + hi) / 2
			c := bytes.Compare(l.Values[mid], needle)
			switch {
			case c == 0:
				return mid
			case c < 0:
				lo = mid + 1
			default:
				hi = mid
			}
		}
		return NotFound
	}
	for i, v := range l.Values {
		if bytes.Equal(v, needle) {
			return i
		}
	}
	return NotFound
}

// InsertSorted inserts v into a GUID-mode list at its sorted position,
// splicing it in rather than appending and re-sorting. If an equal value
// already exists, dup reports true; the caller decides (per spec.md §4.7
// step 5) whether a non-truncated duplicate is tolerated.
func (l *List) InsertSorted(v []byte) (dup bool) {
	lo, hi := 0, len(l.Values)
	for lo < hi {
		mid := (lo + hi) / 2
		c := bytes.Compare(l.Values[mid], v)
		switch {
		case c == 0:
			lo = mid
			hi = mid
			dup = true
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	l.Values = append(l.Values, nil)
	copy(l.Values[lo+1:], l.Values[lo:])
	l.Values[lo] = v
	return dup
}

// RemoveAt deletes the value at index i, preserving order.
func (l *List) RemoveAt(i int) {
	l.Values = append(l.Values[:i], l.Values[i+1:]...)
}

// Union merges b into a (a is mutated and returned), following spec.md
// §4.1: if either side is empty, the other is returned untouched (ownership
// transfers); otherwise both sides are sorted and merge-scanned, emitting
// each equal pair once. The result's length is at most |a|+|b|.
//
// Union never sets Strict — a strict list is never the product of a union,
// only of a one-level lookup or an intersection whose inputs included one.
func Union(a, b *List) *List {
	if a.Len() == 0 {
		return b
	}
	if b.Len() == 0 {
		return a
	}

	a.Sort()
	b.Sort()

	merged := make([][]byte, 0, len(a.Values)+len(b.Values))
	i, j := 0, 0
	for i < len(a.Values) && j < len(b.Values) {
		c := compareForMode(a.GUIDMode, a.Values[i], b.Values[j])
		switch {
		case c < 0:
			merged = append(merged, a.Values[i])
			i++
		case c > 0:
			merged = append(merged, b.Values[j])
			j++
		default:
			merged = append(merged, a.Values[i])
			i++
			j++
		}
	}
	merged = append(merged, a.Values[i:]...)
	merged = append(merged, b.Values[j:]...)

	a.Values = merged
	return a
}

func compareForMode(guidMode bool, x, y []byte) int {
	if guidMode {
		return bytes.Compare(x, y)
	}
	return compare(x, y)
}

// superSetShortcutThreshold is the "|b| > 10" constant from spec.md §4.1.
const superSetShortcutThreshold = 10

// Intersect computes a ∩ b (a is mutated and returned), following spec.md
// §4.1's superset-shortcut and strict veto, then falling back to a
// walk-the-shorter-side/find-in-the-longer-side scan. The result's Strict
// flag is the OR of both inputs' Strict flags.
func Intersect(a, b *List) *List {
	if a.Len() == 0 || b.Len() == 0 {
		out := New(a.GUIDMode)
		out.Strict = a.Strict || b.Strict
		return out
	}

	// Superset shortcut: a small, non-strict side widened by a much larger
	// side is resolved by the caller's mandatory re-match (spec.md §4.6),
	// so intersecting here would be redundant work. The shortcut never
	// fires when the larger side is strict — a strict list must never be
	// widened.
	if a.Len() < 2 && b.Len() > superSetShortcutThreshold && !b.Strict {
		return a
	}
	if b.Len() < 2 && a.Len() > superSetShortcutThreshold && !a.Strict {
		a.Values = b.Values
		a.GUIDMode = b.GUIDMode
		a.Strict = a.Strict || b.Strict
		return a
	}

	strict := a.Strict || b.Strict

	shortSide, longSide := a, b
	if b.Len() < a.Len() {
		shortSide, longSide = b, a
	}

	out := make([][]byte, 0, shortSide.Len())
	for _, v := range shortSide.Values {
		if longSide.Find(v) != NotFound {
			out = append(out, v)
		}
	}

	a.Values = out
	a.Strict = strict
	return a
}
