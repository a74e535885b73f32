package dnlist

import (
	"bytes"
	"testing"
)

func mkGUID(b byte) []byte {
	g := make([]byte, 16)
	g[15] = b
	return g
}

func TestFindGUIDMode(t *testing.T) {
	l := New(true)
	l.Values = [][]byte{mkGUID(1), mkGUID(2), mkGUID(3), mkGUID(5)}

	t.Run("exact match", func(t *testing.T) {
		if idx := l.Find(mkGUID(3)); idx != 2 {
			t.Fatalf("expected index 2, got %d", idx)
		}
	})

	t.Run("absent value between existing entries is not found", func(t *testing.T) {
		// Regression for spec.md §9: BINARY_ARRAY_SEARCH_GTE must not
		// accept the next-greater neighbor as a match.
		if idx := l.Find(mkGUID(4)); idx != NotFound {
			t.Fatalf("expected NotFound, got %d", idx)
		}
	})

	t.Run("absent value past the end", func(t *testing.T) {
		if idx := l.Find(mkGUID(9)); idx != NotFound {
			t.Fatalf("expected NotFound, got %d", idx)
		}
	})
}

func TestFindDNMode(t *testing.T) {
	l := New(false)
	l.Values = [][]byte{[]byte("cn=alice,o=x"), []byte("cn=bob,o=x")}

	if idx := l.Find([]byte("cn=bob,o=x")); idx != 1 {
		t.Fatalf("expected index 1, got %d", idx)
	}
	if idx := l.Find([]byte("cn=carol,o=x")); idx != NotFound {
		t.Fatalf("expected NotFound, got %d", idx)
	}
}

func TestInsertSortedDetectsDuplicate(t *testing.T) {
	l := New(true)
	l.InsertSorted(mkGUID(5))
	l.InsertSorted(mkGUID(1))
	dup := l.InsertSorted(mkGUID(3))
	if dup {
		t.Fatalf("unexpected duplicate reported for a fresh value")
	}
	dup = l.InsertSorted(mkGUID(3))
	if !dup {
		t.Fatalf("expected duplicate to be reported")
	}

	want := [][]byte{mkGUID(1), mkGUID(3), mkGUID(3), mkGUID(5)}
	if len(l.Values) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(l.Values))
	}
	for i := range want {
		if !bytes.Equal(l.Values[i], want[i]) {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], l.Values[i])
		}
	}
}

func TestUnionEmptySideTransfersOwnership(t *testing.T) {
	empty := New(false)
	populated := New(false)
	populated.Add([]byte("a"))
	populated.Add([]byte("b"))

	result := Union(empty, populated)
	if result != populated {
		t.Fatalf("expected Union to return the populated side unchanged")
	}
}

func TestUnionDedups(t *testing.T) {
	a := New(false)
	a.Values = [][]byte{[]byte("a"), []byte("b")}
	b := New(false)
	b.Values = [][]byte{[]byte("b"), []byte("c")}

	result := Union(a, b)
	if result.Len() != 3 {
		t.Fatalf("expected 3 unique values, got %d: %v", result.Len(), result.Values)
	}
	if result.Strict {
		t.Fatalf("Union must never set Strict")
	}
}

func TestIntersectSupersetShortcut(t *testing.T) {
	small := New(true)
	small.Values = [][]byte{mkGUID(1)}

	large := New(true)
	for i := byte(0); i < 20; i++ {
		large.Values = append(large.Values, mkGUID(i))
	}

	result := Intersect(small, large)
	if result.Len() != 1 {
		t.Fatalf("expected the small side returned unchanged (shortcut), got %d values", result.Len())
	}
}

func TestIntersectShortcutDisallowedWhenLargerSideStrict(t *testing.T) {
	small := New(true)
	small.Values = [][]byte{mkGUID(99)} // not present in large

	large := New(true)
	large.Strict = true
	for i := byte(0); i < 20; i++ {
		large.Values = append(large.Values, mkGUID(i))
	}

	result := Intersect(small, large)
	if result.Len() != 0 {
		t.Fatalf("strict side must veto the superset shortcut, got %d values", result.Len())
	}
}

func TestIntersectStrictIsSticky(t *testing.T) {
	a := New(false)
	a.Values = [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	b := New(false)
	b.Values = [][]byte{[]byte("b"), []byte("c"), []byte("d")}
	b.Strict = true

	result := Intersect(a, b)
	if !result.Strict {
		t.Fatalf("expected Strict to be OR'd from inputs")
	}
	if result.Len() != 2 {
		t.Fatalf("expected 2 common values, got %d", result.Len())
	}
}

func TestIntersectEmptySide(t *testing.T) {
	a := New(false)
	b := New(false)
	b.Add([]byte("x"))

	result := Intersect(a, b)
	if result.Len() != 0 {
		t.Fatalf("expected empty result when either side is empty")
	}
}
