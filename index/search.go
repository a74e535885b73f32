package index

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/arthur-debert/kvindex/dn"
	"github.com/arthur-debert/kvindex/dnlist"
	"github.com/arthur-debert/kvindex/filter"
	"github.com/arthur-debert/kvindex/kv"
	"github.com/arthur-debert/kvindex/record"
)

// Scope is the search scope (spec.md §4.5/§4.6).
type Scope int

const (
	// ScopeBase restricts the search to a single entry.
	ScopeBase Scope = iota
	// ScopeOneLevel restricts the search to direct children of Base.
	ScopeOneLevel
	// ScopeSubtree restricts the search to Base and all its descendants.
	ScopeSubtree
)

// SearchContext bundles the inputs to SearchIndexed (spec.md §6
// search_indexed).
type SearchContext struct {
	Base  string
	Scope Scope
	Tree  *filter.Node
	Attrs []string
}

// ResultCallback receives one matched, projected record at a time. A true
// stop return halts the scan (spec.md §4.6 step 5).
type ResultCallback func(rec *record.Record) (stop bool, err error)

// ErrNotIndexed is returned by SearchIndexed when the planner reports
// NotIndexed for the top-level filter: the caller (the outer module
// pipeline, out of scope per spec.md §1) must fall back to a full scan.
var ErrNotIndexed = errors.New("index: filter is not indexed, caller must fall back to a full scan")

// SearchIndexed compiles ctx.Tree via the query planner, resolves scope,
// fetches and re-matches each candidate, and streams projected records to
// cb (spec.md §4.6, C8).
func (e *Engine) SearchIndexed(ctx SearchContext, cb ResultCallback) (int, error) {
	res, err := e.plan(ctx.Tree)
	if err != nil {
		return 0, e.fail(err)
	}
	if res.Outcome == NoSuchObject {
		return 0, nil
	}

	base, err := dn.Parse(ctx.Base)
	if err != nil {
		return 0, e.fail(NotFound("invalid base DN %q", ctx.Base))
	}

	list := res.List
	strictOneLevel := false
	if ctx.Scope == ScopeOneLevel {
		// The one-level child list is loaded unconditionally, scope-first
		// (original source ldb_kv_search_indexed's LDB_SCOPE_ONELEVEL
		// handling): a NOT_INDEXED filter outcome is tolerated here rather
		// than aborting the search, since the one-level list is itself a
		// valid candidate set and re-match below still applies the full
		// filter tree to every candidate.
		oneLevelList, trunc, err := e.oneLevelIndex(base)
		if err != nil {
			return 0, e.fail(err)
		}
		if res.Outcome == NotIndexed {
			list = oneLevelList
		} else {
			list = dnlist.Intersect(list, oneLevelList)
		}
		strictOneLevel = trunc == notTruncated
	} else if res.Outcome == NotIndexed {
		return 0, e.fail(ErrNotIndexed)
	}

	// Copy-before-dispatch (spec.md §9): a callback may mutate in-memory
	// index state, so the candidate values are snapshotted before fetch.
	values := make([][]byte, len(list.Values))
	copy(values, list.Values)

	if list.GUIDMode {
		values = dedupAdjacent(values)
	}

	matchCount := 0
	for _, v := range values {
		backingKey := e.backingKeyForCandidate(v)
		raw, err := e.store.Get(backingKey)
		if err != nil {
			if errors.Is(err, kv.ErrNotFound) {
				continue // vanished mid-scan, tolerated (spec.md §4.6 step 3)
			}
			return matchCount, e.fail(OperationsErrorWrap(err, "fetch candidate %q", backingKey))
		}
		rec, err := e.packer.Unpack(raw)
		if err != nil {
			return matchCount, e.fail(OperationsErrorWrap(err, "unpack candidate %q", backingKey))
		}

		matched, err := e.reMatch(rec, ctx, base, strictOneLevel)
		if err != nil {
			return matchCount, e.fail(err)
		}
		if !matched {
			continue
		}

		projected := project(rec, ctx.Attrs, e.schema.EqualAttrName)
		matchCount++
		stop, err := cb(projected)
		if err != nil {
			return matchCount, e.fail(err)
		}
		if stop {
			break
		}
	}
	return matchCount, nil
}

func (e *Engine) backingKeyForCandidate(v []byte) string {
	if e.guidMode() {
		return fmt.Sprintf("GUID=%x", v)
	}
	return "DN=" + string(v)
}

// dedupAdjacent removes adjacent byte-equal values from a sorted slice
// (spec.md §4.6 step 2: GUID-mode duplicates, from truncation or
// forced-duplicate writes, are always adjacent in a sorted list).
func dedupAdjacent(values [][]byte) [][]byte {
	if len(values) == 0 {
		return values
	}
	out := values[:1]
	for _, v := range values[1:] {
		if !bytes.Equal(out[len(out)-1], v) {
			out = append(out, v)
		}
	}
	return out
}

// reMatch re-matches rec against ctx's scope and filter tree (spec.md §4.6
// step 4). When strictOneLevel is true and scope is ScopeOneLevel, DN-scope
// checking is skipped — the strictness invariant has already proven
// parentage.
func (e *Engine) reMatch(rec *record.Record, ctx SearchContext, base *dn.DN, strictOneLevel bool) (bool, error) {
	recDN, err := dn.Parse(rec.DN)
	if err != nil {
		return false, nil
	}

	switch ctx.Scope {
	case ScopeBase:
		if dn.Compare(recDN, base) != 0 {
			return false, nil
		}
	case ScopeOneLevel:
		if !strictOneLevel {
			parent := recDN.GetParent()
			if parent == nil || dn.Compare(parent, base) != 0 {
				return false, nil
			}
		}
	case ScopeSubtree:
		if !isUnderOrEqual(recDN, base) {
			return false, nil
		}
	}

	return evalFilter(ctx.Tree, rec, e.schema.Canonicalise), nil
}

func isUnderOrEqual(d, base *dn.DN) bool {
	dc, bc := d.Casefold(), base.Casefold()
	if dc == bc {
		return true
	}
	return strings.HasSuffix(dc, ","+bc)
}

// project returns a copy of rec containing only the named attributes
// (comparing names via equalName), or rec unchanged when attrs is empty
// (spec.md §4.6 step 5: "project the requested attributes").
func project(rec *record.Record, attrs []string, equalName func(a, b string) bool) *record.Record {
	if len(attrs) == 0 {
		return rec
	}
	out := &record.Record{DN: rec.DN, GUID: rec.GUID}
	for _, el := range rec.Elements {
		for _, want := range attrs {
			if equalName(el.Name, want) {
				out.Elements = append(out.Elements, el)
				break
			}
		}
	}
	return out
}
