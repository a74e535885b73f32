package index

import (
	"strings"

	"github.com/arthur-debert/kvindex/dn"
	"github.com/arthur-debert/kvindex/dnlist"
	"github.com/arthur-debert/kvindex/filter"
	"github.com/arthur-debert/kvindex/schema"
)

// Outcome is one of the three results the query planner (C5) produces for
// a filter subtree (spec.md §4.3).
type Outcome int

const (
	// Match means the List is the (possibly over-approximate) candidate
	// set; C8 re-matches against the full filter.
	Match Outcome = iota
	// NoSuchObject means the subtree is provably empty.
	NoSuchObject
	// NotIndexed means the caller must fall back to a full scan.
	NotIndexed
)

// planResult is the planner's per-subtree output.
type planResult struct {
	List    *dnlist.List
	Outcome Outcome
}

func emptyResult(guidMode bool, outcome Outcome) planResult {
	return planResult{List: dnlist.New(guidMode), Outcome: outcome}
}

// plan compiles node into a candidate DN-list via recursive descent
// (spec.md §4.3).
func (e *Engine) plan(node *filter.Node) (planResult, error) {
	switch node.Kind {
	case filter.Equality:
		return e.planEquality(node)
	case filter.And:
		return e.planAnd(node)
	case filter.Or:
		return e.planOr(node)
	case filter.Not:
		// Negation would require total-set knowledge (spec.md §4.3) — no
		// recursion into the child is needed.
		return emptyResult(e.guidMode(), NotIndexed), nil
	default:
		// SUBSTRING/GREATER/LESS/PRESENT/APPROX/EXTENDED.
		return emptyResult(e.guidMode(), NotIndexed), nil
	}
}

func (e *Engine) planEquality(node *filter.Node) (planResult, error) {
	attr := node.Attr

	if strings.HasPrefix(attr, "@") {
		return emptyResult(e.guidMode(), NoSuchObject), nil
	}

	if e.schema.EqualAttrName(attr, dnAttr) {
		if e.opts.DisallowDNFilter {
			// Policy choice (spec.md §4.3): a filter on the DN attribute is
			// refused outright rather than resolved via base-DN lookup.
			return emptyResult(e.guidMode(), Match), nil
		}
		target, err := dn.Parse(string(node.Value))
		if err != nil {
			return emptyResult(e.guidMode(), NoSuchObject), nil
		}
		list, err := e.baseDNLookup(target)
		if err != nil {
			return planResult{}, err
		}
		return planResult{List: list, Outcome: Match}, nil
	}

	if e.guidMode() && e.control.GUIDAttribute != "" && e.schema.EqualAttrName(attr, e.control.GUIDAttribute) {
		canon, err := e.schema.Canonicalise(attr, node.Value)
		if err != nil {
			return planResult{}, OperationsErrorWrap(err, "canonicalise GUID attribute value")
		}
		list := dnlist.New(true)
		list.Add(canon)
		return planResult{List: list, Outcome: Match}, nil
	}

	if !e.isIndexed(attr) {
		return emptyResult(e.guidMode(), NotIndexed), nil
	}

	key, _, err := e.formatIndexKey(attr, node.Value)
	if err != nil {
		return planResult{}, err
	}
	list, err := e.facade.load(key)
	if err != nil {
		return planResult{}, err
	}
	return planResult{List: list, Outcome: Match}, nil
}

// isUniqueLeaf reports whether node is an equality leaf whose match (if
// non-empty) is guaranteed unique: the GUID attribute, the DN attribute, or
// an attribute flagged UNIQUE_INDEX (spec.md §4.3 AND first pass).
func (e *Engine) isUniqueLeaf(node *filter.Node) bool {
	if node.Kind != filter.Equality {
		return false
	}
	if e.schema.EqualAttrName(node.Attr, dnAttr) {
		return true
	}
	if e.guidMode() && e.control.GUIDAttribute != "" && e.schema.EqualAttrName(node.Attr, e.control.GUIDAttribute) {
		return true
	}
	return e.schema.Flags(node.Attr).Has(schema.UniqueIndex)
}

func (e *Engine) planAnd(node *filter.Node) (planResult, error) {
	for _, child := range node.Children {
		if !e.isUniqueLeaf(child) {
			continue
		}
		res, err := e.plan(child)
		if err != nil {
			return planResult{}, err
		}
		if res.Outcome == Match && res.List.Len() > 0 {
			return res, nil
		}
	}

	var list *dnlist.List
	for _, child := range node.Children {
		res, err := e.plan(child)
		if err != nil {
			return planResult{}, err
		}
		switch res.Outcome {
		case NotIndexed:
			continue
		case NoSuchObject:
			return emptyResult(e.guidMode(), NoSuchObject), nil
		}

		if list == nil {
			list = res.List
		} else {
			list = dnlist.Intersect(list, res.List)
		}
		if list.Len() == 0 {
			return emptyResult(e.guidMode(), NoSuchObject), nil
		}
		if list.Len() < 2 {
			break
		}
	}

	if list == nil {
		// Every child was NOT_INDEXED (or there were no children at all).
		return emptyResult(e.guidMode(), NotIndexed), nil
	}
	return planResult{List: list, Outcome: Match}, nil
}

func (e *Engine) planOr(node *filter.Node) (planResult, error) {
	var list *dnlist.List
	for _, child := range node.Children {
		res, err := e.plan(child)
		if err != nil {
			return planResult{}, err
		}
		switch res.Outcome {
		case NotIndexed:
			return emptyResult(e.guidMode(), NotIndexed), nil
		case NoSuchObject:
			continue
		}
		if list == nil {
			list = res.List
		} else {
			list = dnlist.Union(list, res.List)
		}
	}
	if list == nil || list.Len() == 0 {
		return emptyResult(e.guidMode(), NoSuchObject), nil
	}
	return planResult{List: list, Outcome: Match}, nil
}
