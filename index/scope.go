package index

import (
	"errors"
	"fmt"

	"github.com/arthur-debert/kvindex/dn"
	"github.com/arthur-debert/kvindex/dnlist"
	"github.com/arthur-debert/kvindex/kv"
)

// idxOneAttr and idxDNAttr are the pseudo-attribute names for the one-level
// and DN scope indices (spec.md §3).
const (
	idxOneAttr = "@IDXONE"
	idxDNAttr  = "@IDXDN"
)

// oneLevelIndex loads the strict one-level index for parent (spec.md §4.5
// index_dn_one): the result's Strict flag is always true so the planner
// may never widen it via Intersect's superset shortcut. The returned
// truncation status tells callers (SearchIndexed) whether the strict
// one-level scope short-circuit (spec.md §4.6 step 4) may apply.
func (e *Engine) oneLevelIndex(parent *dn.DN) (*dnlist.List, truncation, error) {
	key, trunc, err := e.formatIndexKey(idxOneAttr, []byte(parent.Casefold()))
	if err != nil {
		return nil, notTruncated, OperationsErrorWrap(err, "format one-level index key for %s", parent.Linearize())
	}
	list, err := e.facade.load(key)
	if err != nil {
		return nil, notTruncated, err
	}
	list.Strict = true
	return list, trunc, nil
}

// baseDNLookup resolves a base DN to its candidate list (spec.md §4.5
// index_dn_base).
func (e *Engine) baseDNLookup(base *dn.DN) (*dnlist.List, error) {
	if !e.guidMode() {
		list := dnlist.New(false)
		list.Add([]byte(base.Casefold()))
		return list, nil
	}

	if e.control.DNGUIDComponent != "" {
		if guidStr, ok := base.GetExtendedComponent(e.control.DNGUIDComponent); ok {
			list := dnlist.New(true)
			list.Add([]byte(guidStr))
			return list, nil
		}
	}

	key, _, err := e.formatIndexKey(idxDNAttr, []byte(base.Casefold()))
	if err != nil {
		return nil, OperationsErrorWrap(err, "format DN index key for %s", base.Linearize())
	}
	return e.facade.load(key)
}

// KeyDNFromIdx is the exported form of keyFromIdx: it resolves a logical DN
// to the backing KV key of its entry, recording any error on the handle.
func (e *Engine) KeyDNFromIdx(logicalDN string) (string, error) {
	key, err := e.keyFromIdx(logicalDN)
	if err != nil {
		return "", e.fail(err)
	}
	return key, nil
}

// keyFromIdx resolves a logical DN string to its backing KV key, following
// spec.md §4.5 key_from_idx: a non-truncated list with more than one entry
// is a uniqueness violation (invariant 4); a truncated list requires
// fetching each candidate and comparing against the requested DN to
// disambiguate. A vanished record mid-scan is tolerated.
func (e *Engine) keyFromIdx(logicalDN string) (string, error) {
	target, err := dn.Parse(logicalDN)
	if err != nil {
		return "", NotFound("invalid DN %q", logicalDN)
	}

	if !e.guidMode() {
		return "DN=" + target.Casefold(), nil
	}

	if e.control.DNGUIDComponent != "" {
		if guidStr, ok := target.GetExtendedComponent(e.control.DNGUIDComponent); ok {
			return fmt.Sprintf("GUID=%x", []byte(guidStr)), nil
		}
	}

	key, trunc, err := e.formatIndexKey(idxDNAttr, []byte(target.Casefold()))
	if err != nil {
		return "", OperationsErrorWrap(err, "format DN index key for %s", logicalDN)
	}
	list, err := e.facade.load(key)
	if err != nil {
		return "", err
	}
	if list.Len() == 0 {
		return "", NotFound("no entry for DN %q", logicalDN)
	}
	if list.Len() > 1 && trunc == notTruncated {
		return "", ConstraintViolationf("DN index for %q has %d non-truncated matches, expected at most one (invariant 4)", logicalDN, list.Len())
	}
	if list.Len() == 1 {
		return fmt.Sprintf("GUID=%x", list.Values[0]), nil
	}

	// More than one candidate only happens when the @IDXDN key that
	// produced this list was truncated; disambiguate by fetching each
	// candidate and comparing DNs. A vanished record mid-scan is
	// tolerated.
	for _, guid := range list.Values {
		key := fmt.Sprintf("GUID=%x", guid)
		raw, err := e.store.Get(key)
		if err != nil {
			if errors.Is(err, kv.ErrNotFound) {
				continue // vanished mid-scan, tolerated
			}
			return "", OperationsErrorWrap(err, "fetch candidate %q while disambiguating %q", key, logicalDN)
		}
		rec, err := e.packer.Unpack(raw)
		if err != nil {
			return "", OperationsErrorWrap(err, "unpack candidate %q", key)
		}
		candidateDN, err := dn.Parse(rec.DN)
		if err != nil {
			continue
		}
		if dn.Compare(candidateDN, target) == 0 {
			return key, nil
		}
	}
	return "", NotFound("no entry matches DN %q among truncated-key candidates", logicalDN)
}
