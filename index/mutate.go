package index

import (
	"errors"
	"fmt"

	"github.com/arthur-debert/kvindex/dn"
	"github.com/arthur-debert/kvindex/dnlist"
	"github.com/arthur-debert/kvindex/kv"
	"github.com/arthur-debert/kvindex/record"
	"github.com/arthur-debert/kvindex/schema"
)

// AddNew inserts every index entry for a fully-formed record: the @IDXDN
// entry (GUID mode), the @IDXONE parent entry, and one entry per indexed
// attribute value (spec.md §6 index_add_new, §4.7).
func (e *Engine) AddNew(rec record.Record) error {
	if err := rec.Validate(); err != nil {
		return e.fail(OperationsErrorWrap(err, "validate record"))
	}
	target, err := dn.Parse(rec.DN)
	if err != nil {
		return e.fail(OperationsErrorWrap(err, "parse record DN %q", rec.DN))
	}

	if e.guidMode() {
		if err := e.addDNIndexEntry(target, rec.GUID); err != nil {
			return e.fail(err)
		}
	}
	if err := e.addOneLevelEntry(target, rec.GUID); err != nil {
		return e.fail(err)
	}
	for _, el := range rec.Elements {
		if !e.isIndexed(el.Name) {
			continue
		}
		if err := e.addElementEntries(target, rec.GUID, el); err != nil {
			return e.fail(err)
		}
	}
	return nil
}

// AddElement inserts index entries for a single new element on an
// already-indexed record (spec.md §6 index_add_element).
func (e *Engine) AddElement(rec record.Record, el record.Element) error {
	target, err := dn.Parse(rec.DN)
	if err != nil {
		return e.fail(OperationsErrorWrap(err, "parse record DN %q", rec.DN))
	}
	if !e.isIndexed(el.Name) {
		return nil
	}
	if err := e.addElementEntries(target, rec.GUID, el); err != nil {
		return e.fail(err)
	}
	return nil
}

// candidateValue returns the value this entry is indexed under: the GUID
// in GUID mode, the casefolded linearized DN otherwise.
func (e *Engine) candidateValue(target *dn.DN, guid []byte) []byte {
	if e.guidMode() {
		return guid
	}
	return []byte(target.Casefold())
}

// addDNIndexEntry implements the @IDXDN half of spec.md §4.7 step 2: a
// non-truncated, non-empty existing list is an outright duplicate DN
// (CONSTRAINT_VIOLATION, remapped to ENTRY_ALREADY_EXISTS at the public
// boundary); a truncated, non-empty list requires fetching each candidate
// to check for a same-DN collision before proceeding.
func (e *Engine) addDNIndexEntry(target *dn.DN, guid []byte) error {
	key, trunc, err := e.formatIndexKey(idxDNAttr, []byte(target.Casefold()))
	if err != nil {
		return OperationsErrorWrap(err, "format @IDXDN key for %s", target.Linearize())
	}
	list, err := e.facade.load(key)
	if err != nil {
		return err
	}

	if list.Len() > 0 {
		if trunc == notTruncated {
			return AlreadyExists("entry %s already exists", target.Linearize())
		}
		for _, existingGUID := range list.Values {
			entryK := fmt.Sprintf("GUID=%x", existingGUID)
			raw, err := e.store.Get(entryK)
			if err != nil {
				if errors.Is(err, kv.ErrNotFound) {
					continue
				}
				return OperationsErrorWrap(err, "fetch candidate %q while checking DN collision", entryK)
			}
			existingRec, err := e.packer.Unpack(raw)
			if err != nil {
				return OperationsErrorWrap(err, "unpack candidate %q", entryK)
			}
			existingDN, err := dn.Parse(existingRec.DN)
			if err == nil && dn.Compare(existingDN, target) == 0 {
				return AlreadyExists("entry %s already exists", target.Linearize())
			}
		}
	}

	dup := list.InsertSorted(guid)
	if dup {
		e.logger.Warn("duplicate GUID inserted into @IDXDN index", "dn", target.Linearize())
	}
	return e.facade.store(key, list)
}

// addOneLevelEntry inserts this entry's value under its parent's @IDXONE
// list (spec.md §4.7, "updated first on add").
func (e *Engine) addOneLevelEntry(target *dn.DN, guid []byte) error {
	parent := target.GetParent()
	if parent == nil {
		return nil
	}
	key, _, err := e.formatIndexKey(idxOneAttr, []byte(parent.Casefold()))
	if err != nil {
		return OperationsErrorWrap(err, "format @IDXONE key for parent of %s", target.Linearize())
	}
	list, err := e.facade.load(key)
	if err != nil {
		return err
	}
	e.insertValue(list, e.candidateValue(target, guid))
	return e.facade.store(key, list)
}

// addElementEntries inserts one index entry per value of el, enforcing
// uniqueness and the truncation-under-unique rule (spec.md §4.7 steps 1-5).
func (e *Engine) addElementEntries(target *dn.DN, guid []byte, el record.Element) error {
	flags := e.schema.Flags(el.Name)
	unique := flags.Has(schema.UniqueIndex) || el.ForceUnique

	for _, value := range el.Values {
		key, trunc, err := e.formatIndexKey(el.Name, value)
		if err != nil {
			return err
		}

		if unique && trunc == truncated {
			return ConstraintViolationf("attribute %q value cannot be uniquely indexed: key was truncated", el.Name)
		}

		list, err := e.facade.load(key)
		if err != nil {
			return err
		}

		if unique && list.Len() > 0 {
			return ConstraintViolationf("attribute %q already has a value at this key", el.Name)
		}

		dup := e.insertValue(list, e.candidateValue(target, guid))
		if dup && !el.AllowDuplicate {
			e.logger.Warn("duplicate value inserted into index", "attr", el.Name, "dn", target.Linearize())
		}

		if err := e.facade.store(key, list); err != nil {
			return err
		}
	}
	return nil
}

// insertValue inserts v into list: a binary-search splice in GUID mode, an
// unsorted append in DN mode (spec.md §4.7 step 5). A non-truncated
// duplicate is always retained (AllowDuplicate only controls whether the
// caller logs a warning about it, at the call site).
func (e *Engine) insertValue(list *dnlist.List, v []byte) (dup bool) {
	if list.GUIDMode {
		return list.InsertSorted(v)
	}
	existing := list.Find(v)
	list.Add(v)
	return existing != dnlist.NotFound
}

// Delete removes every index entry for rec, mirroring AddNew (spec.md §6
// index_delete, §4.7 "Delete an entry").
func (e *Engine) Delete(rec record.Record) error {
	target, err := dn.Parse(rec.DN)
	if err != nil {
		return e.fail(OperationsErrorWrap(err, "parse record DN %q", rec.DN))
	}

	for _, el := range rec.Elements {
		if !e.isIndexed(el.Name) {
			continue
		}
		for _, value := range el.Values {
			if err := e.deleteElementValue(target, rec.GUID, el.Name, value); err != nil {
				return e.fail(err)
			}
		}
	}
	if err := e.deleteOneLevelEntry(target, rec.GUID); err != nil {
		return e.fail(err)
	}
	if e.guidMode() {
		if err := e.deleteDNIndexEntry(target); err != nil {
			return e.fail(err)
		}
	}
	return nil
}

// DeleteElement removes every value of el from rec's index entries
// (spec.md §6 index_del_element).
func (e *Engine) DeleteElement(rec record.Record, el record.Element) error {
	target, err := dn.Parse(rec.DN)
	if err != nil {
		return e.fail(OperationsErrorWrap(err, "parse record DN %q", rec.DN))
	}
	if !e.isIndexed(el.Name) {
		return nil
	}
	for _, value := range el.Values {
		if err := e.deleteElementValue(target, rec.GUID, el.Name, value); err != nil {
			return e.fail(err)
		}
	}
	return nil
}

// DeleteValue removes a single (attr, value) index entry for rec
// (spec.md §6 index_del_value).
func (e *Engine) DeleteValue(rec record.Record, attr string, val []byte) error {
	target, err := dn.Parse(rec.DN)
	if err != nil {
		return e.fail(OperationsErrorWrap(err, "parse record DN %q", rec.DN))
	}
	if !e.isIndexed(attr) {
		return nil
	}
	if err := e.deleteElementValue(target, rec.GUID, attr, val); err != nil {
		return e.fail(err)
	}
	return nil
}

func (e *Engine) deleteElementValue(target *dn.DN, guid []byte, attr string, value []byte) error {
	key, _, err := e.formatIndexKey(attr, value)
	if err != nil {
		return err
	}
	list, err := e.facade.load(key)
	if err != nil {
		return err
	}
	idx := list.Find(e.candidateValue(target, guid))
	if idx != dnlist.NotFound {
		list.RemoveAt(idx)
	}
	return e.facade.store(key, list)
}

func (e *Engine) deleteOneLevelEntry(target *dn.DN, guid []byte) error {
	parent := target.GetParent()
	if parent == nil {
		return nil
	}
	key, _, err := e.formatIndexKey(idxOneAttr, []byte(parent.Casefold()))
	if err != nil {
		return OperationsErrorWrap(err, "format @IDXONE key for parent of %s", target.Linearize())
	}
	list, err := e.facade.load(key)
	if err != nil {
		return err
	}
	idx := list.Find(e.candidateValue(target, guid))
	if idx != dnlist.NotFound {
		list.RemoveAt(idx)
	}
	return e.facade.store(key, list)
}

func (e *Engine) deleteDNIndexEntry(target *dn.DN) error {
	key, _, err := e.formatIndexKey(idxDNAttr, []byte(target.Casefold()))
	if err != nil {
		return OperationsErrorWrap(err, "format @IDXDN key for %s", target.Linearize())
	}
	list, err := e.facade.load(key)
	if err != nil {
		return err
	}
	for i, v := range list.Values {
		entryK := fmt.Sprintf("GUID=%x", v)
		raw, err := e.store.Get(entryK)
		if err != nil {
			continue
		}
		candidateRec, err := e.packer.Unpack(raw)
		if err != nil {
			continue
		}
		candidateDN, err := dn.Parse(candidateRec.DN)
		if err == nil && dn.Compare(candidateDN, target) == 0 {
			list.RemoveAt(i)
			break
		}
	}
	return e.facade.store(key, list)
}
