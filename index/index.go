// Package index implements the indexing core of a hierarchical directory
// database backed by an ordered key/value store: the on-disk layout of
// index records, the transactional in-memory write buffer, the query
// planner, scope indices, the mutation engine, filter re-match, and
// reindex. See SPEC_FULL.md for the full component breakdown (C1-C9).
package index

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/arthur-debert/kvindex/dn"
	"github.com/arthur-debert/kvindex/kv"
	"github.com/arthur-debert/kvindex/record"
	"github.com/arthur-debert/kvindex/schema"
)

// controlRecordDN is the DN of the @INDEXLIST control record (spec.md §3).
const controlRecordDN = "@INDEXLIST"

// dnAttr is the pseudo-attribute name the planner recognizes as "the DN
// itself" (spec.md §4.3, ldb_attr_dn).
const dnAttr = "dn"

// Engine is the indexing core's public handle: one per process-attached
// database (spec.md §5 "single-threaded cooperative within one ... handle").
type Engine struct {
	store   kv.Store
	schema  schema.Schema
	packer  record.Packer
	opts    Options
	logger  *slog.Logger
	facade  *Facade
	control ControlRecord
	lastErr string
}

// Open constructs an Engine over store and schema, reading @INDEXLIST (or
// the Options override hooks, which take precedence and must be supplied
// before any transaction — spec.md §5) to determine the indexed-attribute
// set and GUID mode.
func Open(store kv.Store, sc schema.Schema, opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Packer == nil {
		opts.Packer = record.JSONPacker{}
	}

	e := &Engine{
		store:  store,
		schema: sc,
		packer: opts.Packer,
		opts:   opts,
		logger: opts.Logger,
	}

	control, guidMode, err := e.loadControlRecord()
	if err != nil {
		return nil, e.fail(err)
	}
	e.control = control

	facade, err := NewFacade(store, guidMode, opts.CacheSize)
	if err != nil {
		return nil, e.fail(OperationsErrorWrap(err, "construct index store facade"))
	}
	e.facade = facade

	return e, nil
}

// loadControlRecord determines the indexed-attribute set and GUID mode.
// Override hooks (Options.GUIDAttribute/DNGUIDComponent/GUIDMode) replace
// @INDEXLIST entirely when set. A missing @INDEXLIST record means
// "indexing is off" rather than an error (SPEC_FULL.md §4 supplemented
// feature #3).
func (e *Engine) loadControlRecord() (ControlRecord, bool, error) {
	if e.opts.GUIDAttribute != "" || e.opts.DNGUIDComponent != "" {
		return ControlRecord{
			GUIDAttribute:   e.opts.GUIDAttribute,
			DNGUIDComponent: e.opts.DNGUIDComponent,
		}, e.opts.GUIDMode, nil
	}

	raw, err := e.store.Get(controlRecordDN)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return ControlRecord{}, e.opts.GUIDMode, nil
		}
		return ControlRecord{}, false, OperationsErrorWrap(err, "load %s", controlRecordDN)
	}

	rec, err := e.packer.Unpack(raw)
	if err != nil {
		return ControlRecord{}, false, OperationsErrorWrap(err, "unpack %s", controlRecordDN)
	}

	var cr ControlRecord
	guidMode := e.opts.GUIDMode
	for _, el := range rec.Elements {
		switch {
		case dn.EqualAttrName(el.Name, "@IDXATTR"):
			for _, v := range el.Values {
				cr.IndexedAttrs = append(cr.IndexedAttrs, string(v))
			}
		case dn.EqualAttrName(el.Name, "@IDXGUID"):
			if len(el.Values) > 0 {
				cr.GUIDAttribute = string(el.Values[0])
				guidMode = true
			}
		case dn.EqualAttrName(el.Name, "@IDX_DN_GUID"):
			if len(el.Values) > 0 {
				cr.DNGUIDComponent = string(el.Values[0])
			}
		}
	}
	return cr, guidMode, nil
}

// TransactionStart allocates a write buffer (spec.md §6).
func (e *Engine) TransactionStart() error {
	e.facade.beginTransaction()
	return nil
}

// TransactionCommit flushes the write buffer to the KV, reporting the
// first error encountered (spec.md §6).
func (e *Engine) TransactionCommit() error {
	if err := e.facade.commit(); err != nil {
		return e.fail(err)
	}
	return nil
}

// TransactionCancel discards the write buffer without touching the KV
// (spec.md §6).
func (e *Engine) TransactionCancel() {
	e.facade.cancel()
}

// LastError returns the contextual error string attached to the engine
// handle by the most recent failing operation, mirroring ldb's per-handle
// error string (SPEC_FULL.md §2.1).
func (e *Engine) LastError() string {
	return e.lastErr
}

// fail records err's message on the handle and returns err unchanged, so
// every public method can `return e.fail(err)`.
func (e *Engine) fail(err error) error {
	if err != nil {
		e.lastErr = err.Error()
	}
	return err
}

// guidMode reports whether the engine is operating in GUID-keyed mode.
func (e *Engine) guidMode() bool {
	return e.facade.guidMode
}

// isIndexed reports whether attr is in the indexed-attribute set.
func (e *Engine) isIndexed(attr string) bool {
	return e.control.IsIndexed(attr, e.schema.EqualAttrName)
}

// entryKey computes the backing KV key for rec: "GUID=<hex of the 16-byte
// GUID>" in GUID mode, "DN=<casefolded linearized DN>" otherwise.
func (e *Engine) entryKey(d *dn.DN, guid []byte) (string, error) {
	if e.guidMode() {
		if len(guid) != 16 {
			return "", OperationsErrorf("entry key requires a 16-byte GUID, got %d bytes", len(guid))
		}
		return fmt.Sprintf("GUID=%x", guid), nil
	}
	return "DN=" + d.Casefold(), nil
}

// formatIndexKey is formatKey bound to this engine's schema and GUID mode.
func (e *Engine) formatIndexKey(attr string, value []byte) (string, truncation, error) {
	return formatKey(e.schema, attr, value, e.opts.MaxKeyLength, e.guidMode())
}
