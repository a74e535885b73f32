package index

import (
	"testing"

	"github.com/arthur-debert/kvindex/dn"
	"github.com/arthur-debert/kvindex/kv"
	"github.com/arthur-debert/kvindex/record"
	"github.com/arthur-debert/kvindex/schema"
)

// newTestEngine opens an Engine over a fresh MemStore, installing an
// @INDEXLIST control record naming indexedAttrs (and, in GUID mode, the
// @IDXGUID attribute) before Open reads it.
func newTestEngine(t *testing.T, store kv.Store, indexedAttrs []string, flags map[string]schema.Flag, guidMode bool) *Engine {
	t.Helper()

	packer := record.JSONPacker{}
	var attrValues [][]byte
	for _, a := range indexedAttrs {
		attrValues = append(attrValues, []byte(a))
	}
	ctrl := record.Record{DN: "@INDEXLIST", Elements: []record.Element{
		{Name: "@IDXATTR", Values: attrValues},
	}}
	if guidMode {
		ctrl.Elements = append(ctrl.Elements, record.Element{
			Name: "@IDXGUID", Values: [][]byte{[]byte("entryUUID")},
		})
	}
	raw, err := packer.Pack(&ctrl)
	if err != nil {
		t.Fatalf("pack control record: %v", err)
	}
	if err := store.Put("@INDEXLIST", raw, kv.Replace); err != nil {
		t.Fatalf("put control record: %v", err)
	}

	sc := schema.NewDefault(flags)
	e, err := Open(store, sc, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return e
}

// addIndexedRecord stores rec's backing blob and runs AddNew inside its own
// transaction, the way a caller normally drives the two together.
func addIndexedRecord(t *testing.T, e *Engine, rec record.Record) {
	t.Helper()
	putRecord(t, e, rec)
	if err := e.TransactionStart(); err != nil {
		t.Fatalf("TransactionStart: %v", err)
	}
	if err := e.AddNew(rec); err != nil {
		e.TransactionCancel()
		t.Fatalf("AddNew: %v", err)
	}
	if err := e.TransactionCommit(); err != nil {
		t.Fatalf("TransactionCommit: %v", err)
	}
}

// putRecord packs and stores rec at its natural backing key.
func putRecord(t *testing.T, e *Engine, rec record.Record) {
	t.Helper()
	target, err := dn.Parse(rec.DN)
	if err != nil {
		t.Fatalf("parse DN %q: %v", rec.DN, err)
	}
	key, err := e.entryKey(target, rec.GUID)
	if err != nil {
		t.Fatalf("entryKey: %v", err)
	}
	raw, err := e.packer.Pack(&rec)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if err := e.store.Put(key, raw, kv.Replace); err != nil {
		t.Fatalf("put %q: %v", key, err)
	}
}
