package index

import (
	"testing"

	"github.com/arthur-debert/kvindex/filter"
	"github.com/arthur-debert/kvindex/kv"
	"github.com/arthur-debert/kvindex/record"
	"github.com/arthur-debert/kvindex/schema"
)

func TestAddNewDNModeIndexesOneLevelAndAttrs(t *testing.T) {
	store := kv.NewMemStore()
	e := newTestEngine(t, store, []string{"cn"}, nil, false)

	rec := record.Record{DN: "cn=alice,o=example", Elements: []record.Element{
		{Name: "cn", Values: [][]byte{[]byte("alice")}},
	}}
	addIndexedRecord(t, e, rec)

	res, err := e.plan(filter.Eq("cn", []byte("alice")))
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if res.Outcome != Match || res.List.Len() != 1 {
		t.Fatalf("res = %+v, want one Match", res)
	}

	parent := mustParseDN(t, "o=example")
	oneLevel, _, err := e.oneLevelIndex(parent)
	if err != nil {
		t.Fatalf("oneLevelIndex: %v", err)
	}
	if oneLevel.Len() != 1 {
		t.Fatalf("oneLevel.Len() = %d, want 1", oneLevel.Len())
	}
}

func TestAddNewGUIDModeIndexesIDXDN(t *testing.T) {
	store := kv.NewMemStore()
	e := newTestEngine(t, store, []string{"cn"}, nil, true)

	guid := []byte("1234567890123456")
	rec := record.Record{DN: "cn=alice,o=example", GUID: guid, Elements: []record.Element{
		{Name: "cn", Values: [][]byte{[]byte("alice")}},
	}}
	addIndexedRecord(t, e, rec)

	key, err := e.keyFromIdx("cn=alice,o=example")
	if err != nil {
		t.Fatalf("keyFromIdx: %v", err)
	}
	if key == "" {
		t.Fatalf("expected a resolved backing key")
	}
}

func TestAddNewDuplicateDNInGUIDModeIsAlreadyExists(t *testing.T) {
	store := kv.NewMemStore()
	e := newTestEngine(t, store, []string{"cn"}, nil, true)

	rec1 := record.Record{DN: "cn=alice,o=example", GUID: []byte("1111111111111111"), Elements: []record.Element{
		{Name: "cn", Values: [][]byte{[]byte("alice")}},
	}}
	addIndexedRecord(t, e, rec1)

	rec2 := record.Record{DN: "cn=alice,o=example", GUID: []byte("2222222222222222"), Elements: []record.Element{
		{Name: "cn", Values: [][]byte{[]byte("alice")}},
	}}
	putRecord(t, e, rec2)
	if err := e.TransactionStart(); err != nil {
		t.Fatalf("TransactionStart: %v", err)
	}
	err := e.AddNew(rec2)
	e.TransactionCancel()
	if CodeOf(err) != EntryAlreadyExists {
		t.Fatalf("CodeOf(err) = %v, want EntryAlreadyExists", CodeOf(err))
	}
}

func TestAddElementEntriesRejectsSecondUniqueValue(t *testing.T) {
	store := kv.NewMemStore()
	flags := map[string]schema.Flag{"uid": schema.UniqueIndex}
	e := newTestEngine(t, store, []string{"cn", "uid"}, flags, false)

	rec1 := record.Record{DN: "cn=alice,o=example", Elements: []record.Element{
		{Name: "cn", Values: [][]byte{[]byte("alice")}},
		{Name: "uid", Values: [][]byte{[]byte("u1")}},
	}}
	addIndexedRecord(t, e, rec1)

	rec2 := record.Record{DN: "cn=bob,o=example", Elements: []record.Element{
		{Name: "cn", Values: [][]byte{[]byte("bob")}},
		{Name: "uid", Values: [][]byte{[]byte("u1")}},
	}}
	putRecord(t, e, rec2)
	if err := e.TransactionStart(); err != nil {
		t.Fatalf("TransactionStart: %v", err)
	}
	err := e.AddNew(rec2)
	e.TransactionCancel()
	if CodeOf(err) != ConstraintViolation {
		t.Fatalf("CodeOf(err) = %v, want ConstraintViolation", CodeOf(err))
	}
}

func TestDeleteRemovesAllIndexEntries(t *testing.T) {
	store := kv.NewMemStore()
	e := newTestEngine(t, store, []string{"cn"}, nil, false)

	rec := record.Record{DN: "cn=alice,o=example", Elements: []record.Element{
		{Name: "cn", Values: [][]byte{[]byte("alice")}},
	}}
	addIndexedRecord(t, e, rec)

	if err := e.TransactionStart(); err != nil {
		t.Fatalf("TransactionStart: %v", err)
	}
	if err := e.Delete(rec); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := e.TransactionCommit(); err != nil {
		t.Fatalf("TransactionCommit: %v", err)
	}

	res, err := e.plan(filter.Eq("cn", []byte("alice")))
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if res.List.Len() != 0 {
		t.Fatalf("expected no candidates after delete, got %d", res.List.Len())
	}
}

func TestDeleteValueRemovesJustThatValue(t *testing.T) {
	store := kv.NewMemStore()
	e := newTestEngine(t, store, []string{"cn"}, nil, false)

	rec := record.Record{DN: "cn=alice,o=example", Elements: []record.Element{
		{Name: "cn", Values: [][]byte{[]byte("alice"), []byte("ali")}},
	}}
	addIndexedRecord(t, e, rec)

	if err := e.TransactionStart(); err != nil {
		t.Fatalf("TransactionStart: %v", err)
	}
	if err := e.DeleteValue(rec, "cn", []byte("ali")); err != nil {
		t.Fatalf("DeleteValue: %v", err)
	}
	if err := e.TransactionCommit(); err != nil {
		t.Fatalf("TransactionCommit: %v", err)
	}

	res, err := e.plan(filter.Eq("cn", []byte("alice")))
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if res.List.Len() != 1 {
		t.Fatalf("expected the other value's entry to remain, got %d", res.List.Len())
	}

	res2, err := e.plan(filter.Eq("cn", []byte("ali")))
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if res2.List.Len() != 0 {
		t.Fatalf("expected deleted value's entry to be gone, got %d", res2.List.Len())
	}
}
