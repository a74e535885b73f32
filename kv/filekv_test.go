package kv

import (
	"path/filepath"
	"testing"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	dir := t.TempDir()
	return NewFileStore(filepath.Join(dir, "index.json"))
}

func TestFileStorePutGetRoundTrips(t *testing.T) {
	s := newTestFileStore(t)
	if err := s.Put("@INDEX:CN:ALICE", []byte("guid-1"), Replace); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get("@INDEX:CN:ALICE")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "guid-1" {
		t.Fatalf("got %q, want guid-1", got)
	}
}

func TestFileStoreGetMissingReturnsErrNotFound(t *testing.T) {
	s := newTestFileStore(t)
	if _, err := s.Get("nope"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStorePutInsertModeRejectsDuplicate(t *testing.T) {
	s := newTestFileStore(t)
	if err := s.Put("k", []byte("v1"), Insert); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := s.Put("k", []byte("v2"), Insert); err != ErrExists {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestFileStoreDeleteThenGetMisses(t *testing.T) {
	s := newTestFileStore(t)
	if err := s.Put("k", []byte("v"), Replace); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("k"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestFileStoreIteratePassesAllKeys(t *testing.T) {
	s := newTestFileStore(t)
	want := map[string]string{"a": "1", "b": "2", "c": "3"}
	for k, v := range want {
		if err := s.Put(k, []byte(v), Replace); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	seen := make(map[string]string)
	err := s.Iterate(func(key string, value []byte) error {
		seen[key] = string(value)
		return nil
	})
	if err != nil {
		t.Fatalf("Iterate: %v", err)
	}
	if len(seen) != len(want) {
		t.Fatalf("got %d keys, want %d", len(seen), len(want))
	}
	for k, v := range want {
		if seen[k] != v {
			t.Fatalf("key %q: got %q, want %q", k, seen[k], v)
		}
	}
}

func TestFileStoreUpdateInIterateRenamesKey(t *testing.T) {
	s := newTestFileStore(t)
	if err := s.Put("old", []byte("v"), Replace); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.UpdateInIterate("old", "new", []byte("v2")); err != nil {
		t.Fatalf("UpdateInIterate: %v", err)
	}
	if _, err := s.Get("old"); err != ErrNotFound {
		t.Fatalf("expected old key gone, got %v", err)
	}
	got, err := s.Get("new")
	if err != nil {
		t.Fatalf("Get new: %v", err)
	}
	if string(got) != "v2" {
		t.Fatalf("got %q, want v2", got)
	}
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.json")

	s1 := NewFileStore(path)
	if err := s1.Put("k", []byte("v"), Replace); err != nil {
		t.Fatalf("Put: %v", err)
	}

	s2 := NewFileStore(path)
	got, err := s2.Get("k")
	if err != nil {
		t.Fatalf("Get from reopened store: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("got %q, want v", got)
	}
}
