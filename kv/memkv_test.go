package kv

import "testing"

func TestMemStorePutGetDelete(t *testing.T) {
	s := NewMemStore()
	if err := s.Put("k", []byte("v"), Replace); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get("k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("got %q, want v", got)
	}
	if err := s.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("k"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemStoreInsertModeRejectsDuplicate(t *testing.T) {
	s := NewMemStore()
	if err := s.Put("k", []byte("v1"), Insert); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := s.Put("k", []byte("v2"), Insert); err != ErrExists {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestMemStoreGetReturnsIndependentCopy(t *testing.T) {
	s := NewMemStore()
	original := []byte("v")
	if err := s.Put("k", original, Replace); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get("k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got[0] = 'X'
	got2, _ := s.Get("k")
	if string(got2) != "v" {
		t.Fatalf("stored value mutated via returned slice: %q", got2)
	}
}

func TestMemStoreUpdateInIterateRenames(t *testing.T) {
	s := NewMemStore()
	if err := s.Put("old", []byte("v"), Replace); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.UpdateInIterate("old", "new", []byte("v2")); err != nil {
		t.Fatalf("UpdateInIterate: %v", err)
	}
	if _, err := s.Get("old"); err != ErrNotFound {
		t.Fatalf("expected old gone, got %v", err)
	}
	got, err := s.Get("new")
	if err != nil || string(got) != "v2" {
		t.Fatalf("got %q, %v", got, err)
	}
}
