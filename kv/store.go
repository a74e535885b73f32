// Package kv defines the ordered key/value store contract the indexing
// core treats as an external collaborator (spec.md §1, §6): get, put,
// delete, iterate, update_in_iterate. The core's own write buffer (see
// package index) is what gives transactional batching; the backing store
// here is consulted only for untouched keys and on commit.
//
// Two concrete backends are provided: a file-backed store guarded by an
// advisory flock (the default, grounded on the teacher's
// storage/internal/json_storage.go), and a SQLite-backed store built on
// squirrel (an alternate backend exercising the same contract against a
// real embedded engine).
package kv

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get and Delete when key is absent. The index
// core treats this as routine (spec.md §7 — disappearing records during
// iteration are not errors), never as OPERATIONS_ERROR.
var ErrNotFound = errors.New("kv: key not found")

// PutMode selects INSERT-only or REPLACE-or-create semantics for Put.
type PutMode int

const (
	// Replace overwrites an existing value or creates the key.
	Replace PutMode = iota
	// Insert fails with ErrExists if the key is already present.
	Insert
)

// ErrExists is returned by Put in Insert mode when the key already exists.
var ErrExists = errors.New("kv: key already exists")

// IterateFunc is invoked once per stored key/value pair during Iterate. An
// error aborts the scan.
type IterateFunc func(key string, value []byte) error

// Store is the ordered key/value backing store contract.
type Store interface {
	// Get fetches the value stored at key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Put writes value at key according to mode.
	Put(key string, value []byte, mode PutMode) error

	// Delete removes key. ErrNotFound is not an error the caller needs to
	// handle specially — callers that don't care whether the key existed
	// may ignore it.
	Delete(key string) error

	// Iterate calls fn for every stored key/value pair. Implementations
	// copy the candidate key list before dispatching fn (spec.md §9
	// "copy-before-dispatch") so fn may itself mutate the store.
	Iterate(fn IterateFunc) error

	// UpdateInIterate renames oldKey to newKey with a new value, for use
	// from inside an Iterate callback during reindex's re-key pass
	// (spec.md §4.8 step 2).
	UpdateInIterate(oldKey, newKey string, value []byte) error

	// Name identifies the backend, for diagnostics.
	Name() string
}

// scanKeys returns a stable, independent copy of keys so callers can
// safely range over it while the backing map is mutated underneath — the
// shared "copy-before-dispatch" helper used by FileStore's and MemStore's
// Iterate.
func scanKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func wrapNotFound(op, key string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("kv: %s %q: %w", op, key, err)
}
