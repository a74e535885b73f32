package index

import (
	"encoding/json"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/arthur-debert/kvindex/dnlist"
	"github.com/arthur-debert/kvindex/kv"
)

// wireIndexRecord is the on-disk encoding of an index record's value
// (spec.md §3): a version attribute plus the @IDX value set. Go's
// encoding/json already base64-encodes []byte fields, which gives each
// stored value (a casefolded DN in DN mode, a 16-byte GUID in GUID mode)
// an unambiguous byte-exact round trip without hand-rolled packing.
type wireIndexRecord struct {
	Version string   `json:"@IDXVERSION"`
	Values  [][]byte `json:"@IDX"`
}

// Facade is the index store facade (C3): it loads and stores DN-lists by
// key, dispatching through the active transaction's write buffer when one
// exists, and falling back to the backing kv.Store otherwise. A bounded LRU
// cache sits in front of KV reads for keys the current transaction has not
// touched (SPEC_FULL.md §3). A staged key is always served from the write
// buffer ahead of the cache, and its cache entry is dropped when the key is
// flushed to the KV, so the cache never changes what load/store observe,
// only how fast untouched keys resolve.
type Facade struct {
	backing  kv.Store
	guidMode bool
	buf      *writeBuffer
	cache    *lru.Cache[string, *dnlist.List]
}

// NewFacade wraps backing with the index store facade. cacheSize of 0
// disables caching.
func NewFacade(backing kv.Store, guidMode bool, cacheSize int) (*Facade, error) {
	f := &Facade{backing: backing, guidMode: guidMode}
	if cacheSize > 0 {
		c, err := lru.New[string, *dnlist.List](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("index: create LRU cache: %w", err)
		}
		f.cache = c
	}
	return f, nil
}

// beginTransaction allocates a fresh write buffer (spec.md §6
// transaction_start).
func (f *Facade) beginTransaction() {
	f.buf = newWriteBuffer()
}

// inTransaction reports whether a write buffer is currently active.
func (f *Facade) inTransaction() bool {
	return f.buf != nil
}

// load implements spec.md §4.4 load(dn): buffer first, then cache, then KV.
func (f *Facade) load(key string) (*dnlist.List, error) {
	if f.buf != nil {
		if l, ok := f.buf.get(key); ok {
			return shallowCopy(l), nil
		}
	}

	if f.cache != nil {
		if l, ok := f.cache.Get(key); ok {
			return shallowCopy(l), nil
		}
	}

	l, err := f.loadFromKV(key)
	if err != nil {
		return nil, err
	}
	if f.cache != nil {
		f.cache.Add(key, shallowCopy(l))
	}
	return l, nil
}

func (f *Facade) loadFromKV(key string) (*dnlist.List, error) {
	raw, err := f.backing.Get(key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return dnlist.New(f.guidMode), nil
		}
		return nil, OperationsErrorWrap(err, "load index record %q", key)
	}

	var wire wireIndexRecord
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, OperationsErrorWrap(err, "unpack index record %q", key)
	}

	wantVersion := indexVersionDN
	if f.guidMode {
		wantVersion = indexVersionGUID
	}
	if wire.Version != wantVersion {
		return nil, OperationsErrorf("index record %q has version %q, database is in %q mode (reindex required)", key, wire.Version, wantVersion)
	}

	list := dnlist.New(f.guidMode)
	if f.guidMode {
		for _, v := range wire.Values {
			if len(v) != 16 {
				return nil, OperationsErrorf("index record %q: GUID value has length %d, want 16", key, len(v))
			}
		}
		list.Values = wire.Values
		list.Sort()
	} else {
		list.Values = wire.Values
	}
	return list, nil
}

// store implements spec.md §4.4 store(dn, list): write-through when no
// transaction is active, staged in the buffer otherwise.
func (f *Facade) store(key string, list *dnlist.List) error {
	if f.buf != nil {
		f.buf.put(key, list)
		return nil
	}
	return f.flushOne(key, list)
}

// flushOne writes a single key's list to the backing KV, deleting the
// record when the list is empty (spec.md §4.4: "Empty list ⇒ delete the
// record (NOT-FOUND is not an error)"). The cache entry for key is
// invalidated either way.
func (f *Facade) flushOne(key string, list *dnlist.List) error {
	if f.cache != nil {
		f.cache.Remove(key)
	}

	if list.Len() == 0 {
		if err := f.backing.Delete(key); err != nil && !errors.Is(err, kv.ErrNotFound) {
			return OperationsErrorWrap(err, "delete empty index record %q", key)
		}
		return nil
	}

	version := indexVersionDN
	if f.guidMode {
		version = indexVersionGUID
	}
	raw, err := json.Marshal(wireIndexRecord{Version: version, Values: list.Values})
	if err != nil {
		return OperationsErrorWrap(err, "pack index record %q", key)
	}
	if err := f.backing.Put(key, raw, kv.Replace); err != nil {
		return OperationsErrorWrap(err, "write index record %q", key)
	}
	return nil
}

// commit drains the write buffer to the backing KV, propagating the first
// error but always discarding the buffer afterward (spec.md §4.4).
func (f *Facade) commit() error {
	if f.buf == nil {
		return nil
	}
	buf := f.buf
	f.buf = nil

	var firstErr error
	for _, key := range buf.keys() {
		list, _ := buf.get(key)
		if err := f.flushOne(key, list); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// cancel discards the write buffer without touching the backing KV
// (spec.md §5: "no KV mutation has occurred").
func (f *Facade) cancel() {
	f.buf = nil
}

func shallowCopy(l *dnlist.List) *dnlist.List {
	cp := dnlist.New(l.GUIDMode)
	cp.Strict = l.Strict
	cp.Values = make([][]byte, len(l.Values))
	copy(cp.Values, l.Values)
	return cp
}
