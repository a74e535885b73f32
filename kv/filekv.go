package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// FileStore is the default Store backend: a single JSON file guarded by an
// advisory flock, loaded and rewritten whole on every mutation (grounded on
// the teacher's storage/internal/json_storage.go loadLocked/saveLocked
// pair). It is adequate for the index engine's own unit of work, since the
// write buffer (package index) already batches an entire transaction's
// worth of key changes into one flush.
type FileStore struct {
	filePath string
	fileLock *flock.Flock
	mu       sync.RWMutex
}

// fileRecord is one key/value pair as persisted on disk. Values are stored
// base64 (via json's []byte handling) so arbitrary binary index values
// round-trip exactly.
type fileRecord struct {
	Keys map[string][]byte `json:"keys"`
}

// NewFileStore opens (without yet reading) the JSON file at path, using
// path+".lock" as the advisory lock file.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		filePath: path,
		fileLock: flock.New(path + ".lock"),
	}
}

func (s *FileStore) withLock(fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	locked, err := s.fileLock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("kv: acquire lock on %s: %w", s.filePath, err)
	}
	if !locked {
		return fmt.Errorf("kv: could not acquire lock on %s", s.filePath)
	}
	defer func() { _ = s.fileLock.Unlock() }()
	return fn()
}

func (s *FileStore) loadLocked() (*fileRecord, error) {
	if _, err := os.Stat(s.filePath); os.IsNotExist(err) {
		return &fileRecord{Keys: make(map[string][]byte)}, nil
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("kv: read %s: %w", s.filePath, err)
	}
	if len(data) == 0 {
		return &fileRecord{Keys: make(map[string][]byte)}, nil
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("kv: parse %s: %w", s.filePath, err)
	}
	if rec.Keys == nil {
		rec.Keys = make(map[string][]byte)
	}
	return &rec, nil
}

func (s *FileStore) saveLocked(rec *fileRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("kv: marshal %s: %w", s.filePath, err)
	}

	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("kv: write temp file for %s: %w", s.filePath, err)
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("kv: rename into %s: %w", s.filePath, err)
	}
	return nil
}

// Get implements Store.
func (s *FileStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value []byte
	err := s.withLock(func() error {
		rec, err := s.loadLocked()
		if err != nil {
			return err
		}
		v, ok := rec.Keys[key]
		if !ok {
			return ErrNotFound
		}
		value = v
		return nil
	})
	if err != nil {
		return nil, wrapNotFound("get", key, err)
	}
	return value, nil
}

// Put implements Store.
func (s *FileStore) Put(key string, value []byte, mode PutMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withLock(func() error {
		rec, err := s.loadLocked()
		if err != nil {
			return err
		}
		if mode == Insert {
			if _, ok := rec.Keys[key]; ok {
				return ErrExists
			}
		}
		rec.Keys[key] = value
		return s.saveLocked(rec)
	})
}

// Delete implements Store.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withLock(func() error {
		rec, err := s.loadLocked()
		if err != nil {
			return err
		}
		if _, ok := rec.Keys[key]; !ok {
			return ErrNotFound
		}
		delete(rec.Keys, key)
		return s.saveLocked(rec)
	})
}

// Iterate implements Store.
func (s *FileStore) Iterate(fn IterateFunc) error {
	s.mu.RLock()
	var rec *fileRecord
	err := s.withLock(func() error {
		loaded, err := s.loadLocked()
		if err != nil {
			return err
		}
		rec = loaded
		return nil
	})
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	keys := scanKeys(rec.Keys)
	for _, k := range keys {
		if err := fn(k, rec.Keys[k]); err != nil {
			return err
		}
	}
	return nil
}

// UpdateInIterate implements Store.
func (s *FileStore) UpdateInIterate(oldKey, newKey string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withLock(func() error {
		rec, err := s.loadLocked()
		if err != nil {
			return err
		}
		delete(rec.Keys, oldKey)
		rec.Keys[newKey] = value
		return s.saveLocked(rec)
	})
}

// Name implements Store.
func (s *FileStore) Name() string {
	return "filekv:" + s.filePath
}
