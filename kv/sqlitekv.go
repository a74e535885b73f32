package kv

import (
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

// SQLiteStore is an alternate Store backend on top of an embedded SQLite
// database, exercising the same contract against a real engine instead of
// a flat file. Statements are built with squirrel, grounded on the
// teacher's sqlBuilder/store.go pairing (sql.Open("sqlite", ...) plus the
// same busy-timeout/WAL pragma sequence for single-writer concurrency).
type SQLiteStore struct {
	db   *sql.DB
	path string
	sq   squirrel.StatementBuilderType
}

// NewSQLiteStore opens (creating if absent) a SQLite database at path and
// ensures the keys table exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("kv: open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kv: set busy_timeout: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("kv: execute %s: %w", p, err)
		}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	const schema = `CREATE TABLE IF NOT EXISTS kv_keys (
		key   TEXT PRIMARY KEY,
		value BLOB NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kv: create schema: %w", err)
	}

	return &SQLiteStore{
		db:   db,
		path: path,
		sq:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get implements Store.
func (s *SQLiteStore) Get(key string) ([]byte, error) {
	query, args, err := s.sq.Select("value").From("kv_keys").Where(squirrel.Eq{"key": key}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("kv: build select: %w", err)
	}

	var value []byte
	row := s.db.QueryRow(query, args...)
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, wrapNotFound("get", key, err)
	}
	return value, nil
}

// Put implements Store.
func (s *SQLiteStore) Put(key string, value []byte, mode PutMode) error {
	if mode == Insert {
		if _, err := s.Get(key); err == nil {
			return ErrExists
		} else if err != ErrNotFound {
			return err
		}
	}

	query, args, err := s.sq.
		Insert("kv_keys").
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value").
		ToSql()
	if err != nil {
		return fmt.Errorf("kv: build upsert: %w", err)
	}
	if _, err := s.db.Exec(query, args...); err != nil {
		return fmt.Errorf("kv: upsert %q: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(key string) error {
	query, args, err := s.sq.Delete("kv_keys").Where(squirrel.Eq{"key": key}).ToSql()
	if err != nil {
		return fmt.Errorf("kv: build delete: %w", err)
	}
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("kv: delete %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("kv: rows affected for delete %q: %w", key, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Iterate implements Store.
func (s *SQLiteStore) Iterate(fn IterateFunc) error {
	query, args, err := s.sq.Select("key", "value").From("kv_keys").ToSql()
	if err != nil {
		return fmt.Errorf("kv: build select-all: %w", err)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return fmt.Errorf("kv: query all: %w", err)
	}

	type pair struct {
		key   string
		value []byte
	}
	var pairs []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.key, &p.value); err != nil {
			_ = rows.Close()
			return fmt.Errorf("kv: scan row: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("kv: close rows: %w", err)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("kv: iterate rows: %w", err)
	}

	for _, p := range pairs {
		if err := fn(p.key, p.value); err != nil {
			return err
		}
	}
	return nil
}

// UpdateInIterate implements Store.
func (s *SQLiteStore) UpdateInIterate(oldKey, newKey string, value []byte) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("kv: begin rekey transaction: %w", err)
	}

	delQuery, delArgs, err := s.sq.Delete("kv_keys").Where(squirrel.Eq{"key": oldKey}).ToSql()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("kv: build rekey delete: %w", err)
	}
	if _, err := tx.Exec(delQuery, delArgs...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("kv: rekey delete %q: %w", oldKey, err)
	}

	insQuery, insArgs, err := s.sq.
		Insert("kv_keys").
		Columns("key", "value").
		Values(newKey, value).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value").
		ToSql()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("kv: build rekey insert: %w", err)
	}
	if _, err := tx.Exec(insQuery, insArgs...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("kv: rekey insert %q: %w", newKey, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("kv: commit rekey: %w", err)
	}
	return nil
}

// Name implements Store.
func (s *SQLiteStore) Name() string {
	return "sqlitekv:" + s.path
}
