/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package sqlitestore provides a backing.Store that keeps records in a SQLite table.
// It uses the pure-Go modernc.org/sqlite driver, so no cgo is required.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/atomic"

	// registers the "sqlite" database/sql driver
	_ "modernc.org/sqlite"

	"github.com/acronis/go-cachekit/backing"
)

const driverName = "sqlite"

// DefaultTable is the name of the table used when Options.Table is empty.
const DefaultTable = "cache_records"

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Options represents options for the Store.
type Options struct {
	// Table is the name of the table with records. DefaultTable is used if empty.
	Table string
}

// Store is a SQLite-backed backing.Store.
type Store struct {
	db     *sql.DB
	closed atomic.Bool

	readQuery   string
	writeQuery  string
	deleteQuery string
	countQuery  string
}

var _ backing.Store = (*Store)(nil)

// New opens (creating if needed) the SQLite database at path and prepares the records table.
// The database handle is released if any step of the initialization fails.
func New(ctx context.Context, path string, opts Options) (_ *Store, err error) {
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	table := opts.Table
	if table == "" {
		table = DefaultTable
	}
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("%q is not a valid table name", table)
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	defer func() {
		if err != nil {
			_ = db.Close()
		}
	}()

	// SQLite serializes writers anyway; a single connection also keeps ":memory:" databases consistent.
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	if _, err = db.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (key BLOB PRIMARY KEY, value BLOB, updated_at INTEGER NOT NULL)`, table,
	)); err != nil {
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}

	return &Store{
		db:        db,
		readQuery: fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, table),
		writeQuery: fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, table),
		deleteQuery: fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, table),
		countQuery:  fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table),
	}, nil
}

// Read implements backing.Store.
func (s *Store) Read(ctx context.Context, key []byte) ([]byte, error) {
	if s.closed.Load() {
		return nil, backing.ErrStoreClosed
	}
	var value []byte
	if err := s.db.QueryRowContext(ctx, s.readQuery, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, backing.ErrNotFound
		}
		return nil, fmt.Errorf("select record: %w", err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

// Write implements backing.Store.
func (s *Store) Write(ctx context.Context, key []byte, value []byte) error {
	if s.closed.Load() {
		return backing.ErrStoreClosed
	}
	if _, err := s.db.ExecContext(ctx, s.writeQuery, key, value, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// Delete implements backing.Store.
func (s *Store) Delete(ctx context.Context, key []byte) error {
	if s.closed.Load() {
		return backing.ErrStoreClosed
	}
	if _, err := s.db.ExecContext(ctx, s.deleteQuery, key); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, backing.ErrStoreClosed
	}
	var n int
	if err := s.db.QueryRowContext(ctx, s.countQuery).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Close implements backing.Store.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return backing.ErrStoreClosed
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite database: %w", err)
	}
	return nil
}
