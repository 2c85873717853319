/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package backing provides durable stores that hold records evicted or flushed from the cache,
// and a typed channel that binds a byte-level store to the cache key and value types.
package backing

import (
	"context"
	"errors"
)

// ErrNotFound is returned by stores when a record with the requested key does not exist.
var ErrNotFound = errors.New("backing record not found")

// ErrStoreClosed is returned by stores on any operation after Close.
var ErrStoreClosed = errors.New("backing store is closed")

// ErrValueTooLarge is returned when a store refuses a value that exceeds its size limit.
var ErrValueTooLarge = errors.New("value is too large")

// Store is a byte-addressable durable store.
// Read must return an error wrapping ErrNotFound when the record does not exist,
// any other error is considered an I/O failure.
// Delete of a missing record is not an error.
type Store interface {
	Read(ctx context.Context, key []byte) ([]byte, error)
	Write(ctx context.Context, key []byte, value []byte) error
	Delete(ctx context.Context, key []byte) error
	Close() error
}
