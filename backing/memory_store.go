/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backing

import (
	"context"
	"sync"
)

// MemoryStore is a Store that keeps records in process memory.
// It is not durable and is meant for tests and for running the cache without a disk.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
	closed  bool
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

// Read implements Store.
func (ms *MemoryStore) Read(_ context.Context, key []byte) ([]byte, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if ms.closed {
		return nil, ErrStoreClosed
	}
	value, ok := ms.records[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Write implements Store.
func (ms *MemoryStore) Write(_ context.Context, key []byte, value []byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.closed {
		return ErrStoreClosed
	}
	ms.records[string(key)] = append([]byte(nil), value...)
	return nil
}

// Delete implements Store.
func (ms *MemoryStore) Delete(_ context.Context, key []byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.closed {
		return ErrStoreClosed
	}
	delete(ms.records, string(key))
	return nil
}

// Len returns the number of stored records.
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.records)
}

// Close implements Store. Records are kept so they can be inspected after the cache is closed.
func (ms *MemoryStore) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.closed {
		return ErrStoreClosed
	}
	ms.closed = true
	return nil
}
