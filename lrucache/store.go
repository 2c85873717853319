/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

type entry[K comparable, V any] struct {
	key        K
	value      V
	lastAccess uint64
	dirty      bool // value differs from what the backing store holds
}

// entryStore owns cache entries. It knows nothing about recency; the cache keeps it
// in sync with recencyIndex so that both always hold the same set of keys.
type entryStore[K comparable, V any] struct {
	entries map[K]*entry[K, V]
}

func newEntryStore[K comparable, V any](capacity int) *entryStore[K, V] {
	return &entryStore[K, V]{entries: make(map[K]*entry[K, V], capacity)}
}

func (s *entryStore[K, V]) get(key K) (*entry[K, V], bool) {
	e, ok := s.entries[key]
	return e, ok
}

// put stores the value under the key, creating the entry if needed, and returns the previous value.
func (s *entryStore[K, V]) put(key K, value V, dirty bool) (e *entry[K, V], previous V, existed bool) {
	if e, existed = s.entries[key]; existed {
		previous = e.value
		e.value = value
		e.dirty = e.dirty || dirty
		return e, previous, true
	}
	e = &entry[K, V]{key: key, value: value, dirty: dirty}
	s.entries[key] = e
	return e, previous, false
}

func (s *entryStore[K, V]) remove(key K) (*entry[K, V], bool) {
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	delete(s.entries, key)
	return e, true
}

func (s *entryStore[K, V]) len() int {
	return len(s.entries)
}

func (s *entryStore[K, V]) reset() {
	s.entries = make(map[K]*entry[K, V])
}
