/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package lrucache provides a bounded in-memory cache with LRU eviction, write-back persistence
// of evicted entries to a backing store, optional read-through on misses, and Prometheus metrics.
//
// Entries written with Put are marked dirty. When the cache is full, the least recently used entry
// is evicted, and if it is dirty, it is written to the backing store first. Flush writes all entries
// without evicting them. Close optionally flushes and releases the backing store exactly once.
package lrucache
