/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import "go.uber.org/atomic"

// Stats is a point-in-time snapshot of cache usage counters.
type Stats struct {
	Hits                uint64
	Misses              uint64
	Evictions           uint64
	WriteBacks          uint64
	WriteBackFailures   uint64
	BackingReads        uint64
	BackingReadFailures uint64
}

// HitRatio returns the share of Get calls served from memory, or 0 if there were none.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// statsCounters can be read without taking the cache lock.
type statsCounters struct {
	hits                atomic.Uint64
	misses              atomic.Uint64
	evictions           atomic.Uint64
	writeBacks          atomic.Uint64
	writeBackFailures   atomic.Uint64
	backingReads        atomic.Uint64
	backingReadFailures atomic.Uint64
}

func (sc *statsCounters) snapshot() Stats {
	return Stats{
		Hits:                sc.hits.Load(),
		Misses:              sc.misses.Load(),
		Evictions:           sc.evictions.Load(),
		WriteBacks:          sc.writeBacks.Load(),
		WriteBackFailures:   sc.writeBackFailures.Load(),
		BackingReads:        sc.backingReads.Load(),
		BackingReadFailures: sc.backingReadFailures.Load(),
	}
}
