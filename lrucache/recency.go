/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

// nilHandle is the handle of the sentinel node. The sentinel closes the list into a ring:
// sentinel.next is the least recently used node, sentinel.prev is the most recently used one.
const nilHandle int32 = 0

type recencyNode[K comparable] struct {
	key  K
	prev int32
	next int32
}

// recencyIndex keeps keys ordered from the least to the most recently used.
// Nodes live in a single arena slice and are addressed by int32 handles,
// so touching, removing and picking an eviction candidate are O(1) and allocation-free
// once the arena has grown to the cache capacity.
type recencyIndex[K comparable] struct {
	nodes   []recencyNode[K]
	free    []int32
	handles map[K]int32
	seq     uint64
}

func newRecencyIndex[K comparable](capacity int) *recencyIndex[K] {
	nodes := make([]recencyNode[K], 1, capacity+1)
	nodes[nilHandle] = recencyNode[K]{prev: nilHandle, next: nilHandle}
	return &recencyIndex[K]{
		nodes:   nodes,
		free:    make([]int32, 0, capacity),
		handles: make(map[K]int32, capacity),
	}
}

// touch moves the key to the most recently used end (inserting it if absent)
// and returns the access sequence number assigned to it.
func (ri *recencyIndex[K]) touch(key K) uint64 {
	h, ok := ri.handles[key]
	if ok {
		ri.unlink(h)
	} else {
		h = ri.alloc(key)
		ri.handles[key] = h
	}
	ri.linkBack(h)
	ri.seq++
	return ri.seq
}

// evictCandidate returns the least recently used key without removing it.
func (ri *recencyIndex[K]) evictCandidate() (K, error) {
	h := ri.nodes[nilHandle].next
	if h == nilHandle {
		var zero K
		return zero, ErrEmptyIndex
	}
	return ri.nodes[h].key, nil
}

// remove deletes the key from the index. It reports whether the key was present.
func (ri *recencyIndex[K]) remove(key K) bool {
	h, ok := ri.handles[key]
	if !ok {
		return false
	}
	ri.unlink(h)
	delete(ri.handles, key)
	var zero K
	ri.nodes[h] = recencyNode[K]{key: zero}
	ri.free = append(ri.free, h)
	return true
}

func (ri *recencyIndex[K]) len() int {
	return len(ri.handles)
}

// keys returns all keys ordered from the least to the most recently used.
func (ri *recencyIndex[K]) keys() []K {
	keys := make([]K, 0, len(ri.handles))
	for h := ri.nodes[nilHandle].next; h != nilHandle; h = ri.nodes[h].next {
		keys = append(keys, ri.nodes[h].key)
	}
	return keys
}

// reset drops all keys. The access sequence keeps growing so that it stays monotonic.
func (ri *recencyIndex[K]) reset() {
	ri.nodes = ri.nodes[:1]
	ri.nodes[nilHandle] = recencyNode[K]{prev: nilHandle, next: nilHandle}
	ri.free = ri.free[:0]
	ri.handles = make(map[K]int32, cap(ri.nodes)-1)
}

func (ri *recencyIndex[K]) alloc(key K) int32 {
	if n := len(ri.free); n > 0 {
		h := ri.free[n-1]
		ri.free = ri.free[:n-1]
		ri.nodes[h].key = key
		return h
	}
	ri.nodes = append(ri.nodes, recencyNode[K]{key: key})
	return int32(len(ri.nodes) - 1)
}

func (ri *recencyIndex[K]) unlink(h int32) {
	n := &ri.nodes[h]
	ri.nodes[n.prev].next = n.next
	ri.nodes[n.next].prev = n.prev
	n.prev, n.next = nilHandle, nilHandle
}

func (ri *recencyIndex[K]) linkBack(h int32) {
	tail := ri.nodes[nilHandle].prev
	ri.nodes[h].prev = tail
	ri.nodes[h].next = nilHandle
	ri.nodes[tail].next = h
	ri.nodes[nilHandle].prev = h
}
