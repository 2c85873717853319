/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecencyIndex(t *testing.T) {
	t.Run("empty index has no candidate", func(t *testing.T) {
		ri := newRecencyIndex[string](4)
		_, err := ri.evictCandidate()
		require.ErrorIs(t, err, ErrEmptyIndex)
		require.False(t, ri.remove("a"))
		require.Empty(t, ri.keys())
	})

	t.Run("touch orders keys and assigns increasing sequence numbers", func(t *testing.T) {
		ri := newRecencyIndex[string](4)
		seqA := ri.touch("a")
		seqB := ri.touch("b")
		seqC := ri.touch("c")
		require.Less(t, seqA, seqB)
		require.Less(t, seqB, seqC)
		require.Equal(t, []string{"a", "b", "c"}, ri.keys())

		seqA2 := ri.touch("a")
		require.Greater(t, seqA2, seqC)
		require.Equal(t, []string{"b", "c", "a"}, ri.keys())

		candidate, err := ri.evictCandidate()
		require.NoError(t, err)
		require.Equal(t, "b", candidate)
		require.Equal(t, 3, ri.len(), "evictCandidate must not remove the key")
	})

	t.Run("remove from the middle, head and tail", func(t *testing.T) {
		tests := []struct {
			name     string
			remove   string
			wantKeys []string
		}{
			{name: "head", remove: "a", wantKeys: []string{"b", "c"}},
			{name: "middle", remove: "b", wantKeys: []string{"a", "c"}},
			{name: "tail", remove: "c", wantKeys: []string{"a", "b"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				ri := newRecencyIndex[string](3)
				ri.touch("a")
				ri.touch("b")
				ri.touch("c")
				require.True(t, ri.remove(tt.remove))
				require.Equal(t, tt.wantKeys, ri.keys())
				candidate, err := ri.evictCandidate()
				require.NoError(t, err)
				require.Equal(t, tt.wantKeys[0], candidate)
			})
		}
	})

	t.Run("freed handles are reused", func(t *testing.T) {
		const capacity = 3
		ri := newRecencyIndex[int](capacity)
		for i := 0; i < 1000; i++ {
			ri.touch(i)
			if ri.len() > capacity {
				candidate, err := ri.evictCandidate()
				require.NoError(t, err)
				require.True(t, ri.remove(candidate))
			}
		}
		require.Equal(t, []int{997, 998, 999}, ri.keys())
		require.LessOrEqual(t, len(ri.nodes), capacity+2, "arena must not grow past the working set")
	})

	t.Run("reset keeps the sequence monotonic", func(t *testing.T) {
		ri := newRecencyIndex[string](2)
		ri.touch("a")
		seq := ri.touch("b")
		ri.reset()
		require.Equal(t, 0, ri.len())
		_, err := ri.evictCandidate()
		require.ErrorIs(t, err, ErrEmptyIndex)
		require.Greater(t, ri.touch("a"), seq)
		require.Equal(t, []string{"a"}, ri.keys())
	})
}

func TestEntryStore(t *testing.T) {
	s := newEntryStore[string, int](2)

	_, ok := s.get("a")
	require.False(t, ok)

	e, prev, existed := s.put("a", 1, false)
	require.False(t, existed)
	require.Equal(t, 0, prev)
	require.Equal(t, "a", e.key)
	require.False(t, e.dirty)

	e, prev, existed = s.put("a", 2, true)
	require.True(t, existed)
	require.Equal(t, 1, prev)
	require.Equal(t, 2, e.value)
	require.True(t, e.dirty)

	// A clean overwrite never hides a pending change.
	e, _, _ = s.put("a", 3, false)
	require.True(t, e.dirty)

	removed, ok := s.remove("a")
	require.True(t, ok)
	require.Equal(t, 3, removed.value)
	_, ok = s.remove("a")
	require.False(t, ok)
	require.Equal(t, 0, s.len())
}
