/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-cachekit/backing"
	"github.com/acronis/go-cachekit/lrucache"
)

func newTestCache(t *testing.T, capacity int, store backing.Store) *lrucache.Cache[string, string] {
	t.Helper()
	b := backing.NewChannel[string, string](store, backing.StringCodec{}, backing.StringCodec{})
	cache, err := lrucache.New[string, string](capacity, b, lrucache.WithReadThrough(true))
	require.NoError(t, err)
	return cache
}

func TestCommandLoop_Execute(t *testing.T) {
	ctx := context.Background()
	store := backing.NewMemoryStore()
	cache := newTestCache(t, 2, store)
	cl := newCommandLoop(cache, nil, nil, nil)

	tests := []struct {
		line       string
		wantOutput string
		wantQuit   bool
		wantErr    string
	}{
		{line: "", wantOutput: ""},
		{line: "# comment", wantOutput: ""},
		{line: "put a 1", wantOutput: "ok"},
		{line: "put b hello world", wantOutput: "ok"},
		{line: "get b", wantOutput: "hello world"},
		{line: "put c 3", wantOutput: "ok"},
		{line: "keys", wantOutput: "b c"},
		{line: "GET a", wantOutput: "1"}, // evicted "a" is loaded back from the backing store
		{line: "get missing", wantOutput: "missing not found"},
		{line: "del a", wantOutput: "ok"},
		{line: "get a", wantOutput: "a not found"},
		{line: "flush", wantOutput: "ok"},
		{line: "get", wantErr: "usage: get <key>"},
		{line: "put a", wantErr: "usage: put <key> <value>"},
		{line: "del", wantErr: "usage: del <key>"},
		{line: "frobnicate", wantErr: `unknown command "frobnicate"`},
		{line: "quit", wantQuit: true},
	}
	for _, tt := range tests {
		output, quit, err := cl.execute(ctx, tt.line)
		if tt.wantErr != "" {
			require.ErrorContains(t, err, tt.wantErr, "line %q", tt.line)
			continue
		}
		require.NoError(t, err, "line %q", tt.line)
		require.Equal(t, tt.wantOutput, output, "line %q", tt.line)
		require.Equal(t, tt.wantQuit, quit, "line %q", tt.line)
	}

	// "b" was written on eviction, "c" by flush, "a" was deleted.
	require.Equal(t, 2, store.Len())
	require.Equal(t, []string{"c"}, cache.Keys())

	output, _, err := cl.execute(ctx, "stats")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(output, "len=1 cap=2 "), output)
}

func TestCommandLoop_Run(t *testing.T) {
	t.Run("quit", func(t *testing.T) {
		cache := newTestCache(t, 4, backing.NewMemoryStore())
		var out bytes.Buffer
		exited := false
		cl := newCommandLoop(cache, strings.NewReader("put k v\nget k\nbogus\nquit\nget k\n"), &out,
			func() { exited = true })

		require.NoError(t, cl.Run(context.Background()))
		require.True(t, exited)
		require.Equal(t, "ok\nv\nerror: unknown command \"bogus\", type \"help\" for the list\n", out.String())
	})

	t.Run("end of input", func(t *testing.T) {
		cache := newTestCache(t, 4, backing.NewMemoryStore())
		var out bytes.Buffer
		exited := false
		cl := newCommandLoop(cache, strings.NewReader("put k v"), &out, func() { exited = true })

		require.NoError(t, cl.Run(context.Background()))
		require.True(t, exited)
		require.Equal(t, "ok\n", out.String())
	})

	t.Run("context cancellation", func(t *testing.T) {
		cache := newTestCache(t, 4, backing.NewMemoryStore())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		done := make(chan error, 1)
		go func() { done <- newCommandLoop(cache, blockingReader{}, &bytes.Buffer{}, nil).Run(ctx) }()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("command loop is not stopped by context cancellation")
		}
	})
}

type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	select {}
}
