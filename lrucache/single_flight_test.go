/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("different keys", func(t *testing.T) {
		var group loadGroup[string, int]
		var callCount int32

		const numGoroutines = 10
		var wg sync.WaitGroup
		results := make([]int, numGoroutines)
		errs := make([]error, numGoroutines)

		wg.Add(numGoroutines)
		for i := 0; i < numGoroutines; i++ {
			go func(i int) {
				defer wg.Done()
				results[i], _, errs[i] = group.Do(ctx, "key"+strconv.Itoa(i), func(context.Context) (int, error) {
					atomic.AddInt32(&callCount, 1)
					time.Sleep(50 * time.Millisecond)
					return (i + 1) * 10, nil
				})
			}(i)
		}
		wg.Wait()

		require.Equal(t, int32(numGoroutines), callCount)
		for i := range results {
			require.NoError(t, errs[i])
			require.Equal(t, (i+1)*10, results[i])
		}
	})

	t.Run("same key", func(t *testing.T) {
		var group loadGroup[string, int]
		var callCount int32
		errLoad := errors.New("load failed")

		const numGoroutines = 10
		var wg sync.WaitGroup
		errs := make([]error, numGoroutines)
		shared := make([]bool, numGoroutines)

		wg.Add(numGoroutines)
		for i := 0; i < numGoroutines; i++ {
			go func(i int) {
				defer wg.Done()
				_, shared[i], errs[i] = group.Do(ctx, "key", func(context.Context) (int, error) {
					atomic.AddInt32(&callCount, 1)
					time.Sleep(100 * time.Millisecond)
					return 0, errLoad
				})
			}(i)
		}
		wg.Wait()

		require.Equal(t, int32(1), callCount, "expected fn to be called only once")
		for i := range errs {
			require.ErrorIs(t, errs[i], errLoad)
			require.True(t, shared[i])
		}
	})

	t.Run("waiter gives up when its context is done", func(t *testing.T) {
		var group loadGroup[string, int]
		release := make(chan struct{})
		started := make(chan struct{})

		var leaderVal int
		var leaderErr error
		leaderDone := make(chan struct{})
		go func() {
			defer close(leaderDone)
			leaderVal, _, leaderErr = group.Do(ctx, "key", func(context.Context) (int, error) {
				close(started)
				<-release
				return 42, nil
			})
		}()
		<-started

		waiterCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, _, err := group.Do(waiterCtx, "key", func(context.Context) (int, error) {
			t.Error("fn must not be called for a key in flight")
			return 0, nil
		})
		require.ErrorIs(t, err, context.DeadlineExceeded)

		close(release)
		<-leaderDone
		require.NoError(t, leaderErr)
		require.Equal(t, 42, leaderVal)
	})

	t.Run("panic is propagated to the leader and reported to waiters", func(t *testing.T) {
		var group loadGroup[string, int]
		release := make(chan struct{})
		started := make(chan struct{})

		var leaderPanic interface{}
		leaderDone := make(chan struct{})
		go func() {
			defer close(leaderDone)
			defer func() { leaderPanic = recover() }()
			_, _, _ = group.Do(ctx, "key", func(context.Context) (int, error) {
				close(started)
				<-release
				panic("boom")
			})
		}()
		<-started

		waiterErr := make(chan error, 1)
		go func() {
			_, _, err := group.Do(ctx, "key", func(context.Context) (int, error) { return 0, nil })
			waiterErr <- err
		}()
		time.Sleep(20 * time.Millisecond) // let the waiter join the call
		close(release)
		<-leaderDone

		require.Equal(t, "boom", leaderPanic)
		err := <-waiterErr
		var panicErr *PanicError
		require.ErrorAs(t, err, &panicErr)
		require.Equal(t, "boom", panicErr.Value)
	})
}
