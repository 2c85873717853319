/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/acronis/go-cachekit/log/logtest"
	"github.com/acronis/go-cachekit/retry"
)

func TestPeriodicWorker(t *testing.T) {
	t.Run("runs until context is canceled", func(t *testing.T) {
		var runs atomic.Int32
		ctx, cancel := context.WithCancel(context.Background())
		logRecorder := logtest.NewRecorder()
		pw := NewPeriodicWorkerWithOpts(WorkerFunc(func(ctx context.Context) error {
			if runs.Inc() == 3 {
				cancel()
			}
			return nil
		}), time.Millisecond, logRecorder, PeriodicWorkerOpts{Name: "flusher"})

		require.NoError(t, pw.Run(ctx))
		require.EqualValues(t, 3, runs.Load())

		entry, found := logRecorder.FindEntry("periodic worker stopped")
		require.True(t, found)
		field, found := entry.FindField("worker")
		require.True(t, found)
		require.Equal(t, "flusher", string(field.Bytes))
	})

	t.Run("stops on ErrPeriodicWorkerStop", func(t *testing.T) {
		var runs atomic.Int32
		pw := NewPeriodicWorker(WorkerFunc(func(ctx context.Context) error {
			if runs.Inc() == 2 {
				return ErrPeriodicWorkerStop
			}
			return nil
		}), time.Millisecond, nil)

		require.NoError(t, pw.Run(context.Background()))
		require.EqualValues(t, 2, runs.Load())
	})

	t.Run("failed runs are logged and use error backoff", func(t *testing.T) {
		var runs atomic.Int32
		logRecorder := logtest.NewRecorder()
		errFlush := errors.New("flush failed")
		pw := NewPeriodicWorkerWithOpts(WorkerFunc(func(ctx context.Context) error {
			switch runs.Inc() {
			case 1, 2:
				return errFlush
			default:
				return ErrPeriodicWorkerStop
			}
		}), time.Hour, logRecorder, PeriodicWorkerOpts{
			ErrorBackoff: retry.NewConstantBackoffPolicy(time.Millisecond, 5),
		})

		done := make(chan error, 1)
		go func() { done <- pw.Run(context.Background()) }()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("error backoff is not applied, worker waits for the regular interval")
		}
		require.EqualValues(t, 3, runs.Load())
		require.Len(t, logRecorder.FindAllEntries("periodic worker run failed"), 2)
	})

	t.Run("initial delay", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		var runs atomic.Int32
		pw := NewPeriodicWorkerWithOpts(WorkerFunc(func(ctx context.Context) error {
			runs.Inc()
			return nil
		}), time.Millisecond, nil, PeriodicWorkerOpts{InitialDelay: time.Hour})

		require.NoError(t, pw.Run(ctx))
		require.Zero(t, runs.Load())
	})
}
