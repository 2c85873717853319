/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-cachekit/log/logtest"
)

func TestService_StartContext(t *testing.T) {
	t.Run("context cancellation stops the unit gracefully", func(t *testing.T) {
		unit := newMockUnit(nil, nil, true)
		logRecorder := logtest.NewRecorder()
		svc := New(logRecorder, unit)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.StartContext(ctx) }()
		waitTrue(t, &unit.started)
		cancel()

		require.NoError(t, <-done)
		require.True(t, unit.stoppedGrac.Load())
		require.True(t, unit.registered.Load())
		require.True(t, unit.unregistered.Load())
		_, found := logRecorder.FindEntry("context is canceled, service will be stopped")
		require.True(t, found)
	})

	t.Run("signal stops the unit gracefully", func(t *testing.T) {
		unit := newMockUnit(nil, nil, true)
		svc := NewWithOpts(logtest.NewRecorder(), unit, Opts{})

		done := make(chan error, 1)
		go func() { done <- svc.Start() }()
		waitTrue(t, &unit.started)
		svc.Signals <- syscall.SIGTERM

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("service is not stopped by signal")
		}
		require.True(t, unit.stoppedGrac.Load())
	})

	t.Run("fatal error", func(t *testing.T) {
		errFatal := errors.New("backing store is corrupted")
		svc := New(logtest.NewRecorder(), newMockUnit(errFatal, nil, false))
		require.ErrorIs(t, svc.StartContext(context.Background()), errFatal)
	})

	t.Run("stop error", func(t *testing.T) {
		errStop := errors.New("flush on close")
		unit := newMockUnit(nil, errStop, true)
		svc := New(logtest.NewRecorder(), unit)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.StartContext(ctx) }()
		waitTrue(t, &unit.started)
		cancel()
		require.ErrorIs(t, <-done, errStop)
	})
}
