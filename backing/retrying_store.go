/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backing

import (
	"context"
	"errors"
	"time"

	"github.com/acronis/go-cachekit/log"
	"github.com/acronis/go-cachekit/retry"
)

// RetryingStore wraps a Store and repeats failed operations according to the retry policy.
// Missing records, closed stores, oversized values and context errors are never retried.
type RetryingStore struct {
	store  Store
	policy retry.Policy
	logger log.FieldLogger
}

// NewRetryingStore creates a new RetryingStore. Logger may be nil.
func NewRetryingStore(store Store, policy retry.Policy, logger log.FieldLogger) *RetryingStore {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &RetryingStore{store: store, policy: policy, logger: logger}
}

// Read implements Store.
func (rs *RetryingStore) Read(ctx context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := retry.DoWithRetry(ctx, rs.policy, isRetryableStoreError, rs.logRetry("read", key),
		func(ctx context.Context) error {
			v, err := rs.store.Read(ctx, key)
			if err != nil {
				return err
			}
			value = v
			return nil
		})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Write implements Store.
func (rs *RetryingStore) Write(ctx context.Context, key []byte, value []byte) error {
	return retry.DoWithRetry(ctx, rs.policy, isRetryableStoreError, rs.logRetry("write", key),
		func(ctx context.Context) error {
			return rs.store.Write(ctx, key, value)
		})
}

// Delete implements Store.
func (rs *RetryingStore) Delete(ctx context.Context, key []byte) error {
	return retry.DoWithRetry(ctx, rs.policy, isRetryableStoreError, rs.logRetry("delete", key),
		func(ctx context.Context) error {
			return rs.store.Delete(ctx, key)
		})
}

// Close implements Store. Closing is never retried.
func (rs *RetryingStore) Close() error {
	return rs.store.Close()
}

func (rs *RetryingStore) logRetry(op string, key []byte) retry.OnRetry {
	return func(attempt int, err error, delay time.Duration) {
		rs.logger.Warn("backing store operation failed, will retry",
			log.String("op", op), log.Bytes("key", key), log.Int("attempt", attempt),
			log.Duration("delay", delay), log.Error(err))
	}
}

func isRetryableStoreError(err error) bool {
	return !errors.Is(err, ErrNotFound) &&
		!errors.Is(err, ErrStoreClosed) &&
		!errors.Is(err, ErrValueTooLarge) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
