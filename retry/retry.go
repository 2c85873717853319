/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package retry provides backoff policies for repeating failed backing store operations.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// IsRetryable tells whether a failed attempt may be repeated. Nil means any error is retryable.
type IsRetryable func(error) bool

// OnRetry is called before every repeated attempt with the number of the failed one (starting from 1),
// its error and the delay before the next attempt.
type OnRetry func(attempt int, err error, delay time.Duration)

// Policy makes a fresh backoff for every retried operation.
type Policy interface {
	NewBackOff() backoff.BackOff
}

// BackoffPolicy repeats an operation up to MaxRetries times (0 means without limit)
// with constant or exponentially growing delays.
type BackoffPolicy struct {
	Type       PolicyType
	Interval   time.Duration
	MaxRetries int
}

var _ Policy = BackoffPolicy{}

// NewExponentialBackoffPolicy returns a policy whose delays start from initialInterval and grow 1.5 times per attempt.
func NewExponentialBackoffPolicy(initialInterval time.Duration, maxRetries int) BackoffPolicy {
	return BackoffPolicy{Type: PolicyTypeExponential, Interval: initialInterval, MaxRetries: maxRetries}
}

// NewConstantBackoffPolicy returns a policy that waits the same interval before every attempt.
func NewConstantBackoffPolicy(interval time.Duration, maxRetries int) BackoffPolicy {
	return BackoffPolicy{Type: PolicyTypeConstant, Interval: interval, MaxRetries: maxRetries}
}

// NewBackOff implements Policy.
func (p BackoffPolicy) NewBackOff() backoff.BackOff {
	var bf backoff.BackOff
	if p.Type == PolicyTypeConstant {
		bf = backoff.NewConstantBackOff(p.Interval)
	} else {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = p.Interval
		eb.MaxElapsedTime = 0 // bounded by MaxRetries and the context
		bf = eb
	}
	if p.MaxRetries > 0 {
		bf = backoff.WithMaxRetries(bf, uint64(p.MaxRetries))
	}
	bf.Reset()
	return bf
}

// DoWithRetry calls fn until it succeeds, fails with a non-retryable error, the policy gives up or ctx is done.
// The last error is returned as is.
func DoWithRetry(ctx context.Context, p Policy, isRetryable IsRetryable, onRetry OnRetry, fn func(ctx context.Context) error) error {
	bctx := backoff.WithContext(p.NewBackOff(), ctx)
	attempt := 0
	op := func() error {
		attempt++
		err := fn(bctx.Context())
		if err != nil && isRetryable != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	var notify backoff.Notify
	if onRetry != nil {
		notify = func(err error, delay time.Duration) {
			onRetry(attempt, err, delay)
		}
	}
	return backoff.RetryNotify(op, bctx, notify)
}
