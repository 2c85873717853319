/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backing

import (
	"context"
	"fmt"
)

// Channel binds a byte-level Store to typed keys and values.
// It satisfies the lrucache.Backing and lrucache.Deleter interfaces.
type Channel[K comparable, V any] struct {
	store      Store
	keyCodec   Codec[K]
	valueCodec Codec[V]
}

// NewChannel creates a new Channel. The channel takes ownership of the store and closes it on Close.
func NewChannel[K comparable, V any](store Store, keyCodec Codec[K], valueCodec Codec[V]) *Channel[K, V] {
	return &Channel[K, V]{store: store, keyCodec: keyCodec, valueCodec: valueCodec}
}

// Write persists the value under the key.
func (ch *Channel[K, V]) Write(ctx context.Context, key K, value V) error {
	rawKey, err := ch.keyCodec.Encode(key)
	if err != nil {
		return fmt.Errorf("encode key: %w", err)
	}
	rawValue, err := ch.valueCodec.Encode(value)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	return ch.store.Write(ctx, rawKey, rawValue)
}

// Read loads the value stored under the key.
// The returned error wraps ErrNotFound if there is no such record.
func (ch *Channel[K, V]) Read(ctx context.Context, key K) (V, error) {
	var zero V
	rawKey, err := ch.keyCodec.Encode(key)
	if err != nil {
		return zero, fmt.Errorf("encode key: %w", err)
	}
	rawValue, err := ch.store.Read(ctx, rawKey)
	if err != nil {
		return zero, err
	}
	value, err := ch.valueCodec.Decode(rawValue)
	if err != nil {
		return zero, fmt.Errorf("decode value: %w", err)
	}
	return value, nil
}

// Delete removes the record stored under the key.
func (ch *Channel[K, V]) Delete(ctx context.Context, key K) error {
	rawKey, err := ch.keyCodec.Encode(key)
	if err != nil {
		return fmt.Errorf("encode key: %w", err)
	}
	return ch.store.Delete(ctx, rawKey)
}

// Close closes the underlying store.
func (ch *Channel[K, V]) Close() error {
	return ch.store.Close()
}
