/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import "errors"

// ErrNotFound is returned when a key is neither in the cache nor (with read-through) in the backing store.
var ErrNotFound = errors.New("key not found")

// ErrIOFailure is returned when the backing store fails to read or write a record.
var ErrIOFailure = errors.New("backing store i/o failure")

// ErrInvalidCapacity is returned by constructors when capacity is not positive.
var ErrInvalidCapacity = errors.New("capacity must be greater than 0")

// ErrClosed is returned by every operation on a closed cache, including a repeated Close.
var ErrClosed = errors.New("cache is closed")

// ErrEmptyIndex is returned when an eviction candidate is requested from an empty recency index.
var ErrEmptyIndex = errors.New("recency index is empty")

// ErrDeleteNotSupported is returned by RemoveAndDelete when the backing store cannot delete records.
var ErrDeleteNotSupported = errors.New("backing store does not support deletion")
