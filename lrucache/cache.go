/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/acronis/go-cachekit/backing"
	"github.com/acronis/go-cachekit/log"
	"github.com/acronis/go-cachekit/service"
)

// Backing is a durable store the cache writes evicted and flushed entries to.
// Read must return an error wrapping backing.ErrNotFound when there is no record for the key;
// any other error is treated as an I/O failure.
// backing.Channel implements this interface on top of any backing.Store.
type Backing[K comparable, V any] interface {
	Write(ctx context.Context, key K, value V) error
	Read(ctx context.Context, key K) (V, error)
	Close() error
}

// Deleter is implemented by backings that can delete records. See Cache.RemoveAndDelete.
type Deleter[K comparable] interface {
	Delete(ctx context.Context, key K) error
}

// Cache is a bounded LRU cache with write-back persistence to an optional backing store.
// All methods are safe for concurrent use.
type Cache[K comparable, V any] struct {
	capacity     int
	backing      Backing[K, V]
	readThrough  bool
	flushOnClose bool

	mu      sync.Mutex
	store   *entryStore[K, V]
	recency *recencyIndex[K]
	closed  bool

	loads loadGroup[K, V]
	// pendingLoads holds read-through loads that are waiting for the backing store, by key.
	pendingLoads  map[K]*pendingLoad
	loadsInFlight sync.WaitGroup

	logger           log.FieldLogger
	metricsCollector MetricsCollector
	stats            statsCounters
}

// Option configures the Cache.
type Option func(*options)

type options struct {
	readThrough      bool
	flushOnClose     bool
	logger           log.FieldLogger
	metricsCollector MetricsCollector
}

// WithReadThrough enables or disables loading missing keys from the backing store on Get.
func WithReadThrough(enabled bool) Option {
	return func(o *options) {
		o.readThrough = enabled
	}
}

// WithFlushOnClose determines whether Close writes all entries to the backing store. Enabled by default.
func WithFlushOnClose(enabled bool) Option {
	return func(o *options) {
		o.flushOnClose = enabled
	}
}

// WithLogger sets the logger. Logging is disabled by default.
func WithLogger(logger log.FieldLogger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetricsCollector sets the metrics collector. Metrics are disabled by default.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// New creates a new Cache that holds at most capacity entries.
// The backing store is optional (nil means the cache is memory-only) and is owned by the cache from now on:
// it is closed by Cache.Close, or right here if the cache cannot be created.
func New[K comparable, V any](capacity int, b Backing[K, V], opts ...Option) (*Cache[K, V], error) {
	if capacity <= 0 {
		var closeErr error
		if b != nil {
			closeErr = b.Close()
		}
		return nil, errors.Join(fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity), closeErr)
	}

	o := options{flushOnClose: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewDisabledLogger()
	}
	if o.metricsCollector == nil {
		o.metricsCollector = disabledMetrics{}
	}

	return &Cache[K, V]{
		capacity:         capacity,
		backing:          b,
		readThrough:      o.readThrough && b != nil,
		flushOnClose:     o.flushOnClose,
		store:            newEntryStore[K, V](capacity),
		recency:          newRecencyIndex[K](capacity),
		pendingLoads:     make(map[K]*pendingLoad),
		logger:           o.logger,
		metricsCollector: o.metricsCollector,
	}, nil
}

// NewFromConfig creates a new Cache configured by cfg. Options passed explicitly take precedence over cfg.
func NewFromConfig[K comparable, V any](cfg *Config, b Backing[K, V], opts ...Option) (*Cache[K, V], error) {
	cfgOpts := []Option{WithReadThrough(cfg.ReadThrough), WithFlushOnClose(cfg.FlushOnClose)}
	return New[K, V](cfg.Capacity, b, append(cfgOpts, opts...)...)
}

// Get returns the value stored under the key and marks the key as the most recently used.
// On a miss with read-through enabled the value is loaded from the backing store and cached as a clean entry,
// evicting the least recently used entry if the cache is full.
// Concurrent misses of the same key result in a single backing read. The read runs without blocking
// other operations; if the key is put, removed or evicted meanwhile, the loaded value is not cached
// and the lookup is repeated.
//
// ErrNotFound is returned when the key is absent. If the backing read failed for a reason other than
// a missing record, the returned error also matches ErrIOFailure.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, error) {
	var zero V

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return zero, ErrClosed
	}
	if value, ok := c.get(key); ok {
		c.mu.Unlock()
		return value, nil
	}
	c.mu.Unlock()

	if !c.readThrough {
		return zero, ErrNotFound
	}
	return c.loadThrough(ctx, key)
}

// Put stores the value under the key and marks the key as the most recently used.
// Stored values are dirty until they are written to the backing store.
//
// If the key is new and the cache is full, the least recently used entry is evicted first and,
// if it is dirty, written to the backing store. When that write fails, the eviction still happens
// (the cache never grows over its capacity), the new value is stored, and the returned error matches ErrIOFailure.
func (c *Cache[K, V]) Put(ctx context.Context, key K, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.invalidateLoad(key)
	if e, ok := c.store.get(key); ok {
		e.value = value
		e.dirty = c.backing != nil
		e.lastAccess = c.recency.touch(key)
		return nil
	}
	return c.insert(ctx, key, value, c.backing != nil)
}

// Remove removes the key from the cache and returns its value.
// The record in the backing store (if any) is kept, and pending changes of a dirty entry are discarded.
func (c *Cache[K, V]) Remove(key K) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	if c.closed {
		return zero, ErrClosed
	}
	c.invalidateLoad(key)
	e, ok := c.remove(key)
	if !ok {
		return zero, ErrNotFound
	}
	return e.value, nil
}

// RemoveAndDelete removes the key from the cache and deletes its record from the backing store.
// Absence of the key in either place is not an error.
func (c *Cache[K, V]) RemoveAndDelete(ctx context.Context, key K) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.invalidateLoad(key)
	c.remove(key)
	if c.backing == nil {
		return nil
	}
	deleter, ok := c.backing.(Deleter[K])
	if !ok {
		return ErrDeleteNotSupported
	}
	if err := deleter.Delete(ctx, key); err != nil && !errors.Is(err, backing.ErrNotFound) {
		return fmt.Errorf("%w: delete key %v: %w", ErrIOFailure, key, err)
	}
	return nil
}

// Contains reports whether the key is in the cache. It does not update recency.
func (c *Cache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.store.get(key)
	return ok
}

// Peek returns the value stored under the key without updating recency and without consulting the backing store.
func (c *Cache[K, V]) Peek(key K) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	if c.closed {
		return zero, ErrClosed
	}
	e, ok := c.store.get(key)
	if !ok {
		return zero, ErrNotFound
	}
	return e.value, nil
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.len()
}

// Cap returns the maximum number of entries in the cache.
func (c *Cache[K, V]) Cap() int {
	return c.capacity
}

// Keys returns all keys ordered from the least to the most recently used.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recency.keys()
}

// Stats returns a snapshot of usage counters.
func (c *Cache[K, V]) Stats() Stats {
	return c.stats.snapshot()
}

// Flush writes all entries to the backing store in order from the least to the most recently used.
// Entries stay in the cache. Failures do not stop the flush; they are joined into the returned error,
// which matches ErrIOFailure. Without a backing store Flush does nothing.
func (c *Cache[K, V]) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	return c.flush(ctx, false)
}

// FlushDirty is like Flush but writes only entries that changed since they were last written.
func (c *Cache[K, V]) FlushDirty(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	return c.flush(ctx, true)
}

// Purge writes dirty entries to the backing store and then drops all entries.
// Entries are dropped even if some writes fail; the returned error matches ErrIOFailure in this case.
// Dropped entries are not counted as evictions.
func (c *Cache[K, V]) Purge(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	err := c.flush(ctx, true)
	c.reset()
	return err
}

// Close flushes all entries (unless disabled with WithFlushOnClose(false)), drops them,
// and closes the backing store. The backing store is closed even if flushing fails,
// but only after in-flight read-through loads have returned from it.
// Any call after Close, including a repeated Close, returns ErrClosed.
func (c *Cache[K, V]) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true

	var errs []error
	if c.flushOnClose {
		if err := c.flush(ctx, false); err != nil {
			errs = append(errs, err)
		}
	}
	c.reset()
	c.mu.Unlock()

	// No load can start after closed is set, so the wait group only drains.
	c.loadsInFlight.Wait()
	if c.backing != nil {
		if err := c.backing.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%w: close backing store: %w", ErrIOFailure, err))
		}
	}
	return errors.Join(errs...)
}

// RunPeriodicFlush writes dirty entries to the backing store every flushInterval until ctx is done
// or the cache is closed. Failures are logged, and the entries stay dirty to be retried on the next tick.
// It's supposed to be run in a separate goroutine.
func (c *Cache[K, V]) RunPeriodicFlush(ctx context.Context, flushInterval time.Duration) {
	pw := service.NewPeriodicWorkerWithOpts(c.FlushWorker(), flushInterval, c.logger,
		service.PeriodicWorkerOpts{Name: "cache_flusher", InitialDelay: flushInterval})
	_ = pw.Run(ctx) // PeriodicWorker.Run never fails
}

// maxLoadAttempts limits how many times a read-through load is restarted
// because the key was changed while the backing store was being read.
const maxLoadAttempts = 3

// pendingLoad is marked stale when its key is put, removed or evicted during the backing read.
// A stale loaded value may be older than what the cache or the backing store holds now, so it is never cached.
type pendingLoad struct {
	stale bool
}

func (c *Cache[K, V]) loadThrough(ctx context.Context, key K) (V, error) {
	value, _, err := c.loads.Do(ctx, key, func(ctx context.Context) (V, error) {
		return c.load(ctx, key)
	})
	return value, err
}

// load reads the key from the backing store and caches it as a clean entry.
// If the key changes while the read is in progress, the value cached by then wins,
// or the read is repeated when there is none.
func (c *Cache[K, V]) load(ctx context.Context, key K) (V, error) {
	var zero V
	var pl *pendingLoad
	defer func() {
		if pl != nil { // the backing read panicked
			c.mu.Lock()
			c.finishLoad(key)
			c.mu.Unlock()
		}
	}()

	for attempt := 1; ; attempt++ {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return zero, ErrClosed
		}
		if e, ok := c.store.get(key); ok {
			e.lastAccess = c.recency.touch(key)
			c.mu.Unlock()
			return e.value, nil
		}
		pl = &pendingLoad{}
		c.pendingLoads[key] = pl
		c.loadsInFlight.Add(1)
		c.mu.Unlock()

		value, readErr := c.readBacking(ctx, key)

		c.mu.Lock()
		stale := pl.stale
		c.finishLoad(key)
		pl = nil
		if c.closed {
			c.mu.Unlock()
			return zero, ErrClosed
		}
		if stale {
			c.mu.Unlock()
			if attempt < maxLoadAttempts {
				continue
			}
			c.logger.Warn("key keeps changing during read-through, loaded value is not cached",
				log.Key(key), log.Int("attempts", attempt))
			return value, readErr
		}
		if readErr != nil {
			c.mu.Unlock()
			return zero, readErr
		}
		// A failed write-back of the evicted entry is logged and counted by insert.
		// The loaded value is still valid, so it is returned without an error.
		_ = c.insert(ctx, key, value, false)
		c.mu.Unlock()
		return value, nil
	}
}

func (c *Cache[K, V]) finishLoad(key K) {
	delete(c.pendingLoads, key)
	c.loadsInFlight.Done()
}

// readBacking reads the key from the backing store and maps failures to the cache errors.
func (c *Cache[K, V]) readBacking(ctx context.Context, key K) (V, error) {
	var zero V
	c.stats.backingReads.Inc()
	value, err := c.backing.Read(ctx, key)
	if err == nil {
		return value, nil
	}
	if errors.Is(err, backing.ErrNotFound) {
		return zero, ErrNotFound
	}
	c.stats.backingReadFailures.Inc()
	c.logger.Warn("read-through from backing store failed", log.Key(key), log.Error(err))
	return zero, fmt.Errorf("%w: %w: %w", ErrNotFound, ErrIOFailure, err)
}

func (c *Cache[K, V]) invalidateLoad(key K) {
	if pl, ok := c.pendingLoads[key]; ok {
		pl.stale = true
	}
}

func (c *Cache[K, V]) get(key K) (value V, ok bool) {
	e, hit := c.store.get(key)
	if !hit {
		c.stats.misses.Inc()
		c.metricsCollector.IncMisses()
		return value, false
	}
	e.lastAccess = c.recency.touch(key)
	c.stats.hits.Inc()
	c.metricsCollector.IncHits()
	return e.value, true
}

func (c *Cache[K, V]) insert(ctx context.Context, key K, value V, dirty bool) error {
	var evictErr error
	if c.store.len() >= c.capacity {
		evictErr = c.evictOldest(ctx)
	}
	e, _, _ := c.store.put(key, value, dirty)
	e.lastAccess = c.recency.touch(key)
	c.metricsCollector.SetAmount(c.store.len())
	return evictErr
}

// evictOldest removes the least recently used entry, writing it to the backing store first if it is dirty.
// The entry is removed even if the write fails.
func (c *Cache[K, V]) evictOldest(ctx context.Context) error {
	key, err := c.recency.evictCandidate()
	if err != nil {
		return fmt.Errorf("select eviction candidate: %w", err)
	}
	e, _ := c.store.get(key)

	var writeErr error
	if e.dirty {
		if writeErr = c.writeBack(ctx, e); writeErr != nil {
			c.logger.Error("write-back of evicted entry failed, entry is dropped",
				log.Key(key), log.Error(writeErr))
		}
	}

	c.invalidateLoad(key)
	c.store.remove(key)
	c.recency.remove(key)
	c.stats.evictions.Inc()
	c.metricsCollector.AddEvictions(1)
	c.logger.Debug("entry evicted", log.Key(key), log.Bool("dirty", e.dirty))
	return writeErr
}

func (c *Cache[K, V]) writeBack(ctx context.Context, e *entry[K, V]) error {
	if err := c.backing.Write(ctx, e.key, e.value); err != nil {
		c.stats.writeBackFailures.Inc()
		c.metricsCollector.IncWriteBackFailures()
		return fmt.Errorf("%w: write key %v: %w", ErrIOFailure, e.key, err)
	}
	e.dirty = false
	c.stats.writeBacks.Inc()
	c.metricsCollector.IncWriteBacks()
	return nil
}

func (c *Cache[K, V]) flush(ctx context.Context, dirtyOnly bool) error {
	if c.backing == nil {
		return nil
	}
	startTime := time.Now()
	var errs []error
	written := 0
	for _, key := range c.recency.keys() {
		e, _ := c.store.get(key)
		if dirtyOnly && !e.dirty {
			continue
		}
		if err := c.writeBack(ctx, e); err != nil {
			errs = append(errs, err)
			continue
		}
		written++
	}
	if len(errs) != 0 {
		c.logger.Error("flush finished with failures",
			log.Int("written", written), log.Int("failed", len(errs)), log.Error(errs[0]))
		return errors.Join(errs...)
	}
	if written != 0 {
		c.logger.Info("flush finished", log.Int("written", written), log.DurationIn(time.Since(startTime), time.Millisecond))
	}
	return nil
}

func (c *Cache[K, V]) remove(key K) (*entry[K, V], bool) {
	e, ok := c.store.remove(key)
	if !ok {
		return nil, false
	}
	c.recency.remove(key)
	c.metricsCollector.SetAmount(c.store.len())
	return e, true
}

func (c *Cache[K, V]) reset() {
	c.store.reset()
	c.recency.reset()
	c.metricsCollector.SetAmount(0)
}
