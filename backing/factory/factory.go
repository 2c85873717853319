/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package factory builds backing stores from configuration.
package factory

import (
	"context"
	"fmt"

	"github.com/acronis/go-cachekit/backing"
	"github.com/acronis/go-cachekit/backing/filestore"
	"github.com/acronis/go-cachekit/backing/sqlitestore"
	"github.com/acronis/go-cachekit/log"
)

// Options represents optional collaborators of the built store.
type Options struct {
	// Logger is used for reporting retried operations. Nil disables logging.
	Logger log.FieldLogger

	// Metrics enables instrumentation of store operations when not nil.
	Metrics *backing.PrometheusMetrics
}

// NewStore creates a store of the configured type.
// It returns nil store and nil error when the configured type is backing.StoreTypeNone.
// The store is instrumented when metrics are passed and retries failed operations when retries are enabled.
func NewStore(ctx context.Context, cfg *backing.Config, opts Options) (backing.Store, error) {
	var store backing.Store
	switch cfg.Type {
	case backing.StoreTypeNone, "":
		return nil, nil
	case backing.StoreTypeMemory:
		store = backing.NewMemoryStore()
	case backing.StoreTypeFile:
		fs, err := filestore.New(cfg.File.Dir, filestore.Options{
			MaxValueSize: uint64(cfg.File.MaxValueSize),
			Sync:         cfg.File.Sync,
		})
		if err != nil {
			return nil, fmt.Errorf("create file store: %w", err)
		}
		store = fs
	case backing.StoreTypeSQLite:
		ss, err := sqlitestore.New(ctx, cfg.SQLite.Path, sqlitestore.Options{Table: cfg.SQLite.Table})
		if err != nil {
			return nil, fmt.Errorf("create sqlite store: %w", err)
		}
		store = ss
	default:
		return nil, fmt.Errorf("unknown backing store type %q", cfg.Type)
	}

	if opts.Metrics != nil {
		store = backing.NewInstrumentedStore(store, opts.Metrics)
	}
	if cfg.Retry != nil && cfg.Retry.Enabled {
		store = backing.NewRetryingStore(store, cfg.Retry.NewPolicy(), opts.Logger)
	}
	return store, nil
}
