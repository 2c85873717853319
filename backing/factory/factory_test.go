/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-cachekit/backing"
	"github.com/acronis/go-cachekit/backing/filestore"
	"github.com/acronis/go-cachekit/backing/sqlitestore"
)

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		cfg       func(dir string) *backing.Config
		opts      Options
		wantNil   bool
		checkType func(t *testing.T, s backing.Store)
	}{
		{
			name: "none",
			cfg: func(string) *backing.Config {
				return &backing.Config{Type: backing.StoreTypeNone}
			},
			wantNil: true,
		},
		{
			name: "memory",
			cfg: func(string) *backing.Config {
				return &backing.Config{Type: backing.StoreTypeMemory}
			},
			checkType: func(t *testing.T, s backing.Store) {
				require.IsType(t, &backing.MemoryStore{}, s)
			},
		},
		{
			name: "file",
			cfg: func(dir string) *backing.Config {
				return &backing.Config{Type: backing.StoreTypeFile, File: backing.FileConfig{Dir: dir, MaxValueSize: 1024}}
			},
			checkType: func(t *testing.T, s backing.Store) {
				require.IsType(t, &filestore.Store{}, s)
			},
		},
		{
			name: "sqlite",
			cfg: func(dir string) *backing.Config {
				return &backing.Config{Type: backing.StoreTypeSQLite, SQLite: backing.SQLiteConfig{
					Path: filepath.Join(dir, "cache.db"), Table: backing.DefaultSQLiteTable,
				}}
			},
			checkType: func(t *testing.T, s backing.Store) {
				require.IsType(t, &sqlitestore.Store{}, s)
			},
		},
		{
			name: "instrumented and retrying",
			cfg: func(string) *backing.Config {
				cfg := backing.NewConfig()
				cfg.Type = backing.StoreTypeMemory
				cfg.Retry.Enabled = true
				cfg.Retry.MaxAttempts = 2
				cfg.Retry.InitialInterval = 1
				return cfg
			},
			opts: Options{Metrics: backing.NewPrometheusMetrics()},
			checkType: func(t *testing.T, s backing.Store) {
				require.IsType(t, &backing.RetryingStore{}, s)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(ctx, tt.cfg(t.TempDir()), tt.opts)
			require.NoError(t, err)
			if tt.wantNil {
				require.Nil(t, store)
				return
			}
			tt.checkType(t, store)

			require.NoError(t, store.Write(ctx, []byte("k"), []byte("v")))
			got, err := store.Read(ctx, []byte("k"))
			require.NoError(t, err)
			require.Equal(t, []byte("v"), got)
			require.NoError(t, store.Close())
		})
	}

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewStore(ctx, &backing.Config{Type: "redis"}, Options{})
		require.ErrorContains(t, err, "unknown backing store type")
	})
}
