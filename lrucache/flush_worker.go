/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"context"
	"errors"

	"github.com/acronis/go-cachekit/service"
)

// FlushWorker returns a worker that writes dirty entries to the backing store on every run.
// It asks a PeriodicWorker to stop once the cache is closed, so it can be scheduled with
// service.NewPeriodicWorker and run as a service.WorkerUnit.
func (c *Cache[K, V]) FlushWorker() service.Worker {
	return service.WorkerFunc(func(ctx context.Context) error {
		err := c.FlushDirty(ctx)
		if errors.Is(err, ErrClosed) {
			return service.ErrPeriodicWorkerStop
		}
		return err
	})
}
