/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Command cachectl is an interactive shell over an LRU cache with a configurable backing store.
// Commands are read line by line from stdin, see "help" for the list.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/acronis/go-cachekit/backing"
	"github.com/acronis/go-cachekit/backing/factory"
	"github.com/acronis/go-cachekit/config"
	"github.com/acronis/go-cachekit/log"
	"github.com/acronis/go-cachekit/lrucache"
	"github.com/acronis/go-cachekit/retry"
	"github.com/acronis/go-cachekit/service"
)

const (
	envVarsPrefix = "CACHECTL"
	closeTimeout  = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "cachectl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("c", "", "path to YAML config file")
	flag.Parse()

	logCfg := log.NewConfig()
	cacheCfg := lrucache.NewConfig()
	backingCfg := backing.NewConfig()
	loader := config.NewDefaultLoader(envVarsPrefix)
	var err error
	if *cfgPath != "" {
		err = loader.LoadFromFile(*cfgPath, config.DataTypeYAML, logCfg, cacheCfg, backingCfg)
	} else {
		err = loader.LoadDefaults(logCfg, cacheCfg, backingCfg)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, closeLogger := log.NewLogger(logCfg)
	defer closeLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := newMetrics()
	store, err := factory.NewStore(ctx, backingCfg, factory.Options{Logger: logger, Metrics: metrics.backing})
	if err != nil {
		return fmt.Errorf("create backing store: %w", err)
	}
	var b lrucache.Backing[string, string]
	if store != nil {
		b = backing.NewChannel[string, string](store, backing.StringCodec{}, backing.StringCodec{})
	}

	cache, err := lrucache.NewFromConfig[string, string](cacheCfg, b,
		lrucache.WithLogger(logger), lrucache.WithMetricsCollector(metrics.cache))
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), closeTimeout)
		defer closeCancel()
		if closeErr := cache.Close(closeCtx); closeErr != nil && !errors.Is(closeErr, lrucache.ErrClosed) {
			logger.Error("closing cache failed", log.Error(closeErr))
		}
	}()

	units := []service.Unit{
		service.NewWorkerUnitWithOpts(newCommandLoop(cache, os.Stdin, os.Stdout, cancel), service.WorkerUnitOpts{
			MetricsRegisterer: metrics,
		}),
	}
	if flushInterval := time.Duration(cacheCfg.FlushInterval); flushInterval > 0 {
		flusher := service.NewPeriodicWorkerWithOpts(cache.FlushWorker(), flushInterval,
			log.NewPrefixedLogger(logger, "[flusher] "),
			service.PeriodicWorkerOpts{
				Name:         "cache_flusher",
				InitialDelay: flushInterval,
				ErrorBackoff: retry.NewExponentialBackoffPolicy(time.Second, retry.DefaultMaxAttempts),
			})
		units = append(units, service.NewWorkerUnitWithOpts(flusher, service.WorkerUnitOpts{
			GracefulStopTimeout: closeTimeout,
		}))
	}

	logger.Info("cachectl started",
		log.Int("capacity", cacheCfg.Capacity), log.String("backing", string(backingCfg.Type)))
	return service.New(logger, service.NewCompositeUnit(units...)).StartContext(ctx)
}

// metrics owns Prometheus metrics of the cache and its backing store.
type metrics struct {
	cache   *lrucache.PrometheusMetrics
	backing *backing.PrometheusMetrics
}

func newMetrics() *metrics {
	return &metrics{
		cache:   lrucache.NewPrometheusMetricsWithOpts(lrucache.PrometheusMetricsOpts{Namespace: "cachectl"}),
		backing: backing.NewPrometheusMetricsWithOpts(backing.PrometheusMetricsOpts{Namespace: "cachectl"}),
	}
}

func (m *metrics) MustRegisterMetrics() {
	m.cache.MustRegister()
	m.backing.MustRegister()
}

func (m *metrics) UnregisterMetrics() {
	m.cache.Unregister()
	m.backing.Unregister()
}
