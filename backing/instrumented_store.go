/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backing

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-cachekit/internal/libinfo"
)

// Operation label values.
const (
	OpRead   = "read"
	OpWrite  = "write"
	OpDelete = "delete"
)

const opLabel = "op"

// DefaultDurationBuckets is the default set of buckets (in seconds) for the operation duration histogram.
var DefaultDurationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// DurationBuckets is a list of buckets for the operation duration histogram.
	// DefaultDurationBuckets is used if empty.
	DurationBuckets []float64

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics represents Prometheus metrics of backing store operations.
type PrometheusMetrics struct {
	OpDuration  *prometheus.HistogramVec
	ErrorsTotal *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = DefaultDurationBuckets
	}
	constLabels := libinfo.AddPrometheusLibVersionLabel(opts.ConstLabels)
	return &PrometheusMetrics{
		OpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "backing_store_operation_duration_seconds",
			Help:        "A histogram of the backing store operation durations.",
			Buckets:     buckets,
			ConstLabels: constLabels,
		}, []string{opLabel}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "backing_store_errors_total",
			Help:        "Number of failed backing store operations. Missing records are not counted.",
			ConstLabels: constLabels,
		}, []string{opLabel}),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.OpDuration, pm.ErrorsTotal)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.OpDuration)
	prometheus.Unregister(pm.ErrorsTotal)
}

// InstrumentedStore wraps a Store and records durations and failures of its operations.
type InstrumentedStore struct {
	store   Store
	metrics *PrometheusMetrics
}

// NewInstrumentedStore creates a new InstrumentedStore.
func NewInstrumentedStore(store Store, metrics *PrometheusMetrics) *InstrumentedStore {
	return &InstrumentedStore{store: store, metrics: metrics}
}

// Read implements Store.
func (is *InstrumentedStore) Read(ctx context.Context, key []byte) ([]byte, error) {
	startTime := time.Now()
	value, err := is.store.Read(ctx, key)
	is.observe(OpRead, startTime, err)
	return value, err
}

// Write implements Store.
func (is *InstrumentedStore) Write(ctx context.Context, key []byte, value []byte) error {
	startTime := time.Now()
	err := is.store.Write(ctx, key, value)
	is.observe(OpWrite, startTime, err)
	return err
}

// Delete implements Store.
func (is *InstrumentedStore) Delete(ctx context.Context, key []byte) error {
	startTime := time.Now()
	err := is.store.Delete(ctx, key)
	is.observe(OpDelete, startTime, err)
	return err
}

// Close implements Store.
func (is *InstrumentedStore) Close() error {
	return is.store.Close()
}

func (is *InstrumentedStore) observe(op string, startTime time.Time, err error) {
	is.metrics.OpDuration.WithLabelValues(op).Observe(time.Since(startTime).Seconds())
	if err != nil && !errors.Is(err, ErrNotFound) {
		is.metrics.ErrorsTotal.WithLabelValues(op).Inc()
	}
}
