/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-cachekit/internal/libinfo"
)

// MetricsCollector represents a collector of metrics to analyze how (effectively or not) cache is used.
type MetricsCollector interface {
	// SetAmount sets the total number of entries in the cache.
	SetAmount(int)

	// IncHits increments the total number of successfully found keys in the cache.
	IncHits()

	// IncMisses increments the total number of not found keys in the cache.
	IncMisses()

	// AddEvictions increments the total number of evicted entries.
	AddEvictions(int)

	// IncWriteBacks increments the total number of entries successfully written to the backing store.
	IncWriteBacks()

	// IncWriteBackFailures increments the total number of failed writes to the backing store.
	IncWriteBackFailures()
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels

	// CurriedLabelNames is a list of label names that will be curried with the provided labels.
	// See PrometheusMetrics.MustCurryWith method for more details.
	// Keep in mind that if this list is not empty,
	// PrometheusMetrics.MustCurryWith method must be called further with the same labels.
	// Otherwise, the collector will panic.
	CurriedLabelNames []string
}

// PrometheusMetrics represents a Prometheus metrics for the cache.
type PrometheusMetrics struct {
	EntriesAmount          *prometheus.GaugeVec
	HitsTotal              *prometheus.CounterVec
	MissesTotal            *prometheus.CounterVec
	EvictionsTotal         *prometheus.CounterVec
	WriteBacksTotal        *prometheus.CounterVec
	WriteBackFailuresTotal *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	constLabels := libinfo.AddPrometheusLibVersionLabel(opts.ConstLabels)
	newCounterVec := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		}, opts.CurriedLabelNames)
	}
	return &PrometheusMetrics{
		EntriesAmount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "cache_entries_amount",
			Help:        "Total number of entries in the cache.",
			ConstLabels: constLabels,
		}, opts.CurriedLabelNames),
		HitsTotal:              newCounterVec("cache_hits_total", "Number of successfully found keys in the cache."),
		MissesTotal:            newCounterVec("cache_misses_total", "Number of not found keys in cache."),
		EvictionsTotal:         newCounterVec("cache_evictions_total", "Number of evicted entries."),
		WriteBacksTotal:        newCounterVec("cache_write_backs_total", "Number of entries written to the backing store."),
		WriteBackFailuresTotal: newCounterVec("cache_write_back_failures_total", "Number of failed writes to the backing store."),
	}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		EntriesAmount:          pm.EntriesAmount.MustCurryWith(labels),
		HitsTotal:              pm.HitsTotal.MustCurryWith(labels),
		MissesTotal:            pm.MissesTotal.MustCurryWith(labels),
		EvictionsTotal:         pm.EvictionsTotal.MustCurryWith(labels),
		WriteBacksTotal:        pm.WriteBacksTotal.MustCurryWith(labels),
		WriteBackFailuresTotal: pm.WriteBackFailuresTotal.MustCurryWith(labels),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.collectors()...)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	for _, c := range pm.collectors() {
		prometheus.Unregister(c)
	}
}

func (pm *PrometheusMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		pm.EntriesAmount,
		pm.HitsTotal,
		pm.MissesTotal,
		pm.EvictionsTotal,
		pm.WriteBacksTotal,
		pm.WriteBackFailuresTotal,
	}
}

// SetAmount sets the total number of entries in the cache.
func (pm *PrometheusMetrics) SetAmount(amount int) {
	pm.EntriesAmount.With(nil).Set(float64(amount))
}

// IncHits increments the total number of successfully found keys in the cache.
func (pm *PrometheusMetrics) IncHits() {
	pm.HitsTotal.With(nil).Inc()
}

// IncMisses increments the total number of not found keys in the cache.
func (pm *PrometheusMetrics) IncMisses() {
	pm.MissesTotal.With(nil).Inc()
}

// AddEvictions increments the total number of evicted entries.
func (pm *PrometheusMetrics) AddEvictions(n int) {
	pm.EvictionsTotal.With(nil).Add(float64(n))
}

// IncWriteBacks increments the total number of entries successfully written to the backing store.
func (pm *PrometheusMetrics) IncWriteBacks() {
	pm.WriteBacksTotal.With(nil).Inc()
}

// IncWriteBackFailures increments the total number of failed writes to the backing store.
func (pm *PrometheusMetrics) IncWriteBackFailures() {
	pm.WriteBackFailuresTotal.With(nil).Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) SetAmount(int)         {}
func (disabledMetrics) IncHits()              {}
func (disabledMetrics) IncMisses()            {}
func (disabledMetrics) AddEvictions(int)      {}
func (disabledMetrics) IncWriteBacks()        {}
func (disabledMetrics) IncWriteBackFailures() {}
