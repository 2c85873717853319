/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backing

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-cachekit/testutil"
)

func TestInstrumentedStore(t *testing.T) {
	ctx := context.Background()
	metrics := NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{Namespace: "cachekit"})
	flaky := &flakyStore{MemoryStore: NewMemoryStore(), failures: 1, err: errFlaky}
	is := NewInstrumentedStore(flaky, metrics)

	require.ErrorIs(t, is.Write(ctx, []byte("a"), []byte("1")), errFlaky)
	require.NoError(t, is.Write(ctx, []byte("a"), []byte("1")))
	_, err := is.Read(ctx, []byte("a"))
	require.NoError(t, err)
	_, err = is.Read(ctx, []byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, is.Delete(ctx, []byte("a")))

	testutil.RequireSamplesCountInHistogram(t, metrics.OpDuration.WithLabelValues(OpWrite).(prometheus.Histogram), 2)
	testutil.RequireSamplesCountInHistogram(t, metrics.OpDuration.WithLabelValues(OpRead).(prometheus.Histogram), 2)
	testutil.RequireSamplesCountInHistogram(t, metrics.OpDuration.WithLabelValues(OpDelete).(prometheus.Histogram), 1)

	testutil.RequireSamplesCountInCounter(t, metrics.ErrorsTotal.WithLabelValues(OpWrite), 1)
	require.Equal(t, 0, int(promtestutil.ToFloat64(metrics.ErrorsTotal.WithLabelValues(OpRead))), "missing records are not errors")

	require.NoError(t, is.Close())
}
