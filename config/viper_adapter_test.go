/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestViperAdapter_GetStringFromSet(t *testing.T) {
	va := NewViperAdapter()
	va.Set("backing.type", "SQLite")

	got, err := va.GetStringFromSet("backing.type", []string{"file", "sqlite"}, true)
	require.NoError(t, err)
	require.Equal(t, "SQLite", got)

	_, err = va.GetStringFromSet("backing.type", []string{"file", "sqlite"}, false)
	require.ErrorContains(t, err, `backing.type: unknown value "SQLite"`)
}

func TestViperAdapter_GetDuration(t *testing.T) {
	va := NewViperAdapter()

	got, err := va.GetDuration("flushInterval")
	require.NoError(t, err)
	require.Zero(t, got)

	va.Set("flushInterval", "1m30s")
	got, err = va.GetDuration("flushInterval")
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, got)

	va.Set("flushInterval", "soon")
	_, err = va.GetDuration("flushInterval")
	require.ErrorContains(t, err, "flushInterval")
}

func TestViperAdapter_GetByteSize(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		want    ByteSize
		wantErr bool
	}{
		{name: "nil", value: nil, want: 0},
		{name: "int", value: 1024, want: 1024},
		{name: "uint64", value: uint64(2048), want: 2048},
		{name: "float", value: 4096.0, want: 4096},
		{name: "human-readable", value: "64MB", want: 64 * 1024 * 1024},
		{name: "k8s suffix", value: "1Gi", want: 1024 * 1024 * 1024},
		{name: "negative", value: -1, wantErr: true},
		{name: "garbage", value: "lots", wantErr: true},
		{name: "unsupported type", value: []string{"1KB"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			va := NewViperAdapter()
			if tt.value != nil {
				va.Set("size", tt.value)
			}
			got, err := va.GetByteSize("size")
			if tt.wantErr {
				require.ErrorContains(t, err, "size")
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestViperAdapter_UnmarshalKeyWithTextHook(t *testing.T) {
	type retrySettings struct {
		MaxAttempts     int          `mapstructure:"maxAttempts"`
		InitialInterval TimeDuration `mapstructure:"initialInterval"`
		MaxValueSize    ByteSize     `mapstructure:"maxValueSize"`
	}
	va := NewViperAdapter()
	data := "retry:\n  maxAttempts: 3\n  initialInterval: 250ms\n  maxValueSize: 4KB\n"
	require.NoError(t, va.SetFromReader(bytes.NewBufferString(data), DataTypeYAML))

	var got retrySettings
	require.NoError(t, va.UnmarshalKey("retry", &got, WithTextUnmarshalerHook()))
	require.Equal(t, retrySettings{
		MaxAttempts:     3,
		InitialInterval: TimeDuration(250 * time.Millisecond),
		MaxValueSize:    4096,
	}, got)
}

func TestPrefixedDataProvider(t *testing.T) {
	va := NewViperAdapter()
	require.NoError(t, va.SetFromReader(bytes.NewBufferString("backing:\n  retry:\n    maxAttempts: 5\n"), DataTypeYAML))

	backingDp := withKeyPrefix(va, "backing")
	retryDp := withKeyPrefix(backingDp, "retry")
	require.Equal(t, &prefixedDataProvider{root: va, prefix: "backing.retry"}, retryDp)
	require.Same(t, va, withKeyPrefix(va, ""))

	retryDp.SetDefault("initialInterval", "100ms")
	require.Equal(t, "100ms", va.Get("backing.retry.initialInterval"))

	maxAttempts, err := retryDp.GetInt("maxAttempts")
	require.NoError(t, err)
	require.Equal(t, 5, maxAttempts)

	va.Set("backing.retry.enabled", "sometimes")
	_, err = retryDp.GetBool("enabled")
	require.ErrorContains(t, err, "backing.retry.enabled")

	require.EqualError(t, backingDp.WrapKeyErr("type", errTest), "backing.type: test error")
}
