/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package libinfo

import (
	"runtime/debug"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestResolveVersion(t *testing.T) {
	tests := []struct {
		name      string
		buildInfo *debug.BuildInfo
		want      string
	}{
		{
			name:      "nil build info",
			buildInfo: nil,
			want:      unknownVersion,
		},
		{
			name: "library is a dependency",
			buildInfo: &debug.BuildInfo{
				Main: debug.Module{Path: "example.com/service", Version: "v0.1.0"},
				Deps: []*debug.Module{{Path: moduleName, Version: "v1.4.0"}},
			},
			want: "v1.4.0",
		},
		{
			name: "library is a major version dependency",
			buildInfo: &debug.BuildInfo{
				Deps: []*debug.Module{{Path: moduleName + "/v2", Version: "v2.1.0"}},
			},
			want: "v2.1.0",
		},
		{
			name: "binary is built from the library module",
			buildInfo: &debug.BuildInfo{
				Main: debug.Module{Path: moduleName, Version: "v1.5.2"},
			},
			want: "v1.5.2",
		},
		{
			name: "development build of the library module",
			buildInfo: &debug.BuildInfo{
				Main: debug.Module{Path: moduleName, Version: "(devel)"},
			},
			want: unknownVersion,
		},
		{
			name: "similar module path is ignored",
			buildInfo: &debug.BuildInfo{
				Deps: []*debug.Module{{Path: moduleName + "-extra", Version: "v1.0.0"}},
			},
			want: unknownVersion,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, resolveVersion(tt.buildInfo))
		})
	}
}

func TestAddPrometheusLibVersionLabel(t *testing.T) {
	labels := prometheus.Labels{"cache": "users"}
	got := AddPrometheusLibVersionLabel(labels)
	require.Equal(t, "users", got["cache"])
	require.Equal(t, GetLibVersion(), got[PrometheusLibVersionLabel])
	require.NotContains(t, labels, PrometheusLibVersionLabel, "source labels must not be modified")
}
