/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var errTest = errors.New("test error")

func TestByteSize_Unmarshal(t *testing.T) {
	tests := []struct {
		name     string
		jsonData string
		yamlData string
		want     ByteSize
		wantErr  bool
	}{
		{name: "integer", jsonData: `1024`, yamlData: "size: 1024", want: 1024},
		{name: "human-readable", jsonData: `"10MB"`, yamlData: "size: 10MB", want: 10 * 1024 * 1024},
		{name: "k8s suffix", jsonData: `"2Ki"`, yamlData: "size: 2Ki", want: 2048},
		{name: "invalid", jsonData: `"ten"`, yamlData: "size: ten", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fromJSON ByteSize
			err := json.Unmarshal([]byte(tt.jsonData), &fromJSON)
			var fromYAML struct{ Size ByteSize }
			yamlErr := yaml.Unmarshal([]byte(tt.yamlData), &fromYAML)
			if tt.wantErr {
				require.Error(t, err)
				require.Error(t, yamlErr)
				return
			}
			require.NoError(t, err)
			require.NoError(t, yamlErr)
			require.Equal(t, tt.want, fromJSON)
			require.Equal(t, tt.want, fromYAML.Size)
		})
	}
}

func TestByteSize_Marshal(t *testing.T) {
	data, err := json.Marshal(ByteSize(64 * 1024 * 1024))
	require.NoError(t, err)
	require.Equal(t, `"64M"`, string(data))
}

func TestTimeDuration_Unmarshal(t *testing.T) {
	var d TimeDuration
	require.NoError(t, json.Unmarshal([]byte(`"1h30m"`), &d))
	require.Equal(t, TimeDuration(90*time.Minute), d)

	require.NoError(t, json.Unmarshal([]byte(`1000`), &d))
	require.Equal(t, TimeDuration(time.Microsecond), d)

	require.Error(t, json.Unmarshal([]byte(`-5`), &d))

	var cfg struct{ Interval TimeDuration }
	require.NoError(t, yaml.Unmarshal([]byte("interval: 15s"), &cfg))
	require.Equal(t, TimeDuration(15*time.Second), cfg.Interval)
	require.Equal(t, "15s", cfg.Interval.String())
}
