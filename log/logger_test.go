/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-cachekit/config"
)

func TestLoggerToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache-{{pid}}.log")
	cfg := NewDefaultConfig()
	cfg.Format = FormatJSON
	cfg.Output = OutputFile
	cfg.File.Path = path

	logger, closeFn := NewLogger(cfg)
	logger.Error("write-back failed", Error(errors.New("disk full")), String("key", "user:1"))
	logger.Debug("not written")
	closeFn()

	data, err := os.ReadFile(resolvePlaceholders(path))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "error", entry["level"])
	require.Equal(t, "write-back failed", entry["msg"])
	require.Equal(t, "disk full", entry["error"])
	require.Equal(t, "user:1", entry["key"])
}

func TestPrefixedLogger(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	cfg := NewDefaultConfig()
	cfg.Level = LevelDebug
	cfg.Format = FormatJSON
	logger, closeFn := newLoggerWithWriter(cfg, w)

	prefixed := NewPrefixedLogger(logger, "[flusher] ")
	prefixed.Info("flush finished", Int("written", 3))
	prefixed.With(Key("user:1")).Warn("slow flush")
	closeFn()
	require.NoError(t, w.Flush())

	out := buf.String()
	require.Contains(t, out, `"msg":"[flusher] flush finished"`)
	require.Contains(t, out, `"written":3`)
	require.Contains(t, out, `"msg":"[flusher] slow flush"`)
	require.Contains(t, out, `"key":"user:1"`)
}

func TestDisabledLevels(t *testing.T) {
	var buf bytes.Buffer
	cfg := NewDefaultConfig()
	cfg.Level = LevelWarn
	cfg.Format = FormatJSON
	logger, closeFn := newLoggerWithWriter(cfg, &buf)
	logger.Info("entry evicted")
	logger.Warn("read-through from backing store failed", DurationIn(1500*time.Millisecond, time.Millisecond))
	closeFn()

	require.NotContains(t, buf.String(), "entry evicted")
	require.Contains(t, buf.String(), `"duration":1500`)
}

func TestConfig_Set(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults",
			data: `{}`,
			check: func(t *testing.T, cfg *Config) {
				require.Equal(t, NewDefaultConfig(), cfg)
			},
		},
		{
			name: "file output",
			data: `{"log":{"level":"DEBUG","format":"json","output":"file",` +
				`"file":{"path":"/tmp/cache.log","maxSize":"10M","maxBackups":3,"compress":true}}}`,
			check: func(t *testing.T, cfg *Config) {
				require.Equal(t, LevelDebug, cfg.Level)
				require.Equal(t, FormatJSON, cfg.Format)
				require.Equal(t, OutputFile, cfg.Output)
				require.Equal(t, FileConfig{
					Path: "/tmp/cache.log", MaxSize: config.ByteSize(10 * 1024 * 1024), MaxBackups: 3, Compress: true,
				}, cfg.File)
			},
		},
		{
			name:    "unknown level",
			data:    `{"log":{"level":"trace"}}`,
			wantErr: "log.level",
		},
		{
			name:    "file output without path",
			data:    `{"log":{"output":"file"}}`,
			wantErr: "log.file.path",
		},
		{
			name:    "too small file size",
			data:    `{"log":{"file":{"maxSize":"1K"}}}`,
			wantErr: "log.file.maxSize",
		},
		{
			name:    "negative backups",
			data:    `{"log":{"file":{"maxBackups":-1}}}`,
			wantErr: "log.file.maxBackups",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(
				bytes.NewBufferString(tt.data), config.DataTypeJSON, cfg)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}
