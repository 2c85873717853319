/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package log provides structured logging for the cache and its backing stores.
// It wraps github.com/ssgreg/logf and writes JSON or text to stdout, stderr or a rotated file.
package log

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ssgreg/logf"
	"github.com/ssgreg/logftext"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Field hold data of a specific field.
type Field = logf.Field

// CloseFunc flushes buffered entries and stops the logger.
type CloseFunc logf.ChannelWriterCloseFunc

// Field constructors used across the module.
var (
	Error    = logf.Error
	String   = logf.String
	Bytes    = logf.Bytes
	Int      = logf.Int
	Bool     = logf.Bool
	Duration = logf.Duration
)

// Key returns a field holding a cache key.
func Key(key interface{}) Field {
	return logf.Any("key", key)
}

// DurationIn returns a "duration" field with the duration expressed in whole units.
func DurationIn(val, unit time.Duration) Field {
	return logf.Int64("duration", val.Nanoseconds()/unit.Nanoseconds())
}

// FieldLogger writes structured log entries.
type FieldLogger interface {
	With(...Field) FieldLogger
	Debug(string, ...Field)
	Info(string, ...Field)
	Warn(string, ...Field)
	Error(string, ...Field)
}

// LogfAdapter adapts logf.Logger to FieldLogger interface.
type LogfAdapter struct {
	Logger *logf.Logger
}

// NewDisabledLogger returns a logger that drops everything.
func NewDisabledLogger() FieldLogger {
	return &LogfAdapter{logf.NewDisabledLogger()}
}

// NewLogger creates a logger writing to the output from cfg.
// The returned CloseFunc must be called before exit, otherwise buffered entries may be lost.
func NewLogger(cfg *Config) (FieldLogger, CloseFunc) {
	var w io.Writer
	switch cfg.Output {
	case OutputFile:
		w = &lumberjack.Logger{
			Filename:   resolvePlaceholders(cfg.File.Path),
			MaxSize:    int(cfg.File.MaxSize / (1024 * 1024)),
			MaxBackups: cfg.File.MaxBackups,
			Compress:   cfg.File.Compress,
		}
	case OutputStdout:
		w = os.Stdout
	default:
		w = os.Stderr
	}
	return newLoggerWithWriter(cfg, w)
}

func newLoggerWithWriter(cfg *Config, w io.Writer) (FieldLogger, CloseFunc) {
	var appender logf.Appender
	if cfg.Format == FormatJSON {
		appender = logf.NewWriteAppender(w, logf.NewJSONEncoder(logf.JSONEncoderConfig{
			EncodeTime:   logf.RFC3339NanoTimeEncoder,
			FieldKeyTime: "time",
		}))
	} else {
		// Colors only make sense on a terminal.
		noColor := cfg.Output == OutputFile
		appender = logftext.NewAppender(w, logftext.EncoderConfig{
			NoColor:    &noColor,
			EncodeTime: logf.RFC3339NanoTimeEncoder,
		})
	}

	channel, closeFunc := logf.NewChannelWriter(logf.ChannelWriterConfig{
		Appender:          appender,
		EnableSyncOnError: true,
	})
	logger := logf.NewLogger(toLogfLevel(cfg.Level), channel).With(logf.Int("pid", os.Getpid()))
	if cfg.AddCaller {
		// skip the adapter's own frame
		logger = logger.WithCaller().WithCallerSkip(1)
	}
	return &LogfAdapter{logger}, CloseFunc(closeFunc)
}

// With returns a new logger with the given additional fields.
func (l *LogfAdapter) With(fs ...Field) FieldLogger {
	return &LogfAdapter{l.Logger.With(fs...)}
}

// Debug logs message at "debug" level.
func (l *LogfAdapter) Debug(s string, fields ...Field) {
	l.Logger.Debug(s, fields...)
}

// Info logs message at "info" level.
func (l *LogfAdapter) Info(s string, fields ...Field) {
	l.Logger.Info(s, fields...)
}

// Warn logs message at "warn" level.
func (l *LogfAdapter) Warn(s string, fields ...Field) {
	l.Logger.Warn(s, fields...)
}

// Error logs message at "error" level.
func (l *LogfAdapter) Error(s string, fields ...Field) {
	l.Logger.Error(s, fields...)
}

func toLogfLevel(level Level) logf.Level {
	switch level {
	case LevelError:
		return logf.LevelError
	case LevelWarn:
		return logf.LevelWarn
	case LevelDebug:
		return logf.LevelDebug
	default:
		return logf.LevelInfo
	}
}

func resolvePlaceholders(filePath string) string {
	return strings.ReplaceAll(filePath, "{{pid}}", strconv.Itoa(os.Getpid()))
}
