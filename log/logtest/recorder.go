/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package logtest provides a logger that keeps entries in memory for assertions in tests.
package logtest

import (
	"sync"

	"github.com/ssgreg/logf"

	"github.com/acronis/go-cachekit/log"
)

// RecordedEntry is a logged entry with all its fields, including the ones added by With.
type RecordedEntry struct {
	Level  log.Level
	Text   string
	Fields []log.Field
}

// FindField returns the first field with the key.
func (re *RecordedEntry) FindField(key string) (*log.Field, bool) {
	for i := range re.Fields {
		if re.Fields[i].Key == key {
			return &re.Fields[i], true
		}
	}
	return nil, false
}

// entryLog is shared by a Recorder and all loggers derived from it with With.
type entryLog struct {
	mu      sync.RWMutex
	entries []RecordedEntry
}

func (el *entryLog) WriteEntry(e logf.Entry) {
	fields := make([]log.Field, 0, len(e.DerivedFields)+len(e.Fields))
	fields = append(fields, e.DerivedFields...)
	fields = append(fields, e.Fields...)

	el.mu.Lock()
	defer el.mu.Unlock()
	el.entries = append(el.entries, RecordedEntry{Level: fromLogfLevel(e.Level), Text: e.Text, Fields: fields})
}

// Recorder is a log.FieldLogger that records entries at all levels.
type Recorder struct {
	logger *log.LogfAdapter
	sink   *entryLog
}

var _ log.FieldLogger = (*Recorder)(nil)

// NewRecorder returns an initialized Recorder.
func NewRecorder() *Recorder {
	el := &entryLog{}
	return &Recorder{logger: &log.LogfAdapter{Logger: logf.NewLogger(logf.LevelDebug, el)}, sink: el}
}

// With returns a logger with additional fields that records to the same Recorder.
func (r *Recorder) With(fs ...log.Field) log.FieldLogger {
	return &Recorder{logger: r.logger.With(fs...).(*log.LogfAdapter), sink: r.sink}
}

// Debug implements log.FieldLogger.
func (r *Recorder) Debug(text string, fs ...log.Field) { r.logger.Debug(text, fs...) }

// Info implements log.FieldLogger.
func (r *Recorder) Info(text string, fs ...log.Field) { r.logger.Info(text, fs...) }

// Warn implements log.FieldLogger.
func (r *Recorder) Warn(text string, fs ...log.Field) { r.logger.Warn(text, fs...) }

// Error implements log.FieldLogger.
func (r *Recorder) Error(text string, fs ...log.Field) { r.logger.Error(text, fs...) }

// Entries returns a copy of all recorded entries.
func (r *Recorder) Entries() []RecordedEntry {
	r.sink.mu.RLock()
	defer r.sink.mu.RUnlock()
	return append([]RecordedEntry(nil), r.sink.entries...)
}

// FindEntry returns the first entry with the message.
func (r *Recorder) FindEntry(msg string) (RecordedEntry, bool) {
	if found := r.FindAllEntries(msg); len(found) != 0 {
		return found[0], true
	}
	return RecordedEntry{}, false
}

// FindAllEntries returns all entries with the message.
func (r *Recorder) FindAllEntries(msg string) []RecordedEntry {
	return r.FindAllEntriesByFilter(func(entry RecordedEntry) bool {
		return entry.Text == msg
	})
}

// FindAllEntriesByFilter returns all entries accepted by filter.
func (r *Recorder) FindAllEntriesByFilter(filter func(entry RecordedEntry) bool) []RecordedEntry {
	var found []RecordedEntry
	for _, entry := range r.Entries() {
		if filter(entry) {
			found = append(found, entry)
		}
	}
	return found
}

// Reset drops all recorded entries.
func (r *Recorder) Reset() {
	r.sink.mu.Lock()
	r.sink.entries = nil
	r.sink.mu.Unlock()
}

func fromLogfLevel(level logf.Level) log.Level {
	switch level {
	case logf.LevelError:
		return log.LevelError
	case logf.LevelWarn:
		return log.LevelWarn
	case logf.LevelDebug:
		return log.LevelDebug
	default:
		return log.LevelInfo
	}
}
