// Package eventlog implements the operator-facing system log sink.
//
// Entries are persisted under a chronologically sorted key so the admin UI
// can page through them newest-first, and every entry is mirrored to the
// process logger so the stored stream and the console stay in sync.
package eventlog

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"webwatch/internal/storage"
)

// Sink appends system log entries and answers filtered queries.
type Sink struct {
	logs    *storage.SystemLogRepo
	maxScan int
}

// New creates a sink over the system log repository. maxScan bounds the
// newest-first window a query will inspect.
func New(logs *storage.SystemLogRepo, maxScan int) *Sink {
	return &Sink{logs: logs, maxScan: maxScan}
}

// Option augments an entry with optional context.
type Option func(*storage.SystemLog)

// WithMonitor links the entry to a monitor.
func WithMonitor(id, name string) Option {
	return func(e *storage.SystemLog) {
		e.MonitorID = id
		e.MonitorName = name
	}
}

// WithMetadata attaches structured context to the entry.
func WithMetadata(meta map[string]any) Option {
	return func(e *storage.SystemLog) {
		e.Metadata = meta
	}
}

// Debug records a DEBUG entry.
func (s *Sink) Debug(message string, opts ...Option) { s.append(storage.LevelDebug, message, opts) }

// Info records an INFO entry.
func (s *Sink) Info(message string, opts ...Option) { s.append(storage.LevelInfo, message, opts) }

// Warn records a WARN entry.
func (s *Sink) Warn(message string, opts ...Option) { s.append(storage.LevelWarn, message, opts) }

// Error records an ERROR entry.
func (s *Sink) Error(message string, opts ...Option) { s.append(storage.LevelError, message, opts) }

// append persists the entry and mirrors it to the process logger. Writes
// are fire-and-forget: a storage failure is logged and swallowed so that
// logging never fails the caller.
func (s *Sink) append(level, message string, opts []Option) {
	entry := &storage.SystemLog{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		Timestamp: storage.Now(),
	}
	for _, opt := range opts {
		opt(entry)
	}

	s.mirror(entry)

	if err := s.logs.Append(entry); err != nil {
		log.Warn().Err(err).Str("level", level).Msg("Failed to persist system log entry")
	}
}

// mirror writes the entry to zerolog at the matching level.
func (s *Sink) mirror(entry *storage.SystemLog) {
	var ev *zerolog.Event
	switch entry.Level {
	case storage.LevelDebug:
		ev = log.Debug()
	case storage.LevelWarn:
		ev = log.Warn()
	case storage.LevelError:
		ev = log.Error()
	default:
		ev = log.Info()
	}
	if entry.MonitorID != "" {
		ev = ev.Str("monitor_id", entry.MonitorID).Str("monitor_name", entry.MonitorName)
	}
	ev.Msg(entry.Message)
}

// List returns a filtered page of entries, newest first, plus the match
// count inside the scan window.
func (s *Sink) List(filter storage.SystemLogFilter) ([]*storage.SystemLog, int, error) {
	if filter.MaxScan <= 0 {
		filter.MaxScan = s.maxScan
	}
	return s.logs.List(filter)
}

// DeleteOlderThan removes entries recorded before cutoff.
func (s *Sink) DeleteOlderThan(cutoff time.Time) (int, error) {
	return s.logs.DeleteOlderThan(cutoff)
}
