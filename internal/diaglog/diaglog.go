// Package diaglog keeps a bounded, queryable history of structured
// diagnostic events for the capture agent. Retention is a 1000-entry
// sliding window; appends never block or fail.
package diaglog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jsukup/facial-sentiment-analysis-sub002/internal/ring"
)

// Level classifies a diagnostic entry.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// DefaultCapacity is the retained-entry cap.
const DefaultCapacity = 1000

// errorKey and errorTypeKey are reserved context keys holding a captured
// error's text and concrete type.
const (
	errorKey     = "error"
	errorTypeKey = "errorType"
)

// Entry is one retained diagnostic event.
type Entry struct {
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// Store is a process-wide bounded history of diagnostic entries. All methods
// are safe for uncoordinated concurrent use.
type Store struct {
	mu     sync.Mutex
	buf    *ring.Buffer[Entry]
	mirror *slog.Logger
	now    func() time.Time
}

// Option customises Store construction.
type Option func(*Store)

// WithMirror mirrors every append to the given logger; used in development
// runs. A nil mirror suppresses console output while keeping retention.
func WithMirror(l *slog.Logger) Option {
	return func(s *Store) { s.mirror = l }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCapacity overrides the retained-entry cap.
func WithCapacity(capacity int) Option {
	return func(s *Store) {
		if capacity > 0 {
			s.buf = ring.New[Entry](capacity)
		}
	}
}

// NewStore constructs a Store with the default 1000-entry window.
func NewStore(opts ...Option) *Store {
	s := &Store{
		buf: ring.New[Entry](DefaultCapacity),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Info appends an informational entry.
func (s *Store) Info(message string, context map[string]any) {
	s.append(LevelInfo, message, context)
}

// Warn appends a warning entry.
func (s *Store) Warn(message string, context map[string]any) {
	s.append(LevelWarn, message, context)
}

// Error appends an error entry, folding err's text and concrete type into
// the context under the reserved "error" and "errorType" keys when present.
func (s *Store) Error(message string, err error, context map[string]any) {
	if err != nil {
		merged := make(map[string]any, len(context)+2)
		for k, v := range context {
			merged[k] = v
		}
		merged[errorKey] = err.Error()
		merged[errorTypeKey] = fmt.Sprintf("%T", err)
		context = merged
	}
	s.append(LevelError, message, context)
}

func (s *Store) append(level Level, message string, context map[string]any) {
	entry := Entry{
		Level:     level,
		Message:   message,
		Context:   context,
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
	}
	s.mu.Lock()
	s.buf.Append(entry)
	s.mu.Unlock()

	if s.mirror == nil {
		return
	}
	attrs := make([]any, 0, len(context)*2)
	for k, v := range context {
		attrs = append(attrs, k, v)
	}
	switch level {
	case LevelWarn:
		s.mirror.Warn(message, attrs...)
	case LevelError:
		s.mirror.Error(message, attrs...)
	default:
		s.mirror.Info(message, attrs...)
	}
}

// Recent returns the most recent entries, oldest first. An empty level keeps
// all levels; a non-positive limit keeps everything retained.
func (s *Store) Recent(level Level, limit int) []Entry {
	s.mu.Lock()
	items := s.buf.Items()
	s.mu.Unlock()

	if level != "" {
		filtered := items[:0:0]
		for _, e := range items {
			if e.Level == level {
				filtered = append(filtered, e)
			}
		}
		items = filtered
	}
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	return items
}

// Len reports the number of retained entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}

// Clear empties the retained history.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Reset()
}

// ExportJSON serialises the full retained history in chronological order.
func (s *Store) ExportJSON() ([]byte, error) {
	s.mu.Lock()
	items := s.buf.Items()
	s.mu.Unlock()
	return json.Marshal(items)
}
