// Package memory provides an in-process event source, mainly for embedding
// programs and tests.
package memory

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/soltauer/icalfeed/internal/model"
	"github.com/soltauer/icalfeed/internal/source"
)

// Store implements source.EventSource over events registered in memory.
// Recurring entries are expanded into concrete occurrences per request.
type Store struct {
	mu      sync.RWMutex
	masters []source.Master
	logger  *slog.Logger
}

// Option represents a configuration option for the Store
type Option func(*Store)

// WithLogger sets the logger for the store
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a new in-memory event source
func New(opts ...Option) *Store {
	s := &Store{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Add registers a single event.
func (s *Store) Add(ev model.Event) {
	s.AddMaster(source.Master{Event: ev})
}

// AddMaster registers an event together with its recurrence information.
func (s *Store) AddMaster(m source.Master) {
	s.mu.Lock()
	s.masters = append(s.masters, m)
	s.mu.Unlock()
}

// SetEvents replaces all registered entries.
func (s *Store) SetEvents(masters []source.Master) {
	s.mu.Lock()
	s.masters = append([]source.Master(nil), masters...)
	s.mu.Unlock()
}

// Events implements source.EventSource.
func (s *Store) Events(ctx context.Context, start, end time.Time) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	masters := s.masters
	s.mu.RUnlock()

	events, err := source.Expand(masters, start, end)
	if err != nil {
		s.logger.Error("failed to expand events",
			"error", err)
		return nil, err
	}

	s.logger.Debug("expanded events",
		"count", len(events),
		"window_start", start,
		"window_end", end)

	return events, nil
}
