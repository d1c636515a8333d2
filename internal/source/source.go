// Package source defines where feed events come from. Implementations own
// all fetching, caching and recurrence expansion; the feed pipeline calls
// Events once per request and never retains or mutates the result.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/soltauer/icalfeed/internal/model"
)

// ErrorType represents the type of source error
type ErrorType string

const (
	ErrUnavailable  ErrorType = "unavailable"
	ErrInvalidInput ErrorType = "invalid_input"
)

// Error represents a source-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// EventSource supplies the events of one calendar entity within a bounded
// time window. Occurrences of recurring events arrive already expanded.
type EventSource interface {
	Events(ctx context.Context, start, end time.Time) ([]model.Event, error)
}

// Window is the bounded lookback/lookahead range a feed request covers.
type Window struct {
	Lookback  time.Duration
	Lookahead time.Duration
}

// DefaultWindow covers 4 weeks of history and 52 weeks of future events.
var DefaultWindow = Window{
	Lookback:  4 * 7 * 24 * time.Hour,
	Lookahead: 52 * 7 * 24 * time.Hour,
}

// Bounds resolves the window against a reference time.
func (w Window) Bounds(now time.Time) (start, end time.Time) {
	return now.Add(-w.Lookback), now.Add(w.Lookahead)
}
