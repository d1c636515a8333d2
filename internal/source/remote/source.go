// Package remote subscribes to an ICS URL and serves its events from a
// periodically refreshed in-memory snapshot.
package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/emersion/go-ical"
	"github.com/robfig/cron/v3"

	"github.com/soltauer/icalfeed/internal/model"
	"github.com/soltauer/icalfeed/internal/source"
)

const defaultSchedule = "*/15 * * * *"

// Source implements source.EventSource over a remote ICS subscription.
// The snapshot is swapped atomically on refresh, so concurrent feed
// requests always read a complete document's worth of events.
type Source struct {
	url      string
	client   *http.Client
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.RWMutex
	masters []source.Master
	fetched bool
}

// Option represents a configuration option for the Source
type Option func(*Source)

// WithLogger sets the logger for the source
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHTTPClient sets the HTTP client used to fetch the subscription
func WithHTTPClient(client *http.Client) Option {
	return func(s *Source) {
		if client != nil {
			s.client = client
		}
	}
}

// WithRefreshSchedule sets the cron schedule for periodic refresh
func WithRefreshSchedule(schedule string) Option {
	return func(s *Source) {
		if schedule != "" {
			s.schedule = schedule
		}
	}
}

// New creates a new ICS subscription source for the given URL.
func New(url string, opts ...Option) *Source {
	s := &Source{
		url:      url,
		client:   &http.Client{Timeout: 15 * time.Second},
		schedule: defaultSchedule,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start begins the periodic refresh and performs an initial fetch. A failed
// initial fetch is logged but does not fail Start; the snapshot fills on a
// later tick.
func (s *Source) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, s.scheduledRefresh); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("initial subscription fetch failed",
			"error", err,
			"url", s.url)
	}

	return nil
}

// Stop halts the periodic refresh.
func (s *Source) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Source) scheduledRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := s.Refresh(ctx); err != nil {
		s.logger.Error("scheduled refresh failed",
			"error", err,
			"url", s.url)
	}
}

// Refresh fetches and parses the subscription, swapping the snapshot on
// success. A failed refresh keeps the previous snapshot.
func (s *Source) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return &source.Error{
			Type:    source.ErrInvalidInput,
			Message: fmt.Sprintf("invalid subscription url %q", s.url),
			Err:     err,
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return &source.Error{
			Type:    source.ErrUnavailable,
			Message: "failed to fetch subscription",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &source.Error{
			Type:    source.ErrUnavailable,
			Message: fmt.Sprintf("subscription returned status %d", resp.StatusCode),
		}
	}

	cal, err := ical.NewDecoder(resp.Body).Decode()
	if err != nil {
		return &source.Error{
			Type:    source.ErrInvalidInput,
			Message: "failed to parse subscription",
			Err:     err,
		}
	}

	masters := source.FromCalendar(cal)

	s.mu.Lock()
	s.masters = masters
	s.fetched = true
	s.mu.Unlock()

	s.logger.Info("refreshed subscription",
		"url", s.url,
		"event_count", len(masters))

	return nil
}

// Events implements source.EventSource, expanding the latest snapshot into
// the requested window. The first call fetches eagerly if Start was never
// invoked.
func (s *Source) Events(ctx context.Context, start, end time.Time) ([]model.Event, error) {
	s.mu.RLock()
	masters, fetched := s.masters, s.fetched
	s.mu.RUnlock()

	if !fetched {
		if err := s.Refresh(ctx); err != nil {
			return nil, err
		}
		s.mu.RLock()
		masters = s.masters
		s.mu.RUnlock()
	}

	return source.Expand(masters, start, end)
}
