// Package caldav serves feed events from a CalDAV calendar collection.
package caldav

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/emersion/go-webdav/caldav"

	"github.com/soltauer/icalfeed/internal/model"
	"github.com/soltauer/icalfeed/internal/source"
)

// Source implements source.EventSource over a CalDAV collection queried
// with a VEVENT time-range filter per request.
type Source struct {
	endpoint     string
	username     string
	password     string
	calendarPath string
	logger       *slog.Logger

	mu     sync.Mutex
	client *caldav.Client
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

// New creates a new CalDAV-backed event source. calendarPath is the path of
// the calendar collection to query.
func New(endpoint, username, password, calendarPath string, opts ...Option) *Source {
	s := &Source{
		endpoint:     endpoint,
		username:     username,
		password:     password,
		calendarPath: calendarPath,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// connect establishes the CalDAV client lazily and reuses it afterwards.
func (s *Source) connect() (*caldav.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			username: s.username,
			password: s.password,
		},
		Timeout: 30 * time.Second,
	}

	client, err := caldav.NewClient(httpClient, s.endpoint)
	if err != nil {
		return nil, &source.Error{
			Type:    source.ErrUnavailable,
			Message: "failed to connect to CalDAV server",
			Err:     err,
		}
	}

	s.client = client
	return client, nil
}

// basicAuthTransport adds Basic Auth to HTTP requests
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// Events implements source.EventSource.
func (s *Source) Events(ctx context.Context, start, end time.Time) ([]model.Event, error) {
	client, err := s.connect()
	if err != nil {
		return nil, err
	}

	query := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{
				{
					Name:  "VEVENT",
					Start: start,
					End:   end,
				},
			},
		},
	}

	objects, err := client.QueryCalendar(ctx, s.calendarPath, query)
	if err != nil {
		s.logger.Error("calendar query failed",
			"error", err,
			"calendar_path", s.calendarPath)
		return nil, &source.Error{
			Type:    source.ErrUnavailable,
			Message: "calendar query failed",
			Err:     err,
		}
	}

	var masters []source.Master
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		masters = append(masters, source.FromCalendar(obj.Data)...)
	}

	s.logger.Debug("fetched calendar objects",
		"calendar_path", s.calendarPath,
		"object_count", len(objects))

	return source.Expand(masters, start, end)
}
