// Package server exposes configured calendars as iCalendar feeds over HTTP.
package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/soltauer/icalfeed/internal/color"
	"github.com/soltauer/icalfeed/internal/ics"
	"github.com/soltauer/icalfeed/internal/secret"
	"github.com/soltauer/icalfeed/internal/source"
)

// Feed is one exported calendar: the entity it represents, the display name
// written into the document, and where its events come from.
type Feed struct {
	EntityID string
	Name     string
	Source   source.EventSource
}

// Handler serves feed requests. Each request is independent and stateless;
// nothing is cached between requests, the document is recomputed every time
// because the underlying calendar state can change at any moment.
type Handler struct {
	prefix  string
	secrets *secret.Store
	colors  *color.Table
	window  source.Window
	feeds   map[string]Feed
	logger  *slog.Logger
	now     func() time.Time
}

// Option represents a configuration option for the Handler
type Option func(*Handler)

// WithLogger sets the logger for the handler
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithWindow sets the lookback/lookahead window for event fetches
func WithWindow(window source.Window) Option {
	return func(h *Handler) {
		h.window = window
	}
}

// WithClock overrides the reference time used to resolve the window
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// New creates a feed Handler mounted under prefix (e.g. "/api/ics/").
func New(prefix string, secrets *secret.Store, colors *color.Table, feeds []Feed, opts ...Option) *Handler {
	if prefix == "" {
		prefix = "/"
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}

	h := &Handler{
		prefix:  prefix,
		secrets: secrets,
		colors:  colors,
		window:  source.DefaultWindow,
		feeds:   make(map[string]Feed, len(feeds)),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(h)
	}

	for _, f := range feeds {
		h.feeds[f.EntityID] = f
	}

	return h
}

// Prefix returns the normalized mount prefix.
func (h *Handler) Prefix() string {
	return h.prefix
}

// ServeHTTP implements the http.Handler interface
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("received request",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entityID := h.entityID(r.URL.Path)
	feed, ok := h.feeds[entityID]
	if entityID == "" || !ok {
		h.logger.Info("calendar not found",
			"entity_id", entityID)
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	// The supplied secret is deliberately absent from all log output.
	if err := h.secrets.Authorize(entityID, r.URL.Query().Get("s")); err != nil {
		h.logger.Info("request denied",
			"entity_id", entityID)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	start, end := h.window.Bounds(h.now())
	events, err := feed.Source.Events(r.Context(), start, end)
	if err != nil {
		h.logger.Error("failed to fetch events",
			"error", err,
			"entity_id", entityID)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}

	doc, err := ics.Encode(feed.Name, events, h.colors)
	if err != nil {
		h.logger.Error("failed to encode feed",
			"error", err,
			"entity_id", entityID)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", ics.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.ics", entityID))

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	if _, err := io.WriteString(w, doc); err != nil {
		h.logger.Error("failed to write response",
			"error", err,
			"entity_id", entityID)
	}

	h.logger.Debug("completed feed request",
		"entity_id", entityID,
		"event_count", len(events))
}

// entityID extracts the calendar entity id from the request path. A trailing
// ".ics" suffix is accepted so that feeds can be subscribed with a
// conventional file name.
func (h *Handler) entityID(path string) string {
	id := strings.TrimPrefix(path, h.prefix)
	id = strings.TrimSuffix(id, "/")
	id = strings.TrimSuffix(id, ".ics")
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
