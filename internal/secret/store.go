// Package secret gates calendar feeds behind per-calendar shared secrets.
package secret

import (
	"crypto/subtle"
	"fmt"
	"io"
	"log/slog"
)

// ErrorType represents the type of authorization error
type ErrorType string

const (
	ErrUnknownCalendar  ErrorType = "unknown_calendar"
	ErrBadSecret        ErrorType = "bad_secret"
	ErrDuplicateBinding ErrorType = "duplicate_binding"
)

// Error represents an authorization-related error
type Error struct {
	Type    ErrorType
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Binding pairs a calendar entity with its shared secret.
type Binding struct {
	EntityID string
	Secret   string
}

// Store holds one secret per calendar entity. It is immutable after New and
// safe for concurrent use without locking. Secrets are per-entity: two
// calendars configured with the same secret value remain independently
// gated, a match on one never grants the other.
type Store struct {
	secrets map[string]string
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

// New creates a Store from the configured bindings. Each entity may be bound
// at most once; a duplicate entity id is a configuration error.
func New(bindings []Binding, opts ...Option) (*Store, error) {
	s := &Store{
		secrets: make(map[string]string, len(bindings)),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	for _, b := range bindings {
		if _, exists := s.secrets[b.EntityID]; exists {
			return nil, &Error{
				Type:    ErrDuplicateBinding,
				Message: fmt.Sprintf("duplicate secret binding for entity %q", b.EntityID),
			}
		}
		s.secrets[b.EntityID] = b.Secret
	}

	return s, nil
}

// Has reports whether entityID has a configured binding.
func (s *Store) Has(entityID string) bool {
	_, ok := s.secrets[entityID]
	return ok
}

// Authorize validates the supplied secret for entityID. It returns nil when
// access is granted and a typed *Error otherwise. The comparison is
// constant-time so that response timing does not reveal matching prefixes.
// Secret values are never logged.
func (s *Store) Authorize(entityID, supplied string) error {
	bound, ok := s.secrets[entityID]
	if !ok {
		s.logger.Info("authorization failed: unknown calendar",
			"entity_id", entityID)
		return &Error{
			Type:    ErrUnknownCalendar,
			Message: fmt.Sprintf("no secret binding for entity %q", entityID),
		}
	}

	if subtle.ConstantTimeCompare([]byte(bound), []byte(supplied)) != 1 {
		s.logger.Info("authorization failed: invalid secret",
			"entity_id", entityID)
		return &Error{
			Type:    ErrBadSecret,
			Message: "invalid secret",
		}
	}

	s.logger.Debug("authorization successful",
		"entity_id", entityID)

	return nil
}
