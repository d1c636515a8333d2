package model

import "time"

// Event is a single calendar occurrence as handed to the feed pipeline.
// Recurring events are expanded into one Event per occurrence before they
// reach the encoder; RecurrenceID carries the occurrence identity for
// expanded instances.
type Event struct {
	// UID is the stable identity supplied by the source, if it has one.
	// When empty, the encoder derives a deterministic identifier instead.
	UID string

	Summary     string
	Description string
	Location    string

	Start time.Time
	End   time.Time

	// AllDay marks date-only events. For these, Start and End hold midnight
	// of the respective dates and only the date component is encoded.
	AllDay bool

	// RecurrenceID identifies an expanded instance of a recurring event,
	// typically the original occurrence start in RFC 3339 form.
	RecurrenceID string
}

// Duration returns the span of the event. Zero or negative spans are
// possible for malformed input; the encoder decides how to treat them.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}
