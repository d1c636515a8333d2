// Package ics turns calendar events into RFC 5545 iCalendar documents.
package ics

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/soltauer/icalfeed/internal/color"
	"github.com/soltauer/icalfeed/internal/model"
)

// ContentType is the media type of an encoded feed.
const ContentType = "text/calendar; charset=utf-8"

const prodID = "-//icalfeed//iCal Subscription 1.0//EN"

// EncodingError represents a malformed event that cannot be encoded
type EncodingError struct {
	Message string
	Err     error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("encoding error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("encoding error: %s", e.Message)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Encode produces a single VCALENDAR document wrapping one VEVENT per input
// event, in input order. Callers are responsible for any desired sort.
//
// Timed events are emitted as UTC timestamps; all-day events as VALUE=DATE.
// Text escaping and 75-octet line folding are handled by the underlying
// iCalendar writer. An event whose end precedes its start is rejected with
// an *EncodingError; a zero end is clamped to the start.
func Encode(calendarName string, events []model.Event, colors *color.Table) (string, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)
	cal.Props.SetText("CALSCALE", "GREGORIAN")
	cal.Props.SetText("METHOD", "PUBLISH")
	cal.Props.SetText("NAME", calendarName)
	cal.Props.SetText("X-WR-CALNAME", calendarName)

	for _, ev := range events {
		vevent, err := encodeEvent(calendarName, ev, colors)
		if err != nil {
			return "", err
		}
		cal.Children = append(cal.Children, vevent.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", &EncodingError{
			Message: "failed to write calendar document",
			Err:     err,
		}
	}

	return buf.String(), nil
}

func encodeEvent(calendarName string, ev model.Event, colors *color.Table) (*ical.Event, error) {
	if ev.Start.IsZero() {
		return nil, &EncodingError{
			Message: fmt.Sprintf("event %q has no start time", ev.Summary),
		}
	}

	end := ev.End
	if end.IsZero() {
		end = ev.Start
	}
	if end.Before(ev.Start) {
		return nil, &EncodingError{
			Message: fmt.Sprintf("event %q ends before it starts", ev.Summary),
		}
	}

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, eventUID(calendarName, ev))

	// DTSTAMP derives from the event itself rather than the wall clock so
	// that repeated encodings of an unchanged event list are byte-identical.
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, ev.Start.UTC())

	if ev.AllDay {
		vevent.Props.SetDate(ical.PropDateTimeStart, ev.Start)
		vevent.Props.SetDate(ical.PropDateTimeEnd, end)
	} else {
		vevent.Props.SetDateTime(ical.PropDateTimeStart, ev.Start.UTC())
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())
	}

	vevent.Props.SetText(ical.PropSummary, ev.Summary)
	if ev.Description != "" {
		vevent.Props.SetText(ical.PropDescription, ev.Description)
	}
	if ev.Location != "" {
		vevent.Props.SetText(ical.PropLocation, ev.Location)
	}

	if c, ok := colors.ColorFor(ev.Summary).Get(); ok {
		vevent.Props.SetText("COLOR", c)
	}

	return vevent, nil
}

// eventUID returns the stable identifier for an event. Sources that supply
// their own UID keep it, suffixed with the recurrence id for expanded
// instances so every VEVENT in the document stays unique. Everything else
// gets a deterministic UUIDv5 derived from the event identity, so unchanged
// events keep identical UIDs across feed refreshes.
func eventUID(calendarName string, ev model.Event) string {
	if ev.UID != "" {
		if ev.RecurrenceID != "" {
			return ev.UID + "-" + ev.RecurrenceID
		}
		return ev.UID
	}

	seed := strings.Join([]string{
		calendarName,
		ev.Start.UTC().Format(time.RFC3339),
		ev.Summary,
		ev.RecurrenceID,
	}, "\n")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String() + "@icalfeed"
}
