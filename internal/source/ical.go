package source

import (
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

// FromCalendar maps the VEVENT components of a parsed iCalendar document
// into masters ready for expansion. Components without a usable start time
// are skipped.
func FromCalendar(cal *ical.Calendar) []Master {
	var masters []Master
	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		if m, ok := masterFromComponent(comp); ok {
			masters = append(masters, m)
		}
	}
	return masters
}

func masterFromComponent(comp *ical.Component) (Master, bool) {
	var m Master
	ev := &m.Event

	if prop := comp.Props.Get(ical.PropUID); prop != nil {
		ev.UID = prop.Value
	}
	if prop := comp.Props.Get(ical.PropSummary); prop != nil {
		if text, err := prop.Text(); err == nil {
			ev.Summary = text
		}
	}
	if prop := comp.Props.Get(ical.PropDescription); prop != nil {
		if text, err := prop.Text(); err == nil {
			ev.Description = text
		}
	}
	if prop := comp.Props.Get(ical.PropLocation); prop != nil {
		if text, err := prop.Text(); err == nil {
			ev.Location = text
		}
	}

	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return Master{}, false
	}
	start, err := startProp.DateTime(time.UTC)
	if err != nil {
		return Master{}, false
	}
	ev.Start = start
	if startProp.Params.Get(ical.ParamValue) == string(ical.ValueDate) {
		ev.AllDay = true
	}

	if prop := comp.Props.Get(ical.PropDateTimeEnd); prop != nil {
		if end, err := prop.DateTime(time.UTC); err == nil {
			ev.End = end
		}
	}
	if ev.End.IsZero() {
		// DTEND is optional; all-day events without one span a single day.
		ev.End = ev.Start
		if ev.AllDay {
			ev.End = ev.Start.AddDate(0, 0, 1)
		}
	}

	if prop := comp.Props.Get(ical.PropRecurrenceRule); prop != nil {
		m.RRule = prop.Value
	}
	if prop := comp.Props.Get("RECURRENCE-ID"); prop != nil {
		if t, err := prop.DateTime(time.UTC); err == nil {
			ev.RecurrenceID = t.UTC().Format(time.RFC3339)
		}
	}

	for _, prop := range comp.Props.Values("EXDATE") {
		for _, raw := range strings.Split(prop.Value, ",") {
			if t, ok := parseICalTime(strings.TrimSpace(raw)); ok {
				m.ExDates = append(m.ExDates, t)
			}
		}
	}

	return m, true
}

func parseICalTime(raw string) (time.Time, bool) {
	for _, layout := range []string{"20060102T150405Z", "20060102T150405", "20060102"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
