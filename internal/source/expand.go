package source

import (
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/soltauer/icalfeed/internal/model"
)

// maxOccurrencesPerMaster caps expansion so a malformed unbounded rule
// cannot blow up a single feed request.
const maxOccurrencesPerMaster = 5000

// Master is a stored event plus its recurrence information prior to
// expansion. A Master whose Event.RecurrenceID is set is an override: it
// replaces the plain occurrence with the same UID and recurrence id.
type Master struct {
	Event   model.Event
	RRule   string // RFC 5545 recurrence rule, empty for single events
	ExDates []time.Time
}

// Expand flattens masters into concrete single occurrences within
// [start, end], applying exclusion dates and override replacement. The
// result is sorted chronologically and carries no recurrence rules.
func Expand(masters []Master, start, end time.Time) ([]model.Event, error) {
	overrides := make(map[string]model.Event)
	consumed := make(map[string]bool)

	for _, m := range masters {
		if m.Event.RecurrenceID != "" {
			overrides[m.Event.UID+"\x00"+m.Event.RecurrenceID] = m.Event
		}
	}

	var out []model.Event
	for _, m := range masters {
		if m.Event.RecurrenceID != "" {
			continue
		}

		if m.RRule == "" {
			if overlaps(m.Event.Start, m.Event.End, start, end) && !excluded(m.Event.Start, m.ExDates) {
				out = append(out, m.Event)
			}
			continue
		}

		occurrences, err := expandRecurring(m, start, end, overrides, consumed)
		if err != nil {
			return nil, err
		}
		out = append(out, occurrences...)
	}

	// Overrides whose base event is not part of the set still count as
	// standalone occurrences.
	for key, ev := range overrides {
		if consumed[key] {
			continue
		}
		if overlaps(ev.Start, ev.End, start, end) {
			out = append(out, ev)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})

	return out, nil
}

func expandRecurring(m Master, start, end time.Time, overrides map[string]model.Event, consumed map[string]bool) ([]model.Event, error) {
	duration := m.Event.End.Sub(m.Event.Start)
	if duration < 0 {
		duration = 0
	}

	set, err := rrule.StrToRRuleSet(fmt.Sprintf("DTSTART:%s\nRRULE:%s",
		m.Event.Start.UTC().Format("20060102T150405Z"), m.RRule))
	if err != nil {
		return nil, &Error{
			Type:    ErrInvalidInput,
			Message: fmt.Sprintf("failed to parse RRULE %q", m.RRule),
			Err:     err,
		}
	}

	// Start the query early enough that an occurrence beginning before the
	// window but still running at its start is included.
	starts := set.Between(start.Add(-duration), end, true)
	if len(starts) > maxOccurrencesPerMaster {
		starts = starts[:maxOccurrencesPerMaster]
	}

	var out []model.Event
	for _, occStart := range starts {
		if excluded(occStart, m.ExDates) {
			continue
		}

		occEnd := occStart.Add(duration)
		if !overlaps(occStart, occEnd, start, end) {
			continue
		}

		rid := occStart.UTC().Format(time.RFC3339)
		key := m.Event.UID + "\x00" + rid
		if ov, ok := overrides[key]; ok {
			consumed[key] = true
			if overlaps(ov.Start, ov.End, start, end) {
				out = append(out, ov)
			}
			continue
		}

		occurrence := m.Event
		occurrence.Start = occStart
		occurrence.End = occEnd
		occurrence.RecurrenceID = rid
		out = append(out, occurrence)
	}

	return out, nil
}

// overlaps reports whether [evStart, evEnd] intersects [rangeStart, rangeEnd].
func overlaps(evStart, evEnd, rangeStart, rangeEnd time.Time) bool {
	if evEnd.Before(evStart) {
		evEnd = evStart
	}
	return !evStart.After(rangeEnd) && !evEnd.Before(rangeStart)
}

func excluded(occurrence time.Time, exdates []time.Time) bool {
	for _, ex := range exdates {
		if occurrence.Equal(ex) {
			return true
		}
	}
	return false
}
