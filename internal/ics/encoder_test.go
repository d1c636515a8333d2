package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltauer/icalfeed/internal/color"
	"github.com/soltauer/icalfeed/internal/model"
)

func decodeFeed(t *testing.T, doc string) *ical.Calendar {
	t.Helper()
	cal, err := ical.NewDecoder(strings.NewReader(doc)).Decode()
	require.NoError(t, err, "encoded feed must parse as valid iCalendar")
	return cal
}

func TestEncode_Document(t *testing.T) {
	doc, err := Encode("Bin Collection", []model.Event{
		{
			Summary: "Recycling",
			Start:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			End:     time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
			AllDay:  true,
		},
	}, nil)
	require.NoError(t, err)

	assert.Contains(t, doc, "BEGIN:VCALENDAR")
	assert.Contains(t, doc, "VERSION:2.0")
	assert.Contains(t, doc, "PRODID:")
	assert.Contains(t, doc, "END:VCALENDAR")

	cal := decodeFeed(t, doc)
	assert.Equal(t, "GREGORIAN", cal.Props.Get("CALSCALE").Value)
	assert.Equal(t, "PUBLISH", cal.Props.Get("METHOD").Value)
	assert.Equal(t, "Bin Collection", cal.Props.Get("X-WR-CALNAME").Value)
	assert.Equal(t, "Bin Collection", cal.Props.Get("NAME").Value)
}

func TestEncode_AllDayWithColor(t *testing.T) {
	colors := color.NewTable([]color.Rule{{Pattern: "Recycling", Color: "green"}})

	doc, err := Encode("calendar.bins", []model.Event{
		{
			Summary: "Recycling",
			Start:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			End:     time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
			AllDay:  true,
		},
	}, colors)
	require.NoError(t, err)

	assert.Contains(t, doc, "DTSTART;VALUE=DATE:20240601")

	events := decodeFeed(t, doc).Events()
	require.Len(t, events, 1)
	colorProp := events[0].Props.Get("COLOR")
	require.NotNil(t, colorProp)
	assert.Equal(t, "green", colorProp.Value)
}

func TestEncode_TimedEventUTC(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// 10:00 CEST is 08:00 UTC.
	doc, err := Encode("calendar.work", []model.Event{
		{
			Summary: "Standup",
			Start:   time.Date(2024, 6, 3, 10, 0, 0, 0, berlin),
			End:     time.Date(2024, 6, 3, 10, 30, 0, 0, berlin),
		},
	}, nil)
	require.NoError(t, err)

	assert.Contains(t, doc, "DTSTART:20240603T080000Z")
	assert.Contains(t, doc, "DTEND:20240603T083000Z")
}

func TestEncode_OmitsAbsentOptionalFields(t *testing.T) {
	doc, err := Encode("calendar.work", []model.Event{
		{
			Summary: "Standup",
			Start:   time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC),
			End:     time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
		},
	}, nil)
	require.NoError(t, err)

	assert.NotContains(t, doc, "DESCRIPTION")
	assert.NotContains(t, doc, "LOCATION")
	assert.NotContains(t, doc, "COLOR")
}

func TestEncode_EscapingRoundTrip(t *testing.T) {
	summaries := []string{
		"Lunch, then dentist",
		"Standup; daily",
		"Path C:\\Users\\x",
		"Line one\nLine two",
		"All of it: a,b;c\\d",
	}

	events := make([]model.Event, 0, len(summaries))
	for i, s := range summaries {
		events = append(events, model.Event{
			Summary:     s,
			Description: s,
			Location:    s,
			Start:       time.Date(2024, 6, 3, 8+i, 0, 0, 0, time.UTC),
			End:         time.Date(2024, 6, 3, 9+i, 0, 0, 0, time.UTC),
		})
	}

	doc, err := Encode("calendar.misc", events, nil)
	require.NoError(t, err)

	decoded := decodeFeed(t, doc).Events()
	require.Len(t, decoded, len(summaries))

	for i, ev := range decoded {
		got, err := ev.Props.Get(ical.PropSummary).Text()
		require.NoError(t, err)
		assert.Equal(t, summaries[i], got)

		got, err = ev.Props.Get(ical.PropDescription).Text()
		require.NoError(t, err)
		assert.Equal(t, summaries[i], got)
	}
}

func TestEncode_LongLinesFolded(t *testing.T) {
	long := strings.Repeat("All-hands planning session with every team in the building ", 4)

	doc, err := Encode("calendar.work", []model.Event{
		{
			Summary: long,
			Start:   time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC),
			End:     time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
		},
	}, nil)
	require.NoError(t, err)

	for _, line := range strings.Split(doc, "\r\n") {
		assert.LessOrEqual(t, len(line), 75, "content line exceeds 75 octets: %q", line)
	}

	// Continuation lines rejoin to the original content.
	decoded := decodeFeed(t, doc).Events()
	require.Len(t, decoded, 1)
	got, err := decoded[0].Props.Get(ical.PropSummary).Text()
	require.NoError(t, err)
	assert.Equal(t, long, got)
}

func TestEncode_StableUIDs(t *testing.T) {
	events := []model.Event{
		{
			Summary: "Recycling",
			Start:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			End:     time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
			AllDay:  true,
		},
		{
			Summary: "Standup",
			Start:   time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC),
			End:     time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
		},
	}

	first, err := Encode("calendar.bins", events, nil)
	require.NoError(t, err)
	second, err := Encode("calendar.bins", events, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second, "unchanged events must encode identically")

	uids := make(map[string]bool)
	for _, ev := range decodeFeed(t, first).Events() {
		uid := ev.Props.Get(ical.PropUID)
		require.NotNil(t, uid)
		assert.False(t, uids[uid.Value], "UID %q repeated within document", uid.Value)
		uids[uid.Value] = true
	}
}

func TestEncode_SourceUIDKept(t *testing.T) {
	doc, err := Encode("calendar.work", []model.Event{
		{
			UID:     "evt-42@upstream",
			Summary: "Standup",
			Start:   time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC),
			End:     time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
		},
	}, nil)
	require.NoError(t, err)

	assert.Contains(t, doc, "UID:evt-42@upstream")
}

func TestEncode_ExpandedInstancesGetDistinctUIDs(t *testing.T) {
	doc, err := Encode("calendar.work", []model.Event{
		{
			UID:          "evt-42@upstream",
			Summary:      "Standup",
			Start:        time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC),
			End:          time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
			RecurrenceID: "2024-06-03T08:00:00Z",
		},
		{
			UID:          "evt-42@upstream",
			Summary:      "Standup",
			Start:        time.Date(2024, 6, 4, 8, 0, 0, 0, time.UTC),
			End:          time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC),
			RecurrenceID: "2024-06-04T08:00:00Z",
		},
	}, nil)
	require.NoError(t, err)

	uids := make(map[string]bool)
	for _, ev := range decodeFeed(t, doc).Events() {
		uids[ev.Props.Get(ical.PropUID).Value] = true
	}
	assert.Len(t, uids, 2)
}

func TestEncode_PreservesInputOrder(t *testing.T) {
	doc, err := Encode("calendar.work", []model.Event{
		{
			Summary: "Later",
			Start:   time.Date(2024, 6, 4, 8, 0, 0, 0, time.UTC),
			End:     time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC),
		},
		{
			Summary: "Earlier",
			Start:   time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC),
			End:     time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
		},
	}, nil)
	require.NoError(t, err)

	decoded := decodeFeed(t, doc).Events()
	require.Len(t, decoded, 2)
	assert.Equal(t, "Later", decoded[0].Props.Get(ical.PropSummary).Value)
	assert.Equal(t, "Earlier", decoded[1].Props.Get(ical.PropSummary).Value)
}

func TestEncode_EndBeforeStartRejected(t *testing.T) {
	_, err := Encode("calendar.work", []model.Event{
		{
			Summary: "Backwards",
			Start:   time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
			End:     time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC),
		},
	}, nil)

	require.Error(t, err)
	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
}

func TestEncode_ZeroEndClampedToStart(t *testing.T) {
	doc, err := Encode("calendar.work", []model.Event{
		{
			Summary: "Instant",
			Start:   time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC),
		},
	}, nil)
	require.NoError(t, err)

	assert.Contains(t, doc, "DTSTART:20240603T080000Z")
	assert.Contains(t, doc, "DTEND:20240603T080000Z")
}

func TestEncode_EmptyEventList(t *testing.T) {
	doc, err := Encode("calendar.quiet", nil, nil)
	require.NoError(t, err)

	assert.Contains(t, doc, "BEGIN:VCALENDAR")
	assert.Contains(t, doc, "END:VCALENDAR")
	assert.NotContains(t, doc, "BEGIN:VEVENT")
}
