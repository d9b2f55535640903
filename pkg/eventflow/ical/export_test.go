package ical

import (
	"bytes"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/eventflow/pkg/eventflow/event"
)

func TestWrite(t *testing.T) {
	records := []*event.Record{
		{
			EventId:     "e1",
			Title:       "Jazz Night",
			Description: "Live music",
			Date:        "2024-03-09",
			Time:        "20:30",
			Location:    "Blue Room",
			Price:       12.5,
		},
		{
			EventId: "e2",
			Title:   "Bad Date",
			Date:    "2024-02-30",
			Time:    "10:00",
		},
		{
			EventId: "e3",
			Title:   "Free Talk",
			Date:    "2024-03-10",
			Time:    "09:00",
		},
		{
			Title: "Unsaved",
			Date:  "2024-03-10",
			Time:  "09:00",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, records, time.UTC))

	cal, err := ics.ParseCalendar(&buf)
	require.NoError(t, err)

	vevents := cal.Events()
	require.Len(t, vevents, 2)

	assert.Equal(t, "e1", vevents[0].Id())
	assert.Equal(t, "Jazz Night", vevents[0].GetProperty(ics.ComponentPropertySummary).Value)
	assert.Equal(t, "Live music", vevents[0].GetProperty(ics.ComponentPropertyDescription).Value)
	assert.Equal(t, "Blue Room", vevents[0].GetProperty(ics.ComponentPropertyLocation).Value)
	assert.Equal(t, "12.50", vevents[0].GetProperty(ics.ComponentProperty(PriceProperty)).Value)

	startsAt, err := vevents[0].GetStartAt()
	require.NoError(t, err)
	assert.True(t, startsAt.Equal(time.Date(2024, 3, 9, 20, 30, 0, 0, time.UTC)))

	assert.Equal(t, "e3", vevents[1].Id())
	assert.Nil(t, vevents[1].GetProperty(ics.ComponentPropertyLocation))
	assert.Equal(t, "0.00", vevents[1].GetProperty(ics.ComponentProperty(PriceProperty)).Value)
}

func TestExport_Location(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)

	cal := Export([]*event.Record{
		{EventId: "e1", Title: "T", Date: "2024-03-09", Time: "20:30"},
	}, loc)

	vevents := cal.Events()
	require.Len(t, vevents, 1)

	startsAt, err := vevents[0].GetStartAt()
	require.NoError(t, err)
	assert.True(t, startsAt.Equal(time.Date(2024, 3, 9, 18, 30, 0, 0, time.UTC)))
}

func TestExport_Empty(t *testing.T) {
	cal := Export(nil, nil)
	assert.Empty(t, cal.Events())
	assert.Contains(t, cal.Serialize(), "BEGIN:VCALENDAR")
}
