package ical

import (
	"io"
	"strconv"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/eventflow/pkg/eventflow/event"
)

const (
	// PriceProperty carries an event's price, which has no standard
	// iCalendar property
	PriceProperty = "X-EVENTFLOW-PRICE"

	productId = "-//Code Payments//EventFlow//EN"
)

// Export builds an iCalendar document with one VEVENT per record. Dates and
// times are interpreted in loc, or UTC when loc is nil. Records whose date or
// time can't be parsed are skipped.
func Export(records []*event.Record, loc *time.Location) *ics.Calendar {
	log := logrus.StandardLogger().WithFields(logrus.Fields{
		"type":   "ical",
		"method": "Export",
	})

	now := time.Now()

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productId)

	for _, record := range records {
		if len(record.EventId) == 0 {
			log.Debug("skipping event without an id")
			continue
		}

		startsAt, err := record.StartsAt(loc)
		if err != nil {
			log.WithError(err).WithField("event", record.EventId).Warn("skipping event with invalid start time")
			continue
		}

		vevent := cal.AddEvent(record.EventId)
		vevent.SetDtStampTime(now)
		vevent.SetStartAt(startsAt)
		vevent.SetSummary(record.Title)
		if len(record.Description) > 0 {
			vevent.SetDescription(record.Description)
		}
		if len(record.Location) > 0 {
			vevent.SetLocation(record.Location)
		}
		vevent.SetProperty(ics.ComponentProperty(PriceProperty), strconv.FormatFloat(record.Price, 'f', 2, 64))
	}

	return cal
}

// Write exports records and serializes the document to w
func Write(w io.Writer, records []*event.Record, loc *time.Location) error {
	serialized := Export(records, loc).Serialize()
	if _, err := io.WriteString(w, serialized); err != nil {
		return errors.Wrap(err, "error writing calendar")
	}
	return nil
}
