package event

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var (
	// ErrInvalidEvent is the root of every validation failure
	ErrInvalidEvent = errors.New("invalid event")

	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// Record is a single event owned by a user. JSON names match the records
// written by the mobile client so both can share a partition.
type Record struct {
	// EventId is empty until the remote store assigns one at save time
	EventId string `json:"eventId"`

	// UserId is always overwritten with the acting user on save
	UserId string `json:"userId"`

	Title       string  `json:"title"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Location    string  `json:"location"`
	Price       float64 `json:"price"`
}

func (r *Record) Validate() error {
	if len(strings.TrimSpace(r.Title)) == 0 {
		return pkgerrors.Wrap(ErrInvalidEvent, "title is required")
	}

	if len(strings.TrimSpace(r.Date)) == 0 {
		return pkgerrors.Wrap(ErrInvalidEvent, "date is required")
	}
	if !datePattern.MatchString(r.Date) {
		return pkgerrors.Wrap(ErrInvalidEvent, "date must be YYYY-MM-DD")
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return pkgerrors.Wrapf(ErrInvalidEvent, "invalid date %s", r.Date)
	}

	if len(strings.TrimSpace(r.Time)) == 0 {
		return pkgerrors.Wrap(ErrInvalidEvent, "time is required")
	}
	if !timePattern.MatchString(r.Time) {
		return pkgerrors.Wrap(ErrInvalidEvent, "time must be HH:MM")
	}
	if _, err := time.Parse(TimeLayout, r.Time); err != nil {
		return pkgerrors.Wrapf(ErrInvalidEvent, "invalid time %s", r.Time)
	}

	if r.Price < 0 || math.IsNaN(r.Price) || math.IsInf(r.Price, 0) {
		return pkgerrors.Wrap(ErrInvalidEvent, "price must be a non-negative number")
	}

	return nil
}

func (r *Record) Clone() Record {
	return Record{
		EventId:     r.EventId,
		UserId:      r.UserId,
		Title:       r.Title,
		Description: r.Description,
		Date:        r.Date,
		Time:        r.Time,
		Location:    r.Location,
		Price:       r.Price,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.EventId = r.EventId
	dst.UserId = r.UserId
	dst.Title = r.Title
	dst.Description = r.Description
	dst.Date = r.Date
	dst.Time = r.Time
	dst.Location = r.Location
	dst.Price = r.Price
}

// StartsAt combines Date and Time into an instant in the provided location
func (r *Record) StartsAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, r.Date+" "+r.Time, loc)
	if err != nil {
		return time.Time{}, pkgerrors.Wrapf(ErrInvalidEvent, "cannot parse start of %s %s", r.Date, r.Time)
	}
	return t, nil
}

// ParsePrice normalizes user price input. Blank input is a free event.
func ParsePrice(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if len(value) == 0 {
		return 0, nil
	}

	price, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, pkgerrors.Wrapf(ErrInvalidEvent, "invalid price %q", value)
	}

	if price < 0 {
		return 0, pkgerrors.Wrap(ErrInvalidEvent, "price must be non-negative")
	}

	return price, nil
}

// CloneAll deep copies a list of records
func CloneAll(records []*Record) []*Record {
	cloned := make([]*Record, len(records))
	for i, record := range records {
		copied := record.Clone()
		cloned[i] = &copied
	}
	return cloned
}
