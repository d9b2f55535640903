package client

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/eventflow/pkg/eventflow/event"
	"github.com/code-payments/eventflow/pkg/eventflow/ical"
	"github.com/code-payments/eventflow/pkg/eventflow/session"
	"github.com/code-payments/eventflow/pkg/eventflow/syncstore"
)

// Client is the surface exposed to presentation code. It triggers fetches and
// mutations, and exposes the synced events as a stream of snapshots.
type Client struct {
	log     *logrus.Entry
	events  *syncstore.Store
	session *session.Cache

	// Location that event dates and times are interpreted in
	location *time.Location
}

func New(events *syncstore.Store, cache *session.Cache, location *time.Location) *Client {
	if location == nil {
		location = time.UTC
	}

	return &Client{
		log:      logrus.StandardLogger().WithField("type", "client"),
		events:   events,
		session:  cache,
		location: location,
	}
}

// FetchEvents starts syncing the active user's events. Results arrive through
// Events. identity.ErrUnauthenticated is returned when nobody is signed in.
func (c *Client) FetchEvents(ctx context.Context) error {
	userId, err := c.events.ActiveUser(ctx)
	if err != nil {
		return err
	}
	return c.events.BeginSync(ctx, userId)
}

// Events streams snapshots of the synced events, starting with the current
// one. The channel closes when ctx is done or the client is closed.
func (c *Client) Events(ctx context.Context) <-chan syncstore.Snapshot {
	return c.events.Watch(ctx)
}

// CurrentEvents returns a copy of the latest synced events
func (c *Client) CurrentEvents() []*event.Record {
	return c.events.Snapshot().Events()
}

// SyncState reports whether events are still being synced
func (c *Client) SyncState() syncstore.State {
	return c.events.State()
}

// GetEventById resolves an event, falling back to the remote store when it
// isn't synced. A nil record is returned if it doesn't exist.
func (c *Client) GetEventById(ctx context.Context, eventId string) (*event.Record, error) {
	return c.session.Lookup(ctx, eventId)
}

// NewEvent builds a record from form input. The price may be blank.
func (c *Client) NewEvent(title, description, date, startTime, location, price string) (*event.Record, error) {
	parsedPrice, err := event.ParsePrice(price)
	if err != nil {
		return nil, err
	}

	record := &event.Record{
		Title:       title,
		Description: description,
		Date:        date,
		Time:        startTime,
		Location:    location,
		Price:       parsedPrice,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

// SaveEvent creates or overwrites an event owned by the active user. New
// events have their assigned ID written back into record. The change shows
// up in Events once the remote store reports it.
func (c *Client) SaveEvent(ctx context.Context, record *event.Record) error {
	if record == nil {
		return errors.Wrap(event.ErrInvalidEvent, "record is required")
	}

	if err := record.Validate(); err != nil {
		c.log.WithFields(logrus.Fields{
			"method": "SaveEvent",
			"event":  record.EventId,
		}).WithError(err).Info("rejected invalid event")
		return err
	}

	userId, err := c.events.ActiveUser(ctx)
	if err != nil {
		return err
	}
	return c.events.Save(ctx, userId, record)
}

// DeleteEvent deletes an event owned by the active user
func (c *Client) DeleteEvent(ctx context.Context, eventId string) error {
	userId, err := c.events.ActiveUser(ctx)
	if err != nil {
		return err
	}
	return c.events.Delete(ctx, userId, eventId)
}

func (c *Client) IsEventInWishlist(ctx context.Context, eventId string) bool {
	return c.session.IsWishlisted(ctx, eventId)
}

func (c *Client) AddToWishlist(ctx context.Context, record *event.Record) error {
	return c.session.AddToWishlist(ctx, record)
}

func (c *Client) RemoveFromWishlist(ctx context.Context, eventId string) error {
	return c.session.RemoveFromWishlist(ctx, eventId)
}

func (c *Client) Wishlist(ctx context.Context) ([]*event.Record, error) {
	return c.session.Wishlist(ctx)
}

// ExportCalendar writes the current snapshot as an iCalendar document
func (c *Client) ExportCalendar(w io.Writer) error {
	snapshot := c.events.Snapshot()

	if err := ical.Write(w, snapshot.Records, c.location); err != nil {
		return err
	}

	c.log.WithFields(logrus.Fields{
		"method": "ExportCalendar",
		"user":   snapshot.UserId,
		"count":  snapshot.Len(),
	}).Debug("exported calendar")
	return nil
}

// Close stops syncing. The client can't be used afterwards.
func (c *Client) Close() {
	c.events.Close()
}
