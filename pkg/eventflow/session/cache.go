package session

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/eventflow/pkg/eventflow/event"
	"github.com/code-payments/eventflow/pkg/eventflow/identity"
	"github.com/code-payments/eventflow/pkg/eventflow/remote"
	"github.com/code-payments/eventflow/pkg/eventflow/syncstore"
	"github.com/code-payments/eventflow/pkg/eventflow/wishlist"
	"github.com/code-payments/eventflow/pkg/metrics"
	"github.com/code-payments/eventflow/pkg/rate"
)

const (
	metricsStructName = "session.cache"

	lookupSourceMetricName   = "EventLookup"
	lookupDurationMetricName = "EventLookup/remote_duration"
)

var (
	ErrLookupTimeout     = errors.New("event lookup timed out")
	ErrLookupRateLimited = errors.New("event lookup rate limited")
)

// Cache resolves events by ID for the current session and holds the
// session's wishlist.
type Cache struct {
	log      *logrus.Entry
	conf     *conf
	events   *syncstore.Store
	remote   remote.Store
	wishlist wishlist.Store
	limiter  rate.Limiter
}

func New(
	events *syncstore.Store,
	remoteStore remote.Store,
	wishlistStore wishlist.Store,
	configProvider ConfigProvider,
) *Cache {
	conf := configProvider()
	return &Cache{
		log:      logrus.StandardLogger().WithField("type", "session"),
		conf:     conf,
		events:   events,
		remote:   remoteStore,
		wishlist: wishlistStore,
		limiter:  rate.NewLocalRateLimiter(float64(conf.lookupRateLimit.Get(context.Background()))),
	}
}

// Lookup finds an event by ID.
//
// The current snapshot is consulted first. On a miss, the active user's
// partition is read from the remote store directly. The result of that read
// is returned as is, and the snapshot is left untouched.
//
// A nil record and nil error are returned when there is no active user, or
// when the event doesn't exist. ErrLookupTimeout is returned when the remote
// read doesn't complete within the configured timeout, and
// ErrLookupRateLimited when the user exhausted their remote lookups.
func (c *Cache) Lookup(ctx context.Context, eventId string) (*event.Record, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Lookup")
	defer tracer.End()

	log := c.log.WithFields(logrus.Fields{
		"method": "Lookup",
		"event":  eventId,
	})

	if len(eventId) == 0 {
		return nil, nil
	}

	if record, ok := c.events.Snapshot().Find(eventId); ok {
		metrics.RecordEvent(ctx, lookupSourceMetricName, map[string]interface{}{
			"source": "snapshot",
		})
		return record, nil
	}

	userId, err := c.events.ActiveUser(ctx)
	if errors.Is(err, identity.ErrUnauthenticated) {
		return nil, nil
	} else if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	log = log.WithField("user", userId)

	if allowed, err := c.limiter.Allow(userId); err != nil {
		log.WithError(err).Warn("failure checking rate limit")
	} else if !allowed {
		log.Debug("remote lookup rate limited")
		return nil, ErrLookupRateLimited
	}

	timeout := c.conf.lookupTimeout.Get(ctx)
	lookupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	record, err := c.remote.Get(lookupCtx, userId, eventId)
	metrics.RecordDuration(ctx, lookupDurationMetricName, time.Since(start))

	switch {
	case err == nil:
		metrics.RecordEvent(ctx, lookupSourceMetricName, map[string]interface{}{
			"source": "remote",
		})
		return record, nil
	case errors.Is(err, remote.ErrEventNotFound):
		log.Debug("event not found")
		return nil, nil
	case ctx.Err() == nil && errors.Is(lookupCtx.Err(), context.DeadlineExceeded):
		log.WithField("timeout", timeout).Warn("event lookup timed out")
		tracer.OnError(ErrLookupTimeout)
		return nil, ErrLookupTimeout
	default:
		log.WithError(err).Warn("failure reading event from remote store")
		tracer.OnError(err)
		return nil, pkgerrors.Wrap(err, "error reading event from remote store")
	}
}

// IsWishlisted reports whether the event is in the wishlist. Failures are
// logged and reported as not wishlisted.
func (c *Cache) IsWishlisted(ctx context.Context, eventId string) bool {
	ok, err := c.wishlist.Contains(ctx, eventId)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"method": "IsWishlisted",
			"event":  eventId,
		}).WithError(err).Warn("failure checking wishlist")
		return false
	}
	return ok
}

// AddToWishlist appends a copy of the record to the wishlist. Duplicates are
// not collapsed.
func (c *Cache) AddToWishlist(ctx context.Context, record *event.Record) error {
	if record == nil {
		return errors.New("record is required")
	}

	if err := c.wishlist.Add(ctx, record); err != nil {
		return pkgerrors.Wrap(err, "error adding to wishlist")
	}

	c.log.WithFields(logrus.Fields{
		"method": "AddToWishlist",
		"event":  record.EventId,
	}).Debug("added to wishlist")
	return nil
}

// RemoveFromWishlist removes every wishlist entry for the event
func (c *Cache) RemoveFromWishlist(ctx context.Context, eventId string) error {
	if err := c.wishlist.Remove(ctx, eventId); err != nil {
		return pkgerrors.Wrap(err, "error removing from wishlist")
	}

	c.log.WithFields(logrus.Fields{
		"method": "RemoveFromWishlist",
		"event":  eventId,
	}).Debug("removed from wishlist")
	return nil
}

// Wishlist returns copies of every wishlist entry in insertion order
func (c *Cache) Wishlist(ctx context.Context) ([]*event.Record, error) {
	records, err := c.wishlist.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "error listing wishlist")
	}
	return records, nil
}
