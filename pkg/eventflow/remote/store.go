package remote

import (
	"context"
	"errors"

	"github.com/code-payments/eventflow/pkg/eventflow/event"
)

var (
	ErrEventNotFound = errors.New("event record not found")

	// ErrSubscriptionCancelled is carried by the final Notification of a
	// subscription the remote store has cancelled
	ErrSubscriptionCancelled = errors.New("subscription cancelled by remote store")
)

// Notification is a full materialization of a partition. Records are in the
// store's native child order.
//
// A Notification with a non-nil Err is terminal: the subscription has been
// cancelled and no further notifications will be delivered.
type Notification struct {
	Records []*event.Record
	Err     error
}

// Store is a hierarchical store of event records. The first level of the
// hierarchy is the owning user, the second level is the event ID.
type Store interface {
	// Subscribe registers a standing subscription against a user's partition.
	// The initial state, and every subsequent change to any child, is delivered
	// as a Notification carrying the full child set.
	//
	// The returned channel is closed after a cancellation Notification, or when
	// the provided context is cancelled.
	Subscribe(ctx context.Context, userId string) (<-chan Notification, error)

	// Get performs a point read of an event. ErrEventNotFound is returned if no
	// record exists.
	Get(ctx context.Context, userId, eventId string) (*event.Record, error)

	// Put writes the full record at (userId, record.EventId), overwriting any
	// existing value
	Put(ctx context.Context, userId string, record *event.Record) error

	// Delete removes the record at (userId, eventId). Deleting a record that
	// does not exist succeeds.
	Delete(ctx context.Context, userId, eventId string) error

	// NewEventId generates a fresh, unique child key under a user's partition
	NewEventId(ctx context.Context, userId string) (string, error)
}
