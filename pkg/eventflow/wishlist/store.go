package wishlist

import (
	"context"

	"github.com/code-payments/eventflow/pkg/eventflow/event"
)

// Store is a user's wishlist of events. Entries are copies taken at the time
// they were added, and are not kept in sync with the remote event store.
type Store interface {
	// Add appends a copy of the record. Adding an event that is already
	// wishlisted adds a second entry.
	Add(ctx context.Context, record *event.Record) error

	// Remove drops every entry matching the event ID. Removing an event that
	// isn't wishlisted succeeds.
	Remove(ctx context.Context, eventId string) error

	// Contains reports whether any entry matches the event ID
	Contains(ctx context.Context, eventId string) (bool, error)

	// List returns copies of every entry in insertion order
	List(ctx context.Context) ([]*event.Record, error)
}
