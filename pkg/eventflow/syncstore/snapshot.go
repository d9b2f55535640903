package syncstore

import (
	"time"

	"github.com/code-payments/eventflow/pkg/eventflow/event"
)

// Snapshot is the full ordered materialization of a user's partition as of
// the last remote notification. Snapshots are immutable once published.
type Snapshot struct {
	UserId string

	// Records are shared between every reader of the snapshot and must not be
	// modified. Use Events or Find for copies.
	Records []*event.Record

	// Version counts the notifications applied since the partition was
	// selected. Zero means nothing has been received yet.
	Version uint64

	UpdatedAt time.Time
}

// Events returns a copy of the snapshot's records
func (s Snapshot) Events() []*event.Record {
	return event.CloneAll(s.Records)
}

// Find scans the snapshot for an event by ID
func (s Snapshot) Find(eventId string) (*event.Record, bool) {
	for _, record := range s.Records {
		if record.EventId == eventId {
			cloned := record.Clone()
			return &cloned, true
		}
	}
	return nil, false
}

func (s Snapshot) Len() int {
	return len(s.Records)
}
