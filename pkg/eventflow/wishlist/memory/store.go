package memory

import (
	"context"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/code-payments/eventflow/pkg/eventflow/event"
	"github.com/code-payments/eventflow/pkg/eventflow/wishlist"
)

type store struct {
	mu      sync.Mutex
	records []*event.Record
}

// New returns a new in memory wishlist.Store. Contents are lost when the
// process exits.
func New() wishlist.Store {
	return &store{}
}

// Add implements wishlist.Store.Add
func (s *store) Add(_ context.Context, record *event.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cloned := record.Clone()
	s.records = append(s.records, &cloned)
	return nil
}

// Remove implements wishlist.Store.Remove
func (s *store) Remove(_ context.Context, eventId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = slices.DeleteFunc(s.records, func(record *event.Record) bool {
		return record.EventId == eventId
	})
	return nil
}

// Contains implements wishlist.Store.Contains
func (s *store) Contains(_ context.Context, eventId string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.ContainsFunc(s.records, func(record *event.Record) bool {
		return record.EventId == eventId
	}), nil
}

// List implements wishlist.Store.List
func (s *store) List(_ context.Context) ([]*event.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return event.CloneAll(s.records), nil
}

func (s *store) reset() {
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()
}
