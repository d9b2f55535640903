package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/code-payments/eventflow/pkg/eventflow/event"
	"github.com/code-payments/eventflow/pkg/eventflow/remote"
)

var errDeveloperInduced = errors.New("in memory store: developer induced error")

type partition struct {
	keys    []string
	records map[string]*event.Record
}

func (p *partition) materialize() []*event.Record {
	res := make([]*event.Record, 0, len(p.keys))
	for _, key := range p.keys {
		cloned := p.records[key].Clone()
		res = append(res, &cloned)
	}
	return res
}

type subscriber struct {
	userId string
	ch     chan remote.Notification
}

// Store is an in memory remote.Store. Children are kept in insertion order,
// and every mutation is pushed to the partition's subscribers.
type Store struct {
	mu          sync.Mutex
	partitions  map[string]*partition
	subscribers map[*subscriber]struct{}
	err         error

	subscribeCalls  int
	getCalls        int
	putCalls        int
	deleteCalls     int
	newEventIdCalls int
}

// New returns a new in memory remote.Store
func New() *Store {
	return &Store{
		partitions:  make(map[string]*partition),
		subscribers: make(map[*subscriber]struct{}),
	}
}

// Subscribe implements remote.Store.Subscribe
func (s *Store) Subscribe(ctx context.Context, userId string) (<-chan remote.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscribeCalls++

	if s.err != nil {
		return nil, s.err
	}

	sub := &subscriber{
		userId: userId,
		ch:     make(chan remote.Notification, 1),
	}
	s.subscribers[sub] = struct{}{}

	remote.Offer(sub.ch, remote.Notification{Records: s.getPartition(userId).materialize()})

	go func() {
		<-ctx.Done()

		s.mu.Lock()
		defer s.mu.Unlock()

		s.closeSubscriber(sub)
	}()

	return sub.ch, nil
}

// Get implements remote.Store.Get
func (s *Store) Get(_ context.Context, userId, eventId string) (*event.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.getCalls++

	if s.err != nil {
		return nil, s.err
	}

	p, ok := s.partitions[userId]
	if !ok {
		return nil, remote.ErrEventNotFound
	}

	record, ok := p.records[eventId]
	if !ok {
		return nil, remote.ErrEventNotFound
	}

	cloned := record.Clone()
	return &cloned, nil
}

// Put implements remote.Store.Put
func (s *Store) Put(_ context.Context, userId string, record *event.Record) error {
	if len(record.EventId) == 0 {
		return errors.New("event id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.putCalls++

	if s.err != nil {
		return s.err
	}

	p := s.getPartition(userId)

	cloned := record.Clone()
	if _, ok := p.records[record.EventId]; !ok {
		p.keys = append(p.keys, record.EventId)
	}
	p.records[record.EventId] = &cloned

	s.notify(userId)
	return nil
}

// Delete implements remote.Store.Delete
func (s *Store) Delete(_ context.Context, userId, eventId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteCalls++

	if s.err != nil {
		return s.err
	}

	p, ok := s.partitions[userId]
	if !ok {
		return nil
	}

	if _, ok := p.records[eventId]; !ok {
		return nil
	}

	delete(p.records, eventId)
	for i, key := range p.keys {
		if key == eventId {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}

	s.notify(userId)
	return nil
}

// NewEventId implements remote.Store.NewEventId
func (s *Store) NewEventId(_ context.Context, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.newEventIdCalls++

	if s.err != nil {
		return "", s.err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Emit replaces the entire contents of a partition, in the provided order,
// and notifies subscribers as if the remote store pushed a change
func (s *Store) Emit(userId string, records ...*event.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &partition{
		records: make(map[string]*event.Record),
	}
	for _, record := range records {
		cloned := record.Clone()
		if _, ok := p.records[record.EventId]; !ok {
			p.keys = append(p.keys, record.EventId)
		}
		p.records[record.EventId] = &cloned
	}
	s.partitions[userId] = p

	s.notify(userId)
}

// CancelSubscriptions simulates the remote store cancelling every active
// subscription against a partition
func (s *Store) CancelSubscriptions(userId string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sub := range s.subscribers {
		if sub.userId != userId {
			continue
		}

		remote.Offer(sub.ch, remote.Notification{Err: remote.ErrSubscriptionCancelled})
		s.closeSubscriber(sub)
	}
}

// SubscriberCount returns the number of active subscriptions against a partition
func (s *Store) SubscriberCount(userId string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	for sub := range s.subscribers {
		if sub.userId == userId {
			count++
		}
	}
	return count
}

// InduceErrors instructs the store to fail every subsequent call
func (s *Store) InduceErrors() {
	s.mu.Lock()
	s.err = errDeveloperInduced
	s.mu.Unlock()
}

// StopInducingErrors stops the store from failing calls
func (s *Store) StopInducingErrors() {
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
}

func (s *Store) GetSubscribeCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribeCalls
}

func (s *Store) GetGetCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCalls
}

func (s *Store) GetPutCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putCalls
}

func (s *Store) GetDeleteCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteCalls
}

func (s *Store) GetNewEventIdCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newEventIdCalls
}

func (s *Store) getPartition(userId string) *partition {
	p, ok := s.partitions[userId]
	if !ok {
		p = &partition{
			records: make(map[string]*event.Record),
		}
		s.partitions[userId] = p
	}
	return p
}

func (s *Store) notify(userId string) {
	p := s.getPartition(userId)
	for sub := range s.subscribers {
		if sub.userId != userId {
			continue
		}

		remote.Offer(sub.ch, remote.Notification{Records: p.materialize()})
	}
}

func (s *Store) closeSubscriber(sub *subscriber) {
	if _, ok := s.subscribers[sub]; !ok {
		return
	}

	delete(s.subscribers, sub)
	close(sub.ch)
}

func (s *Store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sub := range s.subscribers {
		s.closeSubscriber(sub)
	}

	s.partitions = make(map[string]*partition)
	s.err = nil
	s.subscribeCalls = 0
	s.getCalls = 0
	s.putCalls = 0
	s.deleteCalls = 0
	s.newEventIdCalls = 0
}
