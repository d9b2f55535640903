package syncstore

import (
	"context"
	"errors"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/eventflow/pkg/eventflow/event"
	"github.com/code-payments/eventflow/pkg/eventflow/identity"
	"github.com/code-payments/eventflow/pkg/eventflow/remote"
	"github.com/code-payments/eventflow/pkg/metrics"
)

const (
	metricsStructName = "syncstore.store"

	subscriptionCancelledEventName = "EventSubscriptionCancelled"
	snapshotSizeMetricName         = "EventSnapshot/size"
)

var (
	ErrClosed = errors.New("sync store is closed")
)

type subscription struct {
	userId string
	cancel context.CancelFunc
}

// Store maintains a continuously updated, observable, ordered list of events
// for exactly one user partition at a time.
//
// The snapshot is only ever replaced by the latest remote notification. Writes
// issued through Save and Delete become visible once the remote store pushes
// the resulting change, never before.
type Store struct {
	log      *logrus.Entry
	remote   remote.Store
	identity identity.Provider

	snapshot *observable[Snapshot]

	mu     sync.Mutex
	active *subscription
	state  State
	wg     sync.WaitGroup
}

// New returns a new Store. Close must be called to release the subscription.
func New(remoteStore remote.Store, identityProvider identity.Provider) *Store {
	return &Store{
		log:      logrus.StandardLogger().WithField("type", "syncstore"),
		remote:   remoteStore,
		identity: identityProvider,
		snapshot: newObservable(Snapshot{}),
		state:    StateUnauthenticated,
	}
}

// ActiveUser returns the currently authenticated user.
// identity.ErrUnauthenticated is returned if there is none.
func (s *Store) ActiveUser(ctx context.Context) (string, error) {
	log := s.log.WithField("method", "ActiveUser")

	userId, err := s.identity.GetActiveUserId(ctx)
	if errors.Is(err, identity.ErrUnauthenticated) {
		log.Info("no active user")
		return "", err
	} else if err != nil {
		log.WithError(err).Warn("failure identifying active user")
		return "", pkgerrors.Wrap(err, "error identifying active user")
	}

	log.WithField("user", userId).Info("identified active user")
	return userId, nil
}

// BeginSync starts streaming a user's partition into the snapshot.
//
// Only one subscription is active at a time. Switching to a different user
// cancels the prior subscription and resets the snapshot to that user's empty
// partition. Calling BeginSync for the user already syncing is a no-op, while
// calling it after the subscription was cancelled re-subscribes.
func (s *Store) BeginSync(ctx context.Context, userId string) error {
	if len(userId) == 0 {
		return errors.New("user id is required")
	}

	log := s.log.WithFields(logrus.Fields{
		"method": "BeginSync",
		"user":   userId,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrClosed
	}

	if s.active != nil && s.active.userId == userId && s.state == StateSyncing {
		log.Debug("already syncing")
		return nil
	}

	if s.active != nil {
		log.WithField("previous_user", s.active.userId).Debug("replacing subscription")
		s.active.cancel()
		s.active = nil
	}

	if s.snapshot.get().UserId != userId {
		s.snapshot.publish(Snapshot{UserId: userId, UpdatedAt: time.Now()})
	}

	// The subscription is standing, so it must outlive the caller's context
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	notifications, err := s.remote.Subscribe(subCtx, userId)
	if err != nil {
		cancel()
		s.state = StateFailed
		log.WithError(err).Warn("failure subscribing to partition")
		return pkgerrors.Wrap(err, "error subscribing to partition")
	}

	sub := &subscription{
		userId: userId,
		cancel: cancel,
	}
	s.active = sub
	s.state = StateSyncing

	s.wg.Add(1)
	go s.consume(subCtx, sub, notifications)

	log.Info("sync started")
	return nil
}

// consume is the only writer of the snapshot while sub is active
func (s *Store) consume(ctx context.Context, sub *subscription, notifications <-chan remote.Notification) {
	defer s.wg.Done()

	log := s.log.WithFields(logrus.Fields{
		"method": "consume",
		"user":   sub.userId,
	})

	for n := range notifications {
		if !s.apply(ctx, log, sub, n) {
			return
		}
	}

	// The remote store closed the subscription without telling us why
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == sub && s.state == StateSyncing {
		s.state = StateFailed
		log.Warn("subscription closed by remote store, snapshot frozen")
	}
}

// apply handles a single notification, and reports whether the subscription
// should keep being consumed
func (s *Store) apply(ctx context.Context, log *logrus.Entry, sub *subscription, n remote.Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != sub {
		return false
	}

	if n.Err != nil {
		s.state = StateFailed
		log.WithError(n.Err).Warn("subscription cancelled, snapshot frozen")
		metrics.RecordEvent(ctx, subscriptionCancelledEventName, map[string]interface{}{
			"user":  sub.userId,
			"error": n.Err.Error(),
		})
		return false
	}

	next := Snapshot{
		UserId:    sub.userId,
		Records:   event.CloneAll(n.Records),
		Version:   s.snapshot.get().Version + 1,
		UpdatedAt: time.Now(),
	}
	s.snapshot.publish(next)

	metrics.RecordCount(ctx, snapshotSizeMetricName, uint64(next.Len()))
	log.WithFields(logrus.Fields{
		"count":   next.Len(),
		"version": next.Version,
	}).Debug("snapshot updated")

	return true
}

// Save writes the full record at (userId, record.EventId). An ID is generated
// by the remote store when record.EventId is empty. On success the assigned
// ID and owning user are written back into record.
//
// The snapshot is not updated; the change becomes visible when the remote
// store notifies the subscription.
func (s *Store) Save(ctx context.Context, userId string, record *event.Record) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Save")
	defer tracer.End()

	log := s.log.WithFields(logrus.Fields{
		"method": "Save",
		"user":   userId,
		"event":  record.EventId,
	})

	if len(userId) == 0 {
		return errors.New("user id is required")
	}

	if err := record.Validate(); err != nil {
		return err
	}

	eventId := record.EventId
	if len(eventId) == 0 {
		var err error
		eventId, err = s.remote.NewEventId(ctx, userId)
		if err != nil {
			tracer.OnError(err)
			log.WithError(err).Warn("failure generating event id")
			return pkgerrors.Wrap(err, "error generating event id")
		}
		log = log.WithField("event", eventId)
	}

	toWrite := record.Clone()
	toWrite.EventId = eventId
	toWrite.UserId = userId

	if err := s.remote.Put(ctx, userId, &toWrite); err != nil {
		tracer.OnError(err)
		log.WithError(err).Warn("failure saving event")
		return pkgerrors.Wrap(err, "error saving event")
	}

	record.EventId = eventId
	record.UserId = userId

	log.WithField("title", record.Title).Info("event saved")
	return nil
}

// Delete removes the record at (userId, eventId). Deleting an event that does
// not exist succeeds. Like Save, the snapshot is not updated.
func (s *Store) Delete(ctx context.Context, userId, eventId string) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Delete")
	defer tracer.End()

	log := s.log.WithFields(logrus.Fields{
		"method": "Delete",
		"user":   userId,
		"event":  eventId,
	})

	if len(userId) == 0 {
		return errors.New("user id is required")
	}
	if len(eventId) == 0 {
		return errors.New("event id is required")
	}

	if err := s.remote.Delete(ctx, userId, eventId); err != nil {
		tracer.OnError(err)
		log.WithError(err).Warn("failure deleting event")
		return pkgerrors.Wrap(err, "error deleting event")
	}

	log.Info("event deleted")
	return nil
}

// Snapshot returns the current snapshot. Safe to call from any goroutine.
func (s *Store) Snapshot() Snapshot {
	return s.snapshot.get()
}

// Watch streams snapshots, starting with the current one, until ctx is done
// or the store is closed. A slow reader skips intermediate snapshots but
// always receives the newest.
func (s *Store) Watch(ctx context.Context) <-chan Snapshot {
	return s.snapshot.watch(ctx)
}

// State returns the lifecycle state of the store
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SyncedUser returns the user whose partition is (or was last) subscribed
func (s *Store) SyncedUser() string {
	return s.snapshot.get().UserId
}

// Close cancels the active subscription and closes every watcher. Close is
// idempotent.
func (s *Store) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}

	if s.active != nil {
		s.active.cancel()
		s.active = nil
	}
	s.state = StateClosed
	s.mu.Unlock()

	s.snapshot.close()
	s.wg.Wait()

	s.log.WithField("method", "Close").Debug("closed")
}
