package firebase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"firebase.google.com/go/v4/db"
	"firebase.google.com/go/v4/errorutils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/eventflow/pkg/eventflow/event"
	"github.com/code-payments/eventflow/pkg/eventflow/remote"
	"github.com/code-payments/eventflow/pkg/metrics"
	"github.com/code-payments/eventflow/pkg/retry"
	"github.com/code-payments/eventflow/pkg/retry/backoff"
)

const (
	metricsStructName = "remote.firebase.store"

	DefaultRoot = "Events"
)

type store struct {
	log  *logrus.Entry
	conf *conf
	db   database
	root string
	ids  *pushIdGenerator

	isRetriable func(err error) bool
}

// New returns a new remote.Store backed by the Firebase Realtime Database.
// Records live at <root>/<userId>/<eventId>.
//
// The Admin SDK has no listener API, so subscriptions poll the partition with
// ETag-conditional reads and emit a notification whenever the ETag changes.
func New(client *db.Client, root string, configProvider ConfigProvider) remote.Store {
	return newStore(&rtdb{client: client}, root, configProvider)
}

func newStore(database database, root string, configProvider ConfigProvider) *store {
	root = strings.Trim(root, "/")
	if len(root) == 0 {
		root = DefaultRoot
	}

	return &store{
		log:         logrus.StandardLogger().WithField("type", "remote/firebase"),
		conf:        configProvider(),
		db:          database,
		root:        root,
		ids:         newPushIdGenerator(),
		isRetriable: isTransient,
	}
}

// Subscribe implements remote.Store.Subscribe
func (s *store) Subscribe(ctx context.Context, userId string) (<-chan remote.Notification, error) {
	partition, err := s.partitionPath(userId)
	if err != nil {
		return nil, err
	}

	ch := make(chan remote.Notification, 1)
	go s.pollPartition(ctx, partition, ch)
	return ch, nil
}

// Get implements remote.Store.Get
func (s *store) Get(ctx context.Context, userId, eventId string) (*event.Record, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Get")
	defer tracer.End()

	path, err := s.eventPath(userId, eventId)
	if err != nil {
		return nil, err
	}

	var record *event.Record
	err = s.retry(ctx, func() error {
		record = nil
		return s.db.Get(ctx, path, &record)
	})
	if err != nil {
		tracer.OnError(err)
		return nil, errors.Wrap(err, "error getting event record")
	}

	if record == nil {
		return nil, remote.ErrEventNotFound
	}

	record.EventId = eventId
	return record, nil
}

// Put implements remote.Store.Put
func (s *store) Put(ctx context.Context, userId string, record *event.Record) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Put")
	defer tracer.End()

	path, err := s.eventPath(userId, record.EventId)
	if err != nil {
		return err
	}

	err = s.retry(ctx, func() error {
		return s.db.Set(ctx, path, record)
	})
	if err != nil {
		tracer.OnError(err)
		return errors.Wrap(err, "error setting event record")
	}
	return nil
}

// Delete implements remote.Store.Delete
func (s *store) Delete(ctx context.Context, userId, eventId string) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Delete")
	defer tracer.End()

	path, err := s.eventPath(userId, eventId)
	if err != nil {
		return err
	}

	err = s.retry(ctx, func() error {
		return s.db.Delete(ctx, path)
	})
	if err != nil {
		tracer.OnError(err)
		return errors.Wrap(err, "error deleting event record")
	}
	return nil
}

// NewEventId implements remote.Store.NewEventId
func (s *store) NewEventId(_ context.Context, userId string) (string, error) {
	if _, err := s.partitionPath(userId); err != nil {
		return "", err
	}

	id, err := s.ids.next()
	if err != nil {
		return "", errors.Wrap(err, "error generating push id")
	}
	return id, nil
}

func (s *store) pollPartition(ctx context.Context, path string, ch chan remote.Notification) {
	defer close(ch)

	log := s.log.WithFields(logrus.Fields{
		"method": "pollPartition",
		"path":   path,
	})

	var etag string
	for {
		if len(etag) > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.conf.pollInterval.Get(ctx)):
			}
		}

		var children map[string]json.RawMessage
		var changed bool
		err := s.retry(ctx, func() error {
			children = nil

			if len(etag) == 0 {
				newEtag, err := s.db.GetWithETag(ctx, path, &children)
				if err != nil {
					return err
				}

				changed, etag = true, newEtag
				return nil
			}

			isChanged, newEtag, err := s.db.GetIfChanged(ctx, path, etag, &children)
			if err != nil {
				return err
			}

			changed, etag = isChanged, newEtag
			return nil
		})

		if ctx.Err() != nil {
			return
		}

		if err != nil {
			log.WithError(err).Warn("subscription cancelled")
			remote.Offer(ch, remote.Notification{
				Err: errors.Wrap(remote.ErrSubscriptionCancelled, err.Error()),
			})
			return
		}

		if !changed {
			continue
		}

		records := decodeChildren(log, children)
		log.WithField("count", len(records)).Debug("partition changed")
		remote.Offer(ch, remote.Notification{Records: records})
	}
}

func (s *store) retry(ctx context.Context, action retry.Action) error {
	_, err := retry.Retry(
		action,
		retry.Limit(uint(s.conf.maxAttempts.Get(ctx))),
		retry.RetriableWhen(s.isRetriable),
		retry.UntilDone(ctx),
		retry.Backoff(backoff.BinaryExponential(250*time.Millisecond), 2*time.Second),
	)
	return err
}

func (s *store) partitionPath(userId string) (string, error) {
	if err := validateKey("user id", userId); err != nil {
		return "", err
	}
	return s.root + "/" + userId, nil
}

func (s *store) eventPath(userId, eventId string) (string, error) {
	partition, err := s.partitionPath(userId)
	if err != nil {
		return "", err
	}

	if err := validateKey("event id", eventId); err != nil {
		return "", err
	}
	return partition + "/" + eventId, nil
}

// decodeChildren materializes a partition in the database's child order. The
// child key is authoritative for the event ID; children that are not event
// records are dropped.
func decodeChildren(log *logrus.Entry, children map[string]json.RawMessage) []*event.Record {
	keys := make([]string, 0, len(children))
	for key := range children {
		keys = append(keys, key)
	}
	sortKeys(keys)

	records := make([]*event.Record, 0, len(keys))
	for _, key := range keys {
		var record event.Record
		if err := json.Unmarshal(children[key], &record); err != nil {
			log.WithError(err).WithField("key", key).Warn("Invalid record, dropping")
			continue
		}

		record.EventId = key
		records = append(records, &record)
	}
	return records
}

func validateKey(name, value string) error {
	if len(value) == 0 {
		return errors.Errorf("%s is required", name)
	}

	if strings.ContainsAny(value, ".$#[]/") {
		return errors.Errorf("%s cannot contain any of '.', '$', '#', '[', ']' or '/'", name)
	}

	for _, r := range value {
		if r < 0x20 || r == 0x7f {
			return errors.Errorf("%s cannot contain control characters", name)
		}
	}
	return nil
}

func isTransient(err error) bool {
	return errorutils.IsUnavailable(err) || errorutils.IsInternal(err)
}
