package etcd

import (
	"context"
	"encoding/json"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	v3 "go.etcd.io/etcd/client/v3"

	"github.com/code-payments/eventflow/pkg/etcd"
	"github.com/code-payments/eventflow/pkg/eventflow/event"
	"github.com/code-payments/eventflow/pkg/eventflow/remote"
	"github.com/code-payments/eventflow/pkg/metrics"
)

const (
	metricsStructName = "remote.etcd.store"

	DefaultRoot = "/Events"
)

type store struct {
	client *v3.Client
	root   string
}

// New returns a new etcd backed remote.Store. Records are stored as JSON
// under <root>/<userId>/<eventId>.
func New(client *v3.Client, root string) remote.Store {
	if len(root) == 0 {
		root = DefaultRoot
	}

	return &store{
		client: client,
		root:   path.Clean("/" + root),
	}
}

// Subscribe implements remote.Store.Subscribe
func (s *store) Subscribe(ctx context.Context, userId string) (<-chan remote.Notification, error) {
	prefix, err := s.partitionPrefix(userId)
	if err != nil {
		return nil, err
	}

	snapshots := etcd.WatchPrefix(ctx, s.client, prefix, func(k, v []byte) (string, *event.Record, error) {
		var record event.Record
		if err := json.Unmarshal(v, &record); err != nil {
			return "", nil, err
		}
		return strings.TrimPrefix(string(k), prefix), &record, nil
	})

	ch := make(chan remote.Notification, 1)
	go func() {
		defer close(ch)

		for snapshot := range snapshots {
			if snapshot.Err != nil {
				remote.Offer(ch, remote.Notification{
					Err: errors.Wrap(remote.ErrSubscriptionCancelled, snapshot.Err.Error()),
				})
				return
			}

			records := make([]*event.Record, len(snapshot.Entries))
			for i, entry := range snapshot.Entries {
				records[i] = entry.Value
			}
			remote.Offer(ch, remote.Notification{Records: records})
		}
	}()

	return ch, nil
}

// Get implements remote.Store.Get
func (s *store) Get(ctx context.Context, userId, eventId string) (*event.Record, error) {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "Get").End()

	key, err := s.eventKey(userId, eventId)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Get(ctx, key)
	if err != nil {
		return nil, errors.Wrap(err, "error getting event record")
	}

	if len(resp.Kvs) == 0 {
		return nil, remote.ErrEventNotFound
	}

	var record event.Record
	if err := json.Unmarshal(resp.Kvs[0].Value, &record); err != nil {
		return nil, errors.Wrap(err, "error decoding event record")
	}
	return &record, nil
}

// Put implements remote.Store.Put
func (s *store) Put(ctx context.Context, userId string, record *event.Record) error {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "Put").End()

	key, err := s.eventKey(userId, record.EventId)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "error encoding event record")
	}

	if _, err := s.client.Put(ctx, key, string(encoded)); err != nil {
		return errors.Wrap(err, "error putting event record")
	}
	return nil
}

// Delete implements remote.Store.Delete
func (s *store) Delete(ctx context.Context, userId, eventId string) error {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "Delete").End()

	key, err := s.eventKey(userId, eventId)
	if err != nil {
		return err
	}

	if _, err := s.client.Delete(ctx, key); err != nil {
		return errors.Wrap(err, "error deleting event record")
	}
	return nil
}

// NewEventId implements remote.Store.NewEventId
//
// UUIDv7 keys sort by creation time, matching the chronological child order
// of push-generated keys.
func (s *store) NewEventId(_ context.Context, userId string) (string, error) {
	if _, err := s.partitionPrefix(userId); err != nil {
		return "", err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", errors.Wrap(err, "error generating event id")
	}
	return id.String(), nil
}

func (s *store) partitionPrefix(userId string) (string, error) {
	if err := validateSegment("user id", userId); err != nil {
		return "", err
	}
	return s.root + "/" + userId + "/", nil
}

func (s *store) eventKey(userId, eventId string) (string, error) {
	prefix, err := s.partitionPrefix(userId)
	if err != nil {
		return "", err
	}

	if err := validateSegment("event id", eventId); err != nil {
		return "", err
	}
	return prefix + eventId, nil
}

func validateSegment(name, value string) error {
	if len(value) == 0 {
		return errors.Errorf("%s is required", name)
	}
	if strings.Contains(value, "/") {
		return errors.Errorf("%s cannot contain '/'", name)
	}
	return nil
}
