package etcd

import (
	"context"
	"errors"
	"sort"

	"github.com/sirupsen/logrus"
	v3 "go.etcd.io/etcd/client/v3"
)

var errWatchClosed = errors.New("etcd watch channel closed")

// Entry is a single transformed <Key, Value> pair of a tree.
type Entry[V any] struct {
	Key   string
	Value V
}

// Snapshot contains a "tree" at a given point in time, ordered by key.
//
// The tree is all <Key, Value> pairs matching a prefix. A Snapshot with a
// non-nil Err is the last one emitted by a watch.
type Snapshot[V any] struct {
	Entries []Entry[V]
	Err     error
}

// KVTransform transforms a <Key, Value> pair from etcd into a value suitable
// to the use-case of Snapshot[V].
//
// The returned key identifies the child within the tree. Example: the key is
// the ID of an item, where V is the information about it.
type KVTransform[V any] func(k, v []byte) (string, V, error)

// WatchPrefix watches a prefix until the provided context is cancelled, or
// the watch fails.
//
// The returned channel emits Snapshot's of the tree, starting with the state
// at the time of the call. Watch failures are not retried: the failure is
// emitted as a final Snapshot carrying the error, and the channel is closed.
// The channel is also closed when the provided ctx is cancelled.
func WatchPrefix[V any](
	ctx context.Context,
	client *v3.Client,
	prefix string,
	transform KVTransform[V],
) <-chan Snapshot[V] {
	log := logrus.StandardLogger().WithFields(logrus.Fields{
		"method": "WatchPrefix",
		"prefix": prefix,
	})

	ch := make(chan Snapshot[V], 1)

	emit := func(s Snapshot[V]) bool {
		select {
		case ch <- s:
			return true
		case <-ctx.Done():
			return false
		}
	}

	loop := func() error {
		get, err := client.Get(ctx, prefix, v3.WithPrefix(), v3.WithSort(v3.SortByKey, v3.SortAscend))
		if err != nil {
			return err
		}

		tree := make(map[string]Entry[V])
		for i := range get.Kvs {
			key, val, err := transform(get.Kvs[i].Key, get.Kvs[i].Value)
			if err != nil {
				log.WithError(err).
					WithField("key", string(get.Kvs[i].Key)).
					Warn("Invalid record, dropping")

				continue
			}

			tree[string(get.Kvs[i].Key)] = Entry[V]{Key: key, Value: val}
		}

		if !emit(Snapshot[V]{Entries: ordered(tree)}) {
			return nil
		}

		watchCh := client.Watch(
			ctx,
			prefix,
			v3.WithPrefix(),
			v3.WithRev(get.Header.Revision+1),
		)

		for watch := range watchCh {
			if err := watch.Err(); err != nil {
				return err
			}

			for _, event := range watch.Events {
				rawKey := string(event.Kv.Key)

				switch event.Type {
				case v3.EventTypePut:
					key, val, err := transform(event.Kv.Key, event.Kv.Value)
					if err != nil {
						log.WithError(err).
							WithField("key", rawKey).
							Warn("Invalid record, dropping")

						delete(tree, rawKey)
						continue
					}

					tree[rawKey] = Entry[V]{Key: key, Value: val}
				case v3.EventTypeDelete:
					delete(tree, rawKey)
				}
			}

			if !emit(Snapshot[V]{Entries: ordered(tree)}) {
				return nil
			}
		}

		if ctx.Err() != nil {
			return nil
		}
		return errWatchClosed
	}

	go func() {
		defer close(ch)

		if err := loop(); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("Failure during watch loop")
			emit(Snapshot[V]{Err: err})
			return
		}

		log.Debug("Closed")
	}()

	return ch
}

func ordered[V any](tree map[string]Entry[V]) []Entry[V] {
	keys := make([]string, 0, len(tree))
	for key := range tree {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]Entry[V], len(keys))
	for i, key := range keys {
		entries[i] = tree[key]
	}
	return entries
}
