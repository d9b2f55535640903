package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/eventflow/pkg/eventflow/event"
	"github.com/code-payments/eventflow/pkg/eventflow/remote"
)

const waitFor = 10 * time.Second

func RunTests(t *testing.T, s remote.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s remote.Store){
		testRoundTrip,
		testOverwrite,
		testIdempotentDelete,
		testPartitionIsolation,
		testNewEventId,
		testSubscription,
		testSubscriptionClosesOnContextCancel,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s remote.Store) {
	t.Run("testRoundTrip", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.Get(ctx, "u1", "e1")
		assert.Equal(t, remote.ErrEventNotFound, err)

		expected := newTestRecord("u1", "e1", "Tech Meetup")
		require.NoError(t, s.Put(ctx, "u1", expected))

		actual, err := s.Get(ctx, "u1", "e1")
		require.NoError(t, err)
		assertEquivalentRecords(t, expected, actual)

		require.NoError(t, s.Delete(ctx, "u1", "e1"))

		_, err = s.Get(ctx, "u1", "e1")
		assert.Equal(t, remote.ErrEventNotFound, err)
	})
}

func testOverwrite(t *testing.T, s remote.Store) {
	t.Run("testOverwrite", func(t *testing.T) {
		ctx := context.Background()

		record := newTestRecord("u1", "e1", "Draft")
		require.NoError(t, s.Put(ctx, "u1", record))

		record.Title = "Final"
		record.Price = 250
		require.NoError(t, s.Put(ctx, "u1", record))

		actual, err := s.Get(ctx, "u1", "e1")
		require.NoError(t, err)
		assertEquivalentRecords(t, record, actual)

		records := waitForRecords(t, s, "u1", 1)
		assert.Equal(t, "Final", records[0].Title)
	})
}

func testIdempotentDelete(t *testing.T, s remote.Store) {
	t.Run("testIdempotentDelete", func(t *testing.T) {
		ctx := context.Background()

		require.NoError(t, s.Delete(ctx, "u1", "does-not-exist"))
		require.NoError(t, s.Delete(ctx, "never-seen-user", "e1"))
	})
}

func testPartitionIsolation(t *testing.T, s remote.Store) {
	t.Run("testPartitionIsolation", func(t *testing.T) {
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, "u1", newTestRecord("u1", "e1", "Mine")))

		_, err := s.Get(ctx, "u2", "e1")
		assert.Equal(t, remote.ErrEventNotFound, err)

		records := waitForRecords(t, s, "u2", 0)
		assert.Empty(t, records)
	})
}

func testNewEventId(t *testing.T, s remote.Store) {
	t.Run("testNewEventId", func(t *testing.T) {
		ctx := context.Background()

		seen := make(map[string]struct{})
		for i := 0; i < 10; i++ {
			id, err := s.NewEventId(ctx, "u1")
			require.NoError(t, err)
			require.NotEmpty(t, id)

			_, ok := seen[id]
			require.False(t, ok, "duplicate event id %s", id)
			seen[id] = struct{}{}
		}
	})
}

func testSubscription(t *testing.T, s remote.Store) {
	t.Run("testSubscription", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		require.NoError(t, s.Put(ctx, "u1", newTestRecord("u1", "e1", "A")))

		ch, err := s.Subscribe(ctx, "u1")
		require.NoError(t, err)

		requireNotification(t, ch, "e1")

		require.NoError(t, s.Put(ctx, "u1", newTestRecord("u1", "e2", "B")))
		requireNotification(t, ch, "e1", "e2")

		require.NoError(t, s.Delete(ctx, "u1", "e1"))
		requireNotification(t, ch, "e2")

		// Writes to other partitions are never delivered
		require.NoError(t, s.Put(ctx, "u2", newTestRecord("u2", "e3", "C")))
		require.NoError(t, s.Put(ctx, "u1", newTestRecord("u1", "e2", "B2")))
		n := requireNotificationMatching(t, ch, func(records []*event.Record) bool {
			return equalIds(records, []string{"e2"}) && records[0].Title == "B2"
		})
		assertEquivalentRecords(t, newTestRecord("u1", "e2", "B2"), n.Records[0])
	})
}

func testSubscriptionClosesOnContextCancel(t *testing.T, s remote.Store) {
	t.Run("testSubscriptionClosesOnContextCancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		ch, err := s.Subscribe(ctx, "u1")
		require.NoError(t, err)

		cancel()

		require.Eventually(t, func() bool {
			select {
			case _, ok := <-ch:
				return !ok
			default:
				return false
			}
		}, waitFor, 10*time.Millisecond)
	})
}

// requireNotification drains notifications until one carries exactly the
// expected event IDs, in order
func requireNotification(t *testing.T, ch <-chan remote.Notification, eventIds ...string) remote.Notification {
	return requireNotificationMatching(t, ch, func(records []*event.Record) bool {
		return equalIds(records, eventIds)
	})
}

func requireNotificationMatching(t *testing.T, ch <-chan remote.Notification, matches func([]*event.Record) bool) remote.Notification {
	var last remote.Notification

	timeout := time.After(waitFor)
	for {
		select {
		case n, ok := <-ch:
			require.True(t, ok, "subscription closed unexpectedly")
			require.NoError(t, n.Err)

			last = n
			if matches(n.Records) {
				return n
			}
		case <-timeout:
			require.FailNow(t, fmt.Sprintf("timed out waiting for notification, last one carried %v", idsOf(last.Records)))
		}
	}
}

func waitForRecords(t *testing.T, s remote.Store, userId string, count int) []*event.Record {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Subscribe(ctx, userId)
	require.NoError(t, err)

	timeout := time.After(waitFor)
	for {
		select {
		case n, ok := <-ch:
			require.True(t, ok)
			require.NoError(t, n.Err)
			if len(n.Records) == count {
				return n.Records
			}
		case <-timeout:
			require.FailNow(t, "timed out waiting for records")
		}
	}
}

func newTestRecord(userId, eventId, title string) *event.Record {
	return &event.Record{
		EventId:     eventId,
		UserId:      userId,
		Title:       title,
		Description: "description",
		Date:        "2024-01-01",
		Time:        "10:00",
		Location:    "Nairobi",
		Price:       100,
	}
}

func equalIds(records []*event.Record, eventIds []string) bool {
	if len(records) != len(eventIds) {
		return false
	}
	for i, record := range records {
		if record.EventId != eventIds[i] {
			return false
		}
	}
	return true
}

func idsOf(records []*event.Record) []string {
	res := make([]string, len(records))
	for i, record := range records {
		res[i] = record.EventId
	}
	return res
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *event.Record) {
	assert.Equal(t, obj1.EventId, obj2.EventId)
	assert.Equal(t, obj1.UserId, obj2.UserId)
	assert.Equal(t, obj1.Title, obj2.Title)
	assert.Equal(t, obj1.Description, obj2.Description)
	assert.Equal(t, obj1.Date, obj2.Date)
	assert.Equal(t, obj1.Time, obj2.Time)
	assert.Equal(t, obj1.Location, obj2.Location)
	assert.Equal(t, obj1.Price, obj2.Price)
}
