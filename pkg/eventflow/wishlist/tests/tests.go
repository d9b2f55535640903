package tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/eventflow/pkg/eventflow/event"
	"github.com/code-payments/eventflow/pkg/eventflow/wishlist"
)

func RunTests(t *testing.T, s wishlist.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s wishlist.Store){
		testAddAndContains,
		testNoDedup,
		testRemove,
		testEntriesAreCopies,
	} {
		tf(t, s)
		teardown()
	}
}

func testAddAndContains(t *testing.T, s wishlist.Store) {
	t.Run("testAddAndContains", func(t *testing.T) {
		ctx := context.Background()

		listed, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, listed)

		ok, err := s.Contains(ctx, "e1")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.Add(ctx, &event.Record{EventId: "e1", Title: "A"}))
		require.NoError(t, s.Add(ctx, &event.Record{EventId: "e2", Title: "B"}))

		ok, err = s.Contains(ctx, "e1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Contains(ctx, "e3")
		require.NoError(t, err)
		assert.False(t, ok)

		listed, err = s.List(ctx)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.Equal(t, "e1", listed[0].EventId)
		assert.Equal(t, "e2", listed[1].EventId)
	})
}

func testNoDedup(t *testing.T, s wishlist.Store) {
	t.Run("testNoDedup", func(t *testing.T) {
		ctx := context.Background()

		record := &event.Record{EventId: "e1", Title: "A"}
		require.NoError(t, s.Add(ctx, record))
		require.NoError(t, s.Add(ctx, record))

		listed, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, listed, 2)
	})
}

func testRemove(t *testing.T, s wishlist.Store) {
	t.Run("testRemove", func(t *testing.T) {
		ctx := context.Background()

		require.NoError(t, s.Remove(ctx, "e1"))

		require.NoError(t, s.Add(ctx, &event.Record{EventId: "e1"}))
		require.NoError(t, s.Add(ctx, &event.Record{EventId: "e2"}))
		require.NoError(t, s.Add(ctx, &event.Record{EventId: "e1"}))

		require.NoError(t, s.Remove(ctx, "e1"))

		ok, err := s.Contains(ctx, "e1")
		require.NoError(t, err)
		assert.False(t, ok)

		listed, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, "e2", listed[0].EventId)

		require.NoError(t, s.Remove(ctx, "e1"))
		require.NoError(t, s.Remove(ctx, "e2"))

		listed, err = s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, listed)
	})
}

func testEntriesAreCopies(t *testing.T, s wishlist.Store) {
	t.Run("testEntriesAreCopies", func(t *testing.T) {
		ctx := context.Background()

		record := &event.Record{EventId: "e1", Title: "A"}
		require.NoError(t, s.Add(ctx, record))
		record.Title = "mutated"

		listed, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, "A", listed[0].Title)

		listed[0].Title = "mutated"

		listed, err = s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, "A", listed[0].Title)
	})
}
