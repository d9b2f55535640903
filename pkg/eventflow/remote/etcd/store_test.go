package etcd

import (
	"context"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	v3 "go.etcd.io/etcd/client/v3"

	"github.com/code-payments/eventflow/pkg/etcdtest"
	"github.com/code-payments/eventflow/pkg/eventflow/event"
	"github.com/code-payments/eventflow/pkg/eventflow/remote/tests"
)

func TestEventEtcdStore(t *testing.T) {
	pool, err := dockertest.NewPool("")
	require.NoError(t, err)

	client, teardown, err := etcdtest.StartEtcd(pool)
	require.NoError(t, err)
	defer teardown()

	root := etcdtest.RandomRoot()
	testStore := New(client, root)
	reset := func() {
		_, err := client.Delete(context.Background(), root+"/", v3.WithPrefix())
		require.NoError(t, err)
	}
	tests.RunTests(t, testStore, reset)
}

func TestInvalidKeys(t *testing.T) {
	s := New(nil, "")
	ctx := context.Background()

	_, err := s.Subscribe(ctx, "")
	assert.Error(t, err)

	_, err = s.Get(ctx, "u1", "a/b")
	assert.Error(t, err)

	assert.Error(t, s.Put(ctx, "u1", &event.Record{}))
	assert.Error(t, s.Delete(ctx, "u/1", "e1"))

	_, err = s.NewEventId(ctx, "")
	assert.Error(t, err)
}
