package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/eventflow/pkg/config"
	"github.com/code-payments/eventflow/pkg/config/wrapper"
)

func TestConfig(t *testing.T) {
	ctx := context.Background()

	c := NewConfig(nil)
	_, err := c.Get(ctx)
	assert.Equal(t, config.ErrNoValue, err)

	c.Set("value")
	val, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "value", val)

	c.Unset()
	_, err = c.Get(ctx)
	assert.Equal(t, config.ErrNoValue, err)

	errUnavailable := errors.New("unavailable")
	c.FailWith(errUnavailable)
	_, err = c.Get(ctx)
	assert.Equal(t, errUnavailable, err)

	c.FailWith(nil)
	_, err = c.Get(ctx)
	assert.Equal(t, config.ErrNoValue, err)

	c.Shutdown()
	_, err = c.Get(ctx)
	assert.Equal(t, config.ErrShutdown, err)
}

func TestConfig_ChangesFlowThroughWrapper(t *testing.T) {
	ctx := context.Background()

	c := NewConfig(time.Second)
	typed := wrapper.NewDurationConfig(c, time.Minute)
	assert.Equal(t, time.Second, typed.Get(ctx))

	c.Set(2 * time.Second)
	assert.Equal(t, 2*time.Second, typed.Get(ctx))

	// The last known value survives failures
	c.FailWith(errors.New("unavailable"))
	assert.Equal(t, 2*time.Second, typed.Get(ctx))

	c.FailWith(nil)
	c.Unset()
	assert.Equal(t, time.Minute, typed.Get(ctx))
}
