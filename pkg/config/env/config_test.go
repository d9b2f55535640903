package env

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/code-payments/eventflow/pkg/config"
)

func TestConfig(t *testing.T) {
	const env = "ENV_CONFIG_TEST_VAR"
	t.Setenv(env, "default")

	v, err := NewConfig(env).Get(context.Background())
	assert.Equal(t, []byte("default"), v)
	assert.Nil(t, err)

	t.Setenv(env, "  padded\n")

	v, err = NewConfig(env).Get(context.Background())
	assert.Equal(t, []byte("padded"), v)
	assert.Nil(t, err)

	for _, value := range []string{"", "   "} {
		t.Setenv(env, value)

		v, err = NewConfig(env).Get(context.Background())
		assert.Nil(t, v)
		assert.Equal(t, config.ErrNoValue, err)
	}
}

func TestTypedConfigs(t *testing.T) {
	ctx := context.Background()

	t.Setenv("ENV_CONFIG_TEST_DURATION", "250ms")
	t.Setenv("ENV_CONFIG_TEST_UINT", "7")

	assert.Equal(t, 250*time.Millisecond, NewDurationConfig("env_config_test_duration", time.Second).Get(ctx))
	assert.EqualValues(t, 7, NewUint64Config("ENV_CONFIG_TEST_UINT", 1).Get(ctx))
	assert.Equal(t, "fallback", NewStringConfig("ENV_CONFIG_TEST_MISSING", "fallback").Get(ctx))
	assert.True(t, NewBoolConfig("ENV_CONFIG_TEST_MISSING", true).Get(ctx))
}
