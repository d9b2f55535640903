package wrapper

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/eventflow/pkg/config"
	"github.com/code-payments/eventflow/pkg/config/memory"
)

type wrapperTestCase[T any] struct {
	defaultValue T
	override     T

	// raw source values and what they convert to
	convertible map[string]T
	invalid     []string
	unsupported interface{}
}

func runWrapperTests[T any](t *testing.T, tc wrapperTestCase[T], newWrapper func(config.Config, T) config.Typed[T]) {
	ctx := context.Background()
	source := memory.NewConfig(nil)
	typed := newWrapper(source, tc.defaultValue)

	assertValue := func(expected T, expectErr bool) {
		t.Helper()

		val, err := typed.GetSafe(ctx)
		if expectErr {
			require.Error(t, err)
		} else {
			require.NoError(t, err)
		}
		assert.Equal(t, expected, val)
		assert.Equal(t, expected, typed.Get(ctx))
	}

	// Unset sources fall back to the default
	assertValue(tc.defaultValue, false)

	source.Set(tc.override)
	assertValue(tc.override, false)

	// Source failures keep serving the last value
	source.FailWith(errors.New("unavailable"))
	assertValue(tc.override, true)
	source.FailWith(nil)

	source.Unset()
	assertValue(tc.defaultValue, false)

	for raw, expected := range tc.convertible {
		source.Set([]byte(raw))
		assertValue(expected, false)
	}

	source.Set(tc.override)
	assertValue(tc.override, false)
	for _, raw := range tc.invalid {
		source.Set([]byte(raw))
		assertValue(tc.override, true)
	}

	source.Set(tc.unsupported)
	_, err := typed.GetSafe(ctx)
	assert.Equal(t, ErrUnsuportedConversion, err)

	typed.Shutdown()
	_, err = typed.GetSafe(ctx)
	assert.Equal(t, config.ErrShutdown, err)
}

func TestBoolConfig(t *testing.T) {
	runWrapperTests(t, wrapperTestCase[bool]{
		defaultValue: true,
		override:     false,
		convertible: map[string]bool{
			"true":  true,
			"0":     false,
			"FALSE": false,
		},
		invalid:     []string{"cannot convert", "yes"},
		unsupported: "not supported",
	}, NewBoolConfig)
}

func TestInt64Config(t *testing.T) {
	runWrapperTests(t, wrapperTestCase[int64]{
		defaultValue: math.MaxInt64,
		override:     math.MinInt64,
		convertible: map[string]int64{
			"9223372036854775807":  math.MaxInt64,
			"-9223372036854775808": math.MinInt64,
			"0":                    0,
		},
		invalid:     []string{"cannot convert", "9223372036854775808", "1.5"},
		unsupported: uint64(1),
	}, NewInt64Config)
}

func TestInt64Config_AcceptsInt(t *testing.T) {
	typed := NewInt64Config(memory.NewConfig(42), 0)
	assert.EqualValues(t, 42, typed.Get(context.Background()))
}

func TestUint64Config(t *testing.T) {
	runWrapperTests(t, wrapperTestCase[uint64]{
		defaultValue: math.MaxUint64,
		override:     0,
		convertible: map[string]uint64{
			"18446744073709551615": math.MaxUint64,
			"7":                    7,
		},
		invalid:     []string{"cannot convert", "-1", "18446744073709551616"},
		unsupported: int64(1),
	}, NewUint64Config)
}

func TestUint64Config_AcceptsUint(t *testing.T) {
	typed := NewUint64Config(memory.NewConfig(uint(42)), 0)
	assert.EqualValues(t, 42, typed.Get(context.Background()))
}

func TestStringConfig(t *testing.T) {
	runWrapperTests(t, wrapperTestCase[string]{
		defaultValue: "default",
		override:     "override",
		convertible: map[string]string{
			"Events":  "Events",
			"a b c ∆": "a b c ∆",
		},
		unsupported: 1,
	}, NewStringConfig)
}

func TestDurationConfig(t *testing.T) {
	runWrapperTests(t, wrapperTestCase[time.Duration]{
		defaultValue: 10 * time.Second,
		override:     250 * time.Millisecond,
		convertible: map[string]time.Duration{
			"1m30s": 90 * time.Second,
			"0s":    0,
		},
		invalid:     []string{"cannot convert", "10"},
		unsupported: int64(10),
	}, NewDurationConfig)
}
