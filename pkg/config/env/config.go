// Package env provides configs sourced from environment variables.
package env

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/code-payments/eventflow/pkg/config"
	"github.com/code-payments/eventflow/pkg/config/wrapper"
)

// variable is a config.Config over a single environment variable. The value
// is captured when the config is created; later changes to the process
// environment are not observed.
type variable struct {
	raw []byte
}

// NewConfig returns a config.Config yielding the raw bytes of the variable
// named key. Keys are upper cased, and empty or whitespace-only values count
// as unset.
func NewConfig(key string) config.Config {
	v := &variable{}
	if value, ok := os.LookupEnv(strings.ToUpper(key)); ok && len(strings.TrimSpace(value)) > 0 {
		v.raw = []byte(strings.TrimSpace(value))
	}
	return v
}

// Get implements config.Config.Get
func (v *variable) Get(_ context.Context) (interface{}, error) {
	if v.raw == nil {
		return nil, config.ErrNoValue
	}
	return v.raw, nil
}

// Shutdown implements config.Config.Shutdown
func (v *variable) Shutdown() {}

func NewInt64Config(key string, defaultValue int64) config.Int64 {
	return wrapper.NewInt64Config(NewConfig(key), defaultValue)
}

func NewUint64Config(key string, defaultValue uint64) config.Uint64 {
	return wrapper.NewUint64Config(NewConfig(key), defaultValue)
}

func NewStringConfig(key string, defaultValue string) config.String {
	return wrapper.NewStringConfig(NewConfig(key), defaultValue)
}

func NewBoolConfig(key string, defaultValue bool) config.Bool {
	return wrapper.NewBoolConfig(NewConfig(key), defaultValue)
}

func NewDurationConfig(key string, defaultValue time.Duration) config.Duration {
	return wrapper.NewDurationConfig(NewConfig(key), defaultValue)
}
