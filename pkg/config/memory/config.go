package memory

import (
	"context"
	"sync"

	"github.com/code-payments/eventflow/pkg/config"
)

// Config is an in memory config.Config whose value can be changed at any
// time. It's used to override configuration in tests.
type Config struct {
	mu       sync.RWMutex
	value    interface{}
	err      error
	shutdown bool
}

// NewConfig returns a new in memory config. A nil value means no value is set.
func NewConfig(value interface{}) *Config {
	return &Config{
		value: value,
	}
}

// Get implements Config.Get
func (c *Config) Get(_ context.Context) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case c.shutdown:
		return nil, config.ErrShutdown
	case c.err != nil:
		return nil, c.err
	case c.value == nil:
		return nil, config.ErrNoValue
	default:
		return c.value, nil
	}
}

// Shutdown implements Config.Shutdown
func (c *Config) Shutdown() {
	c.mu.Lock()
	c.shutdown = true
	c.mu.Unlock()
}

// Set changes the value returned by subsequent Get calls. Setting nil is the
// same as Unset.
func (c *Config) Set(value interface{}) {
	c.mu.Lock()
	c.value = value
	c.mu.Unlock()
}

// Unset makes subsequent Get calls return config.ErrNoValue
func (c *Config) Unset() {
	c.Set(nil)
}

// FailWith makes subsequent Get calls return err until it is called again
// with nil
func (c *Config) FailWith(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}
