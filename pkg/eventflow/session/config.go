package session

import (
	"time"

	"github.com/code-payments/eventflow/pkg/config"
	"github.com/code-payments/eventflow/pkg/config/env"
	"github.com/code-payments/eventflow/pkg/config/memory"
	"github.com/code-payments/eventflow/pkg/config/wrapper"
)

const (
	envConfigPrefix = "SESSION_CACHE_"

	LookupTimeoutConfigEnvName = envConfigPrefix + "LOOKUP_TIMEOUT"
	defaultLookupTimeout       = 10 * time.Second

	// Remote lookups per second per user, zero disables the limit
	LookupRateLimitConfigEnvName = envConfigPrefix + "LOOKUP_RATE_LIMIT"
	defaultLookupRateLimit       = 0
)

type conf struct {
	lookupTimeout   config.Duration
	lookupRateLimit config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			lookupTimeout:   env.NewDurationConfig(LookupTimeoutConfigEnvName, defaultLookupTimeout),
			lookupRateLimit: env.NewUint64Config(LookupRateLimitConfigEnvName, defaultLookupRateLimit),
		}
	}
}

type testOverrides struct {
	lookupTimeout   time.Duration
	lookupRateLimit uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			lookupTimeout:   wrapper.NewDurationConfig(memory.NewConfig(overrides.lookupTimeout), defaultLookupTimeout),
			lookupRateLimit: wrapper.NewUint64Config(memory.NewConfig(overrides.lookupRateLimit), defaultLookupRateLimit),
		}
	}
}
