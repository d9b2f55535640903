package firebase

import (
	"time"

	"github.com/code-payments/eventflow/pkg/config"
	"github.com/code-payments/eventflow/pkg/config/env"
	"github.com/code-payments/eventflow/pkg/config/memory"
	"github.com/code-payments/eventflow/pkg/config/wrapper"
)

const (
	envConfigPrefix = "FIREBASE_EVENT_STORE_"

	PollIntervalConfigEnvName = envConfigPrefix + "POLL_INTERVAL"
	defaultPollInterval       = time.Second

	MaxAttemptsConfigEnvName = envConfigPrefix + "MAX_ATTEMPTS"
	defaultMaxAttempts       = 3
)

type conf struct {
	pollInterval config.Duration
	maxAttempts  config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			pollInterval: env.NewDurationConfig(PollIntervalConfigEnvName, defaultPollInterval),
			maxAttempts:  env.NewUint64Config(MaxAttemptsConfigEnvName, defaultMaxAttempts),
		}
	}
}

type testOverrides struct {
	pollInterval time.Duration
	maxAttempts  uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			pollInterval: wrapper.NewDurationConfig(memory.NewConfig(overrides.pollInterval), defaultPollInterval),
			maxAttempts:  wrapper.NewUint64Config(memory.NewConfig(overrides.maxAttempts), defaultMaxAttempts),
		}
	}
}
