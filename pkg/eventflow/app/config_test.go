package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app_name: test-sync
log_level: debug
app:
  remote_backend: etcd
  etcd_endpoints:
    - localhost:2379
    - localhost:2380
  export_schedule: "*/5 * * * *"
`), 0600))

	t.Setenv("STATIC_USER_ID", "u1")
	t.Setenv("ETCD_DIAL_TIMEOUT", "2s")
	t.Setenv("TIMEZONE", "America/Toronto")

	config, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "test-sync", config.AppName)
	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, 30*time.Second, config.ShutdownGracePeriod)

	assert.Equal(t, RemoteBackendEtcd, config.AppConfig.RemoteBackend)
	assert.Equal(t, []string{"localhost:2379", "localhost:2380"}, config.AppConfig.EtcdEndpoints)
	assert.Equal(t, 2*time.Second, config.AppConfig.EtcdDialTimeout)
	assert.Equal(t, "*/5 * * * *", config.AppConfig.ExportSchedule)

	assert.Equal(t, IdentityProviderStatic, config.AppConfig.IdentityProvider)
	assert.Equal(t, "u1", config.AppConfig.StaticUserId)
	assert.Equal(t, "America/Toronto", config.AppConfig.Timezone)
	assert.Equal(t, "events.ics", config.AppConfig.ExportPath)
	assert.Equal(t, time.Second, config.AppConfig.ResyncBackoff)
}

func TestBallastSize(t *testing.T) {
	assert.EqualValues(t, 250, ballastSize(1000, 0.25))
	assert.EqualValues(t, 500, ballastSize(1000, 0.9))
	assert.EqualValues(t, 0, ballastSize(1000, -1))
}
