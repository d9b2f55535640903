package app

import (
	"time"

	"github.com/spf13/viper"
)

const (
	RemoteBackendMemory   = "memory"
	RemoteBackendFirebase = "firebase"
	RemoteBackendEtcd     = "etcd"

	IdentityProviderStatic   = "static"
	IdentityProviderFirebase = "firebase"
	IdentityProviderJWT      = "jwt"
)

// Config is the sync specific configuration, under the app key
type Config struct {
	RemoteBackend string `mapstructure:"remote_backend"`

	// RemoteRoot is the path under which every user partition lives
	RemoteRoot string `mapstructure:"remote_root"`

	FirebaseProjectId   string `mapstructure:"firebase_project_id"`
	FirebaseDatabaseURL string `mapstructure:"firebase_database_url"`

	// FirebaseCredentials is an optional URL to a service account JSON file.
	// Application default credentials are used when unset.
	FirebaseCredentials string `mapstructure:"firebase_credentials"`

	EtcdEndpoints   []string      `mapstructure:"etcd_endpoints"`
	EtcdDialTimeout time.Duration `mapstructure:"etcd_dial_timeout"`

	IdentityProvider string `mapstructure:"identity_provider"`

	// StaticUserId is the active user for the static identity provider
	StaticUserId string `mapstructure:"static_user_id"`

	// SessionToken is a Firebase ID token, or a session JWT, depending on the
	// identity provider
	SessionToken string `mapstructure:"session_token"`

	// SessionPublicKey is the base58 encoded Ed25519 key session JWTs are
	// verified against
	SessionPublicKey string `mapstructure:"session_public_key"`

	// Timezone event dates and times are interpreted in
	Timezone string `mapstructure:"timezone"`

	// ExportSchedule is a cron spec for writing the synced events to
	// ExportPath as an iCalendar file. Export is disabled when unset.
	ExportSchedule string `mapstructure:"export_schedule"`
	ExportPath     string `mapstructure:"export_path"`

	// ResyncBackoff is the base delay before re-subscribing after the
	// subscription was cancelled
	ResyncBackoff    time.Duration `mapstructure:"resync_backoff"`
	ResyncMaxBackoff time.Duration `mapstructure:"resync_max_backoff"`
}

// BaseConfig contains the base configuration for the process, as well as the
// application itself.
type BaseConfig struct {
	LogLevel string `mapstructure:"log_level"`

	AppName string `mapstructure:"app_name"`

	DebugListenAddress string `mapstructure:"debug_listen_address"`

	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`

	EnablePprof  bool `mapstructure:"enable_pprof"`
	EnableExpvar bool `mapstructure:"enable_expvar"`

	// Ballast for improving Go GC performance. Note that capacity will be
	// limited to 50% of the total memory.
	EnableBallast   bool    `mapstructure:"enable_ballast"`
	BallastCapacity float32 `mapstructure:"ballast_capacity"`

	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`

	AppConfig Config `mapstructure:"app"`
}

var defaultConfig = BaseConfig{
	LogLevel: "info",

	AppName: "eventflow-sync",

	DebugListenAddress: "localhost:8123",

	ShutdownGracePeriod: 30 * time.Second,

	EnablePprof:  false,
	EnableExpvar: false,

	EnableBallast:   false,
	BallastCapacity: 0.1,

	AppConfig: Config{
		RemoteBackend:    RemoteBackendMemory,
		IdentityProvider: IdentityProviderStatic,

		EtcdDialTimeout: 5 * time.Second,

		Timezone: "UTC",

		ExportPath: "events.ics",

		ResyncBackoff:    time.Second,
		ResyncMaxBackoff: time.Minute,
	},
}

func init() {
	_ = viper.BindEnv("log_level", "LOG_LEVEL")

	_ = viper.BindEnv("app_name", "APP_NAME")

	_ = viper.BindEnv("debug_listen_address", "DEBUG_LISTEN_ADDRESS")

	_ = viper.BindEnv("shutdown_grace_period", "SHUTDOWN_GRACE_PERIOD")

	_ = viper.BindEnv("enable_pprof", "ENABLE_PPROF")
	_ = viper.BindEnv("enable_expvar", "ENABLE_EXPVAR")

	_ = viper.BindEnv("enable_ballast", "ENABLE_BALLAST")
	_ = viper.BindEnv("ballast_capacity", "BALLAST_CAPACITY")

	_ = viper.BindEnv("new_relic_license_key", "NEW_RELIC_LICENSE_KEY")

	_ = viper.BindEnv("app.remote_backend", "REMOTE_BACKEND")
	_ = viper.BindEnv("app.remote_root", "REMOTE_ROOT")

	_ = viper.BindEnv("app.firebase_project_id", "FIREBASE_PROJECT_ID")
	_ = viper.BindEnv("app.firebase_database_url", "FIREBASE_DATABASE_URL")
	_ = viper.BindEnv("app.firebase_credentials", "FIREBASE_CREDENTIALS")

	_ = viper.BindEnv("app.etcd_endpoints", "ETCD_ENDPOINTS")
	_ = viper.BindEnv("app.etcd_dial_timeout", "ETCD_DIAL_TIMEOUT")

	_ = viper.BindEnv("app.identity_provider", "IDENTITY_PROVIDER")
	_ = viper.BindEnv("app.static_user_id", "STATIC_USER_ID")
	_ = viper.BindEnv("app.session_token", "SESSION_TOKEN")
	_ = viper.BindEnv("app.session_public_key", "SESSION_PUBLIC_KEY")

	_ = viper.BindEnv("app.timezone", "TIMEZONE")

	_ = viper.BindEnv("app.export_schedule", "EXPORT_SCHEDULE")
	_ = viper.BindEnv("app.export_path", "EXPORT_PATH")

	_ = viper.BindEnv("app.resync_backoff", "RESYNC_BACKOFF")
	_ = viper.BindEnv("app.resync_max_backoff", "RESYNC_MAX_BACKOFF")
}
