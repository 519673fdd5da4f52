package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "GATHERLY_DB_DSN"
	EnvDBHost = "GATHERLY_DB_HOST"
	EnvDBUser = "GATHERLY_DB_USER"
	EnvDBName = "GATHERLY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	HMS          HMSConfig
	Slack        SlackConfig
	Linear       LinearConfig
	Webhooks     WebhooksConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GATHERLY_APP_ENV" required:"true"`
	Port         string `envconfig:"GATHERLY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GATHERLY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GATHERLY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GATHERLY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GATHERLY_DB_DSN"`
	Driver string `envconfig:"GATHERLY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GATHERLY_DB_HOST"`
	LegacyPort     int    `envconfig:"GATHERLY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GATHERLY_DB_USER"`
	LegacyPassword string `envconfig:"GATHERLY_DB_PASSWORD"`
	LegacyName     string `envconfig:"GATHERLY_DB_NAME"`
	LegacySSLMode  string `envconfig:"GATHERLY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GATHERLY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GATHERLY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GATHERLY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GATHERLY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GATHERLY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GATHERLY_REDIS_ADDR"`
	Password     string        `envconfig:"GATHERLY_REDIS_PASSWORD"`
	DB           int           `envconfig:"GATHERLY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GATHERLY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GATHERLY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GATHERLY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GATHERLY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GATHERLY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GATHERLY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GATHERLY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"GATHERLY_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the configured access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GATHERLY_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"GATHERLY_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"GATHERLY_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"GATHERLY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GATHERLY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EventsTopic            string `envconfig:"GATHERLY_PUBSUB_EVENTS_TOPIC" required:"true"`
	CallsSubscription      string `envconfig:"GATHERLY_PUBSUB_CALLS_SUBSCRIPTION" required:"true"`
	SlackSubscription      string `envconfig:"GATHERLY_PUBSUB_SLACK_SUBSCRIPTION" required:"true"`
	LinearSubscription     string `envconfig:"GATHERLY_PUBSUB_LINEAR_SUBSCRIPTION" required:"true"`
	DeliveriesTopic        string `envconfig:"GATHERLY_PUBSUB_DELIVERIES_TOPIC" required:"true"`
	DeliveriesSubscription string `envconfig:"GATHERLY_PUBSUB_DELIVERIES_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"GATHERLY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"GATHERLY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"GATHERLY_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"GATHERLY_OUTBOX_RETENTION_DAYS" default:"14"`
}

type HMSConfig struct {
	Passcode string `envconfig:"GATHERLY_HMS_WEBHOOK_PASSCODE"`
}

type SlackConfig struct {
	SigningSecret    string        `envconfig:"GATHERLY_SLACK_SIGNING_SECRET"`
	DevSigningSecret string        `envconfig:"GATHERLY_SLACK_DEV_SIGNING_SECRET"`
	MaxTimestampAge  time.Duration `envconfig:"GATHERLY_SLACK_MAX_TIMESTAMP_AGE" default:"5m"`
}

type LinearConfig struct {
	WebhookSecret   string        `envconfig:"GATHERLY_LINEAR_WEBHOOK_SECRET"`
	APIToken        string        `envconfig:"GATHERLY_LINEAR_API_TOKEN"`
	APIURL          string        `envconfig:"GATHERLY_LINEAR_API_URL" default:"https://api.linear.app/graphql"`
	MaxTimestampAge time.Duration `envconfig:"GATHERLY_LINEAR_MAX_TIMESTAMP_AGE" default:"1m"`
	SyncDebounce    time.Duration `envconfig:"GATHERLY_LINEAR_SYNC_DEBOUNCE" default:"10m"`
	SyncPageSize    int           `envconfig:"GATHERLY_LINEAR_SYNC_PAGE_SIZE" default:"50"`
}

type WebhooksConfig struct {
	DeliveryTimeout     time.Duration `envconfig:"GATHERLY_WEBHOOK_DELIVERY_TIMEOUT" default:"5s"`
	MaxDeliveryAttempts int           `envconfig:"GATHERLY_WEBHOOK_MAX_DELIVERY_ATTEMPTS" default:"10"`
	RetentionDays       int           `envconfig:"GATHERLY_WEBHOOK_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"GATHERLY_CRON_INTERVAL" default:"5m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
