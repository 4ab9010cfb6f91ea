package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the envconfig prefix shared by every binary.
const EnvPrefix = "sazonpos"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Cart         CartConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	GCS          GCSConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Square       SquareConfig
	Outbox       OutboxConfig
	Cron         CronConfig

	AuthRateLimit AuthRateLimitConfig
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"SAZONPOS_AUTH_RATELIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit    int           `envconfig:"SAZONPOS_AUTH_RATELIMIT_LOGIN_IP_LIMIT" default:"20"`
	LoginEmailLimit int           `envconfig:"SAZONPOS_AUTH_RATELIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SAZONPOS_APP_ENV" required:"true"`
	Port         string `envconfig:"SAZONPOS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SAZONPOS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SAZONPOS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SAZONPOS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SAZONPOS_DB_DSN" required:"true"`
	Driver string `envconfig:"SAZONPOS_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"SAZONPOS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SAZONPOS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SAZONPOS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SAZONPOS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SAZONPOS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SAZONPOS_REDIS_ADDR"`
	Password     string        `envconfig:"SAZONPOS_REDIS_PASSWORD"`
	DB           int           `envconfig:"SAZONPOS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SAZONPOS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SAZONPOS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SAZONPOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SAZONPOS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SAZONPOS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SAZONPOS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SAZONPOS_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SAZONPOS_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"SAZONPOS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SAZONPOS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SAZONPOS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SAZONPOS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SAZONPOS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SAZONPOS_ARGON_KEY_LEN" default:"32"`
}

type CartConfig struct {
	// FlushDelay is the debounce window between a cart mutation and the
	// write-back of the cart snapshot to Redis.
	FlushDelay time.Duration `envconfig:"SAZONPOS_CART_FLUSH_DELAY" default:"500ms"`
	// SnapshotTTL bounds how long an abandoned terminal cart survives.
	SnapshotTTL time.Duration `envconfig:"SAZONPOS_CART_SNAPSHOT_TTL" default:"72h"`
	// ExactMatchLookups switches Contains/Quantity to timestamp-free
	// configuration identity. Off reproduces the legacy always-miss lookups.
	ExactMatchLookups bool `envconfig:"SAZONPOS_CART_EXACT_MATCH_LOOKUPS" default:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SAZONPOS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SAZONPOS_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"SAZONPOS_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SAZONPOS_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SAZONPOS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SAZONPOS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"SAZONPOS_GCS_BUCKET_NAME" required:"true"`
	UploadURLExpiry   time.Duration `envconfig:"SAZONPOS_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
	DownloadURLExpiry time.Duration `envconfig:"SAZONPOS_GCS_DOWNLOAD_URL_EXPIRY" default:"1h"`
}

type PubSubConfig struct {
	OrdersTopic          string `envconfig:"SAZONPOS_PUBSUB_ORDERS_TOPIC" required:"true"`
	MessagesSubscription string `envconfig:"SAZONPOS_PUBSUB_MESSAGES_SUBSCRIPTION" required:"true"`
	ReportsSubscription  string `envconfig:"SAZONPOS_PUBSUB_REPORTS_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset         string `envconfig:"SAZONPOS_BIGQUERY_DATASET" default:"sazonpos"`
	SalesFactsTable string `envconfig:"SAZONPOS_BIGQUERY_SALES_TABLE" default:"sales_facts"`
}

type SquareConfig struct {
	AccessToken   string `envconfig:"SAZONPOS_SQUARE_ACCESS_TOKEN"`
	WebhookSecret string `envconfig:"SAZONPOS_SQUARE_WEBHOOK_SECRET"`
	LocationID    string `envconfig:"SAZONPOS_SQUARE_LOCATION_ID"`
	Env           string `envconfig:"SAZONPOS_SQUARE_ENV" default:"sandbox"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SAZONPOS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SAZONPOS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SAZONPOS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	// StaleOrderTTL is how long an order may stay open before the expiry
	// job cancels it.
	StaleOrderTTL time.Duration `envconfig:"SAZONPOS_CRON_STALE_ORDER_TTL" default:"12h"`
	// MessageRetention is how long read messages are kept before cleanup.
	MessageRetention time.Duration `envconfig:"SAZONPOS_CRON_MESSAGE_RETENTION" default:"720h"`
	// Interval is the pause between scheduler passes.
	Interval time.Duration `envconfig:"SAZONPOS_CRON_INTERVAL" default:"1m"`
}
