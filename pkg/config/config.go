package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "cartdash"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "CARTDASH_DB_DSN"
	EnvDBHost = "CARTDASH_DB_HOST"
	EnvDBUser = "CARTDASH_DB_USER"
	EnvDBName = "CARTDASH_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Dispatch     DispatchConfig
	RateLimit    RateLimitConfig
	Outbox       OutboxConfig
	PubSub       PubSubConfig
	GCP          GCPConfig
	Worker       WorkerConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"CARTDASH_APP_ENV" required:"true"`
	Port         string `envconfig:"CARTDASH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CARTDASH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CARTDASH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CARTDASH_DB_DSN"`
	Driver string `envconfig:"CARTDASH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CARTDASH_DB_HOST"`
	LegacyPort     int    `envconfig:"CARTDASH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CARTDASH_DB_USER"`
	LegacyPassword string `envconfig:"CARTDASH_DB_PASSWORD"`
	LegacyName     string `envconfig:"CARTDASH_DB_NAME"`
	LegacySSLMode  string `envconfig:"CARTDASH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CARTDASH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CARTDASH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CARTDASH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARTDASH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CARTDASH_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CARTDASH_REDIS_ADDR"`
	Password     string        `envconfig:"CARTDASH_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARTDASH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARTDASH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARTDASH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARTDASH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARTDASH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARTDASH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// DispatchConfig tunes the assignment coordinator.
type DispatchConfig struct {
	// OfferTTL bounds how long a partner can sit on an offered assignment
	// before the sweeper expires it.
	OfferTTL time.Duration `envconfig:"CARTDASH_DISPATCH_OFFER_TTL" default:"10m"`
	// LockWait bounds how long an operation waits for the per-order lock.
	LockWait time.Duration `envconfig:"CARTDASH_DISPATCH_LOCK_WAIT" default:"5s"`
	// StoreTimeout bounds each order store / partner registry call.
	StoreTimeout time.Duration `envconfig:"CARTDASH_DISPATCH_STORE_TIMEOUT" default:"3s"`
}

// RateLimitConfig throttles the dispatch mutation endpoints.
type RateLimitConfig struct {
	Window     time.Duration `envconfig:"CARTDASH_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit    int           `envconfig:"CARTDASH_RATE_LIMIT_IP" default:"240"`
	ActorLimit int           `envconfig:"CARTDASH_RATE_LIMIT_ACTOR" default:"60"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CARTDASH_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CARTDASH_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CARTDASH_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type PubSubConfig struct {
	DeliveryTopic        string `envconfig:"CARTDASH_PUBSUB_DELIVERY_TOPIC" default:"cd-delivery-events"`
	DeliverySubscription string `envconfig:"CARTDASH_PUBSUB_DELIVERY_SUBSCRIPTION"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CARTDASH_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"CARTDASH_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CARTDASH_GOOGLE_APPLICATION_CREDENTIALS"`
}

type WorkerConfig struct {
	CronInterval time.Duration `envconfig:"CARTDASH_WORKER_CRON_INTERVAL" default:"1m"`
	CronLockTTL  time.Duration `envconfig:"CARTDASH_WORKER_CRON_LOCK_TTL" default:"5m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CARTDASH_AUTO_MIGRATE" default:"false"`
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
