package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Stripe       StripeConfig
	Webhooks     WebhooksConfig
	Catalog      CatalogConfig
	Cron         CronConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Catalog.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CREATORHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"CREATORHUB_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CREATORHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CREATORHUB_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"CREATORHUB_LOG_FORMAT" default:"json"`
	// MetricsAddr is where the background workers expose /metrics. The API
	// serves metrics on its own port.
	MetricsAddr string `envconfig:"CREATORHUB_METRICS_ADDR" default:":9090"`

	CORSOrigins []string `envconfig:"CREATORHUB_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CREATORHUB_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CREATORHUB_DB_DSN"`
	Driver string `envconfig:"CREATORHUB_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"CREATORHUB_DB_HOST"`
	Port     int    `envconfig:"CREATORHUB_DB_PORT" default:"5432"`
	User     string `envconfig:"CREATORHUB_DB_USER"`
	Password string `envconfig:"CREATORHUB_DB_PASSWORD"`
	Name     string `envconfig:"CREATORHUB_DB_NAME"`
	SSLMode  string `envconfig:"CREATORHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CREATORHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CREATORHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CREATORHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CREATORHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// SlowQuery is the latency above which a statement is logged as a warning.
	SlowQuery time.Duration `envconfig:"CREATORHUB_DB_SLOW_QUERY" default:"500ms"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite one.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"CREATORHUB_REDIS_URL"`
	Address      string        `envconfig:"CREATORHUB_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"CREATORHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"CREATORHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CREATORHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CREATORHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CREATORHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CREATORHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CREATORHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"CREATORHUB_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"CREATORHUB_JWT_ISSUER" required:"true"`

	ExpirationMinutes int `envconfig:"CREATORHUB_JWT_EXPIRATION_MINUTES" default:"60"`
}

// RateLimitConfig throttles the anonymous-capable checkout surface.
type RateLimitConfig struct {
	CheckoutWindow     time.Duration `envconfig:"CREATORHUB_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutIPLimit    int           `envconfig:"CREATORHUB_RATE_LIMIT_CHECKOUT_IP_LIMIT" default:"20"`
	CheckoutEmailLimit int           `envconfig:"CREATORHUB_RATE_LIMIT_CHECKOUT_EMAIL_LIMIT" default:"5"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CREATORHUB_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CREATORHUB_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey     string `envconfig:"CREATORHUB_STRIPE_API_KEY"`
	Secret     string `envconfig:"CREATORHUB_STRIPE_SECRET"`
	Env        string `envconfig:"CREATORHUB_STRIPE_ENV" default:"test"`
	SuccessURL string `envconfig:"CREATORHUB_STRIPE_SUCCESS_URL" default:"http://localhost:3000/donations/success"`
	CancelURL  string `envconfig:"CREATORHUB_STRIPE_CANCEL_URL" default:"http://localhost:3000/donations/cancel"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type WebhooksConfig struct {
	IdempotencyTTL time.Duration `envconfig:"CREATORHUB_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

// CatalogConfig carries the recognized catalog options. The enumerations and
// lattices themselves live in pkg/enums; the accessors expose them here so
// callers read every catalog option from one place.
type CatalogConfig struct {
	DefaultCurrency string `envconfig:"CREATORHUB_DEFAULT_CURRENCY" default:"USD"`
}

func (c *CatalogConfig) normalize() error {
	currency := strings.ToUpper(strings.TrimSpace(c.DefaultCurrency))
	if currency == "" {
		currency = DefaultCurrency
	}
	if len(currency) != 3 {
		return fmt.Errorf("%s must be a three letter ISO-4217 code, got %q", EnvDefaultCurrency, c.DefaultCurrency)
	}
	c.DefaultCurrency = currency
	return nil
}

// PhotoCategories returns the accepted photo categories in declaration order.
func (CatalogConfig) PhotoCategories() []string {
	return enums.PhotoCategoryValues()
}

// ReleaseStatusFlow returns the owner-driven release status transitions.
func (CatalogConfig) ReleaseStatusFlow() map[enums.ReleaseStatus][]enums.ReleaseStatus {
	return enums.ReleaseStatusFlow()
}

// DonationStatusLattice returns the donation status transitions.
func (CatalogConfig) DonationStatusLattice() map[enums.DonationStatus][]enums.DonationStatus {
	return enums.DonationStatusLattice()
}

type CronConfig struct {
	Interval         time.Duration `envconfig:"CREATORHUB_CRON_INTERVAL" default:"1m"`
	ReleaseBatchSize int           `envconfig:"CREATORHUB_CRON_RELEASE_BATCH_SIZE" default:"100"`
	OutboxRetention  time.Duration `envconfig:"CREATORHUB_CRON_OUTBOX_RETENTION" default:"720h"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"CREATORHUB_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"CREATORHUB_GCP_CREDENTIALS_JSON"`
}

// PubSubConfig names the topics domain events are relayed to.
type PubSubConfig struct {
	DonationTopic string `envconfig:"CREATORHUB_PUBSUB_DONATION_TOPIC" default:"donation-events"`
	ReleaseTopic  string `envconfig:"CREATORHUB_PUBSUB_RELEASE_TOPIC" default:"release-events"`
}

type OutboxConfig struct {
	BatchSize    int           `envconfig:"CREATORHUB_OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"CREATORHUB_OUTBOX_POLL_INTERVAL" default:"500ms"`
	MaxAttempts  int           `envconfig:"CREATORHUB_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = DefaultSQLiteDSN
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
