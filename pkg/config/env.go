package config

const (
	// EnvPrefix is empty because every field names its full variable.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres   = "postgres"
	DriverSQLite     = "sqlite"
	DefaultSQLiteDSN = "file:creatorhub.db?cache=shared"

	DefaultCurrency = "USD"
)

const (
	EnvAppEnv          = "CREATORHUB_APP_ENV"
	EnvPort            = "CREATORHUB_APP_PORT"
	EnvDBDSN           = "CREATORHUB_DB_DSN"
	EnvDBHost          = "CREATORHUB_DB_HOST"
	EnvDBUser          = "CREATORHUB_DB_USER"
	EnvDBName          = "CREATORHUB_DB_NAME"
	EnvRedisURL        = "CREATORHUB_REDIS_URL"
	EnvJWTSecret       = "CREATORHUB_JWT_SECRET"
	EnvJWTIssuer       = "CREATORHUB_JWT_ISSUER"
	EnvUseSQLite       = "CREATORHUB_USE_SQLITE"
	EnvDefaultCurrency = "CREATORHUB_DEFAULT_CURRENCY"
	EnvStripeSecret    = "CREATORHUB_STRIPE_SECRET"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
