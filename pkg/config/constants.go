package config

// EnvPrefix scopes every environment variable this service reads.
const EnvPrefix = "PRICING"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags (tests, error
// messages).
const (
	EnvAppEnv          = "PRICING_APP_ENV"
	EnvPort            = "PRICING_APP_PORT"
	EnvDBDSN           = "PRICING_DB_DSN"
	EnvDBHost          = "PRICING_DB_HOST"
	EnvDBUser          = "PRICING_DB_USER"
	EnvDBName          = "PRICING_DB_NAME"
	EnvRedisURL        = "PRICING_REDIS_URL"
	EnvRatesProvider   = "PRICING_RATES_PROVIDER_URL"
	EnvRatesBase       = "PRICING_RATES_BASE_CURRENCY"
	EnvRefreshInterval = "PRICING_RATES_REFRESH_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
