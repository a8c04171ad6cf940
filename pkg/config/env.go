package config

// EnvPrefix scopes every environment variable the service reads.
const EnvPrefix = "STOCKLANE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	ProductCheckModeOpen   = "open"
	ProductCheckModeClosed = "closed"
)

const (
	EnvAppEnv   = "STOCKLANE_APP_ENV"
	EnvPort     = "STOCKLANE_APP_PORT"
	EnvLogLevel = "STOCKLANE_LOG_LEVEL"

	EnvDBDSN  = "STOCKLANE_DB_DSN"
	EnvDBHost = "STOCKLANE_DB_HOST"
	EnvDBUser = "STOCKLANE_DB_USER"
	EnvDBName = "STOCKLANE_DB_NAME"

	EnvRedisURL = "STOCKLANE_REDIS_URL"

	EnvJWTSecret  = "STOCKLANE_JWT_SECRET"
	EnvJWTIssuer  = "STOCKLANE_JWT_ISSUER"
	EnvJWTExpMins = "STOCKLANE_JWT_EXPIRATION_MINUTES"

	EnvProductServiceURL = "STOCKLANE_PRODUCT_SERVICE_URL"
	EnvShopServiceURL    = "STOCKLANE_SHOP_SERVICE_URL"
	EnvProductCheckMode  = "STOCKLANE_PRODUCT_CHECK_MODE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
