package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Engine       EngineConfig
	Partners     PartnersConfig
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
	if err := cfg.Partners.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOCKLANE_APP_ENV" required:"true"`
	Port         string `envconfig:"STOCKLANE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOCKLANE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOCKLANE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STOCKLANE_DB_DSN"`
	Driver string `envconfig:"STOCKLANE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOCKLANE_DB_HOST"`
	LegacyPort     int    `envconfig:"STOCKLANE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOCKLANE_DB_USER"`
	LegacyPassword string `envconfig:"STOCKLANE_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOCKLANE_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOCKLANE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOCKLANE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOCKLANE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOCKLANE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOCKLANE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOCKLANE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOCKLANE_REDIS_ADDR"`
	Password     string        `envconfig:"STOCKLANE_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOCKLANE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOCKLANE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOCKLANE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOCKLANE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOCKLANE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOCKLANE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOCKLANE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOCKLANE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STOCKLANE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// EngineConfig tunes the reservation engine's internal behavior.
type EngineConfig struct {
	// ConflictRetries bounds how many times a lost storage race is retried
	// before the conflict is surfaced to the caller.
	ConflictRetries int           `envconfig:"STOCKLANE_ENGINE_CONFLICT_RETRIES" default:"3"`
	RetryBackoff    time.Duration `envconfig:"STOCKLANE_ENGINE_RETRY_BACKOFF" default:"25ms"`
}

// PartnersConfig points at the collaborator services consulted outside the
// critical section: product existence and shop ownership.
type PartnersConfig struct {
	ProductServiceURL string        `envconfig:"STOCKLANE_PRODUCT_SERVICE_URL"`
	ShopServiceURL    string        `envconfig:"STOCKLANE_SHOP_SERVICE_URL"`
	ServiceToken      string        `envconfig:"STOCKLANE_PARTNER_TOKEN"`
	RequestTimeout    time.Duration `envconfig:"STOCKLANE_PARTNER_TIMEOUT" default:"5s"`

	// ProductCheckMode controls what happens when the product service cannot
	// be reached: "closed" rejects the write, "open" lets it through.
	// Ownership checks always fail closed.
	ProductCheckMode string `envconfig:"STOCKLANE_PRODUCT_CHECK_MODE" default:"closed"`
}

func (p PartnersConfig) FailOpenProductCheck() bool {
	return strings.EqualFold(strings.TrimSpace(p.ProductCheckMode), ProductCheckModeOpen)
}

func (p PartnersConfig) validate() error {
	mode := strings.ToLower(strings.TrimSpace(p.ProductCheckMode))
	if mode != ProductCheckModeOpen && mode != ProductCheckModeClosed {
		return fmt.Errorf("invalid %s %q (expected open|closed)", EnvProductCheckMode, p.ProductCheckMode)
	}
	return nil
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOCKLANE_AUTO_MIGRATE" default:"false"`
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
