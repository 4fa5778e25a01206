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

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv    = "RELOVED_APP_ENV"
	EnvPort      = "RELOVED_APP_PORT"
	EnvDBDSN     = "RELOVED_DB_DSN"
	EnvDBHost    = "RELOVED_DB_HOST"
	EnvDBUser    = "RELOVED_DB_USER"
	EnvDBName    = "RELOVED_DB_NAME"
	EnvRedisURL  = "RELOVED_REDIS_URL"
	EnvJWTSecret = "RELOVED_JWT_SECRET"
	EnvJWTIssuer = "RELOVED_JWT_ISSUER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Cart      CartConfig
	Checkout  CheckoutConfig
	RateLimit RateLimitConfig
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
	Env          string `envconfig:"RELOVED_APP_ENV" required:"true"`
	Port         string `envconfig:"RELOVED_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RELOVED_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RELOVED_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"RELOVED_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"RELOVED_DB_DSN"`
	Driver string `envconfig:"RELOVED_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RELOVED_DB_HOST"`
	LegacyPort     int    `envconfig:"RELOVED_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RELOVED_DB_USER"`
	LegacyPassword string `envconfig:"RELOVED_DB_PASSWORD"`
	LegacyName     string `envconfig:"RELOVED_DB_NAME"`
	LegacySSLMode  string `envconfig:"RELOVED_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RELOVED_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RELOVED_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RELOVED_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RELOVED_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RELOVED_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RELOVED_REDIS_ADDR"`
	Password     string        `envconfig:"RELOVED_REDIS_PASSWORD"`
	DB           int           `envconfig:"RELOVED_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RELOVED_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RELOVED_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RELOVED_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RELOVED_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RELOVED_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig describes tokens minted by the external identity provider; this
// service only verifies them.
type JWTConfig struct {
	Secret string `envconfig:"RELOVED_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"RELOVED_JWT_ISSUER" required:"true"`
}

type CartConfig struct {
	GuestTTL         time.Duration `envconfig:"RELOVED_CART_GUEST_TTL" default:"720h"`
	PersistQueueSize int           `envconfig:"RELOVED_CART_PERSIST_QUEUE_SIZE" default:"64"`
}

type CheckoutConfig struct {
	CommitTimeout time.Duration `envconfig:"RELOVED_CHECKOUT_COMMIT_TIMEOUT" default:"10s"`
}

// RateLimitConfig bounds write traffic per cart owner.
type RateLimitConfig struct {
	Enabled    bool          `envconfig:"RELOVED_RATE_LIMIT_ENABLED" default:"true"`
	Window     time.Duration `envconfig:"RELOVED_RATE_LIMIT_WINDOW" default:"1m"`
	WriteLimit int64         `envconfig:"RELOVED_RATE_LIMIT_WRITE_LIMIT" default:"120"`
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
