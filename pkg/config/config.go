package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Auth         AuthConfig
	Stripe       StripeConfig
	Checkout     CheckoutConfig
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
	Env          string `envconfig:"FUNGALFLUX_APP_ENV" required:"true"`
	Port         string `envconfig:"FUNGALFLUX_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"FUNGALFLUX_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FUNGALFLUX_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"FUNGALFLUX_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Origins splits the configured comma-separated CORS origin list.
func (a AppConfig) Origins() []string {
	parts := strings.Split(a.CORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

type DBConfig struct {
	DSN    string `envconfig:"FUNGALFLUX_DB_DSN"`
	Driver string `envconfig:"FUNGALFLUX_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"FUNGALFLUX_DB_HOST"`
	Port     int    `envconfig:"FUNGALFLUX_DB_PORT" default:"5432"`
	User     string `envconfig:"FUNGALFLUX_DB_USER"`
	Password string `envconfig:"FUNGALFLUX_DB_PASSWORD"`
	Name     string `envconfig:"FUNGALFLUX_DB_NAME"`
	SSLMode  string `envconfig:"FUNGALFLUX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FUNGALFLUX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FUNGALFLUX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FUNGALFLUX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FUNGALFLUX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either FUNGALFLUX_DB_DSN or host/user/name settings are required")
	}
	d.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
	return nil
}

// RedisConfig accepts either a full URL or discrete address settings; the
// client errors when neither is set.
type RedisConfig struct {
	URL          string        `envconfig:"FUNGALFLUX_REDIS_URL"`
	Address      string        `envconfig:"FUNGALFLUX_REDIS_ADDR"`
	Password     string        `envconfig:"FUNGALFLUX_REDIS_PASSWORD"`
	DB           int           `envconfig:"FUNGALFLUX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FUNGALFLUX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FUNGALFLUX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FUNGALFLUX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FUNGALFLUX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FUNGALFLUX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// AuthConfig describes how tokens minted by the hosted identity provider are
// verified. The storefront never issues tokens itself.
type AuthConfig struct {
	JWTSecret string `envconfig:"FUNGALFLUX_JWT_SECRET" required:"true"`
	Issuer    string `envconfig:"FUNGALFLUX_JWT_ISSUER" default:"fungalflux-auth"`
}

type StripeConfig struct {
	APIKey string `envconfig:"FUNGALFLUX_STRIPE_API_KEY" required:"true"`
	Env    string `envconfig:"FUNGALFLUX_STRIPE_ENV" default:"test"`
}

func (s StripeConfig) Environment() string {
	return s.Env
}

// CheckoutConfig carries the flat storefront business rules. Defaults match
// the published store policy: free shipping at $50, $9.99 flat otherwise,
// 8% flat tax.
type CheckoutConfig struct {
	FreeShippingThresholdCents int64         `envconfig:"FUNGALFLUX_FREE_SHIPPING_THRESHOLD_CENTS" default:"5000"`
	FlatShippingCents          int64         `envconfig:"FUNGALFLUX_FLAT_SHIPPING_CENTS" default:"999"`
	TaxRateBasisPoints         int64         `envconfig:"FUNGALFLUX_TAX_RATE_BASIS_POINTS" default:"800"`
	SessionTTL                 time.Duration `envconfig:"FUNGALFLUX_CHECKOUT_SESSION_TTL" default:"168h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FUNGALFLUX_AUTO_MIGRATE" default:"false"`
}
