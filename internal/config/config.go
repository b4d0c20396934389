package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config represents the complete service configuration, read from the
// environment (and an optional .env file).
type Config struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Database Database
	Redis    Redis
	JWT      JWT
	Session  Session
	Tenancy  Tenancy
}

// Database contains PostgreSQL settings
type Database struct {
	URL string `env:"DATABASE_URL"`
}

// Redis contains session store settings
type Redis struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// JWT contains token signing settings
type JWT struct {
	Secret           string        `env:"JWT_SECRET"`
	Issuer           string        `env:"JWT_ISSUER" envDefault:"stockflow-auth"`
	Audience         string        `env:"JWT_AUDIENCE" envDefault:"stockflow-api"`
	TTL              time.Duration `env:"JWT_TTL" envDefault:"24h"`
	AllowShortSecret bool          `env:"JWT_ALLOW_SHORT_SECRET" envDefault:"false"`
}

// Session contains browser session settings
type Session struct {
	TTL        time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	CookieName string        `env:"SESSION_COOKIE" envDefault:"STOCKFLOW_SESSION"`
	Secure     bool          `env:"SESSION_COOKIE_SECURE" envDefault:"true"`
}

// Tenancy contains tenant resolution and subscription settings
type Tenancy struct {
	HeaderName   string        `env:"TENANT_HEADER" envDefault:"X-Tenant-ID"`
	QueryParam   string        `env:"TENANT_PARAM" envDefault:"tenantId"`
	PlansFile    string        `env:"PLANS_FILE"`
	CacheTTL     time.Duration `env:"TENANT_CACHE_TTL" envDefault:"1m"`
	CacheRefresh time.Duration `env:"TENANT_CACHE_REFRESH" envDefault:"5m"`
}

var (
	// ErrParsingConfig is returned when environment variables cannot be parsed
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrMissingValue is returned when a required setting is empty
	ErrMissingValue = errors.New("required configuration value is missing")
)

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first if present.
func Load() (*Config, error) {
	// the .env file is optional
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Join(ErrParsingConfig, err)
	}
	return cfg, nil
}

// Validate checks the settings that serve cannot start without.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("%w: DATABASE_URL", ErrMissingValue)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("%w: JWT_SECRET", ErrMissingValue)
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWT.TTL)
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}
