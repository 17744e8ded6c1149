package app

import (
	"fmt"
	"strings"
	"time"

	"packs/cmd/internal/schema"

	"github.com/caarlos0/env/v11"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string `env:"PACKS_HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	LogLevel string `env:"PACKS_LOG_LEVEL" envDefault:"info"`

	ReadHeaderTimeout time.Duration `env:"PACKS_HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"PACKS_HTTP_READ_TIMEOUT"        envDefault:"15s"`
	WriteTimeout      time.Duration `env:"PACKS_HTTP_WRITE_TIMEOUT"       envDefault:"15s"`
	IdleTimeout       time.Duration `env:"PACKS_HTTP_IDLE_TIMEOUT"        envDefault:"60s"`
	MaxHeaderBytes    int           `env:"PACKS_HTTP_MAX_HEADER_BYTES"    envDefault:"1048576"`

	DatabaseURL string `env:"PACKS_DATABASE_URL"`
	DBMaxConns  int32  `env:"PACKS_DB_MAX_CONNS"    envDefault:"10"`
	DBMinConns  int32  `env:"PACKS_DB_MIN_CONNS"    envDefault:"0"`
	DBSchema    string `env:"PACKS_DB_SCHEMA"       envDefault:"packs"`
	ApplySchema bool   `env:"PACKS_DB_APPLY_SCHEMA" envDefault:"false"`

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool `env:"PACKS_READINESS_REQUIRE_DB" envDefault:"false"`

	CORSAllowedOrigins   []string `env:"PACKS_CORS_ALLOWED_ORIGINS"   envSeparator:","`
	CORSAllowCredentials bool     `env:"PACKS_CORS_ALLOW_CREDENTIALS" envDefault:"false"`
	CORSMaxAgeSeconds    int      `env:"PACKS_CORS_MAX_AGE_SECONDS"   envDefault:"3600"`

	MetricsEnabled bool `env:"PACKS_METRICS_ENABLED" envDefault:"true"`

	// Zero disables the lapsed-invitation purger.
	PurgeInterval time.Duration `env:"PACKS_PURGE_INTERVAL" envDefault:"0s"`

	TokenHMACKey string `env:"PACKS_TOKEN_HMAC_KEY"`
	TokenIssuer  string `env:"PACKS_TOKEN_ISSUER"`
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.DBSchema = strings.TrimSpace(c.DBSchema)
	if c.DBSchema == "" {
		c.DBSchema = schema.Default
	}
	origins := c.CORSAllowedOrigins[:0]
	for _, o := range c.CORSAllowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORSAllowedOrigins = origins
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if !schema.ValidName(c.DBSchema) {
		return fmt.Errorf("config: PACKS_DB_SCHEMA %q is not a valid identifier", c.DBSchema)
	}
	if c.DBMaxConns < 0 || c.DBMinConns < 0 || (c.DBMaxConns > 0 && c.DBMinConns > c.DBMaxConns) {
		return fmt.Errorf("config: invalid pool bounds min=%d max=%d", c.DBMinConns, c.DBMaxConns)
	}
	if c.PurgeInterval < 0 {
		return fmt.Errorf("config: PACKS_PURGE_INTERVAL must not be negative")
	}
	if c.ApplySchema && c.DatabaseURL == "" {
		return fmt.Errorf("config: PACKS_DB_APPLY_SCHEMA requires PACKS_DATABASE_URL")
	}
	if c.CORSMaxAgeSeconds < 0 {
		return fmt.Errorf("config: PACKS_CORS_MAX_AGE_SECONDS must not be negative")
	}
	return nil
}
