package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/studiogate/pkg/config"
	"github.com/utafrali/studiogate/pkg/database"
)

// Config holds all configuration for the studiogate service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// Google OAuth
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURIDev     string `env:"OAUTH_REDIRECT_URI_DEV" envDefault:"http://localhost:8080/auth/google/callback"`
	RedirectURIProd    string `env:"OAUTH_REDIRECT_URI_PROD"`

	// JWT
	JWTSecret       string        `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTAccessExpiry time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"1h"`

	// Sessions
	SessionSecret string        `env:"SESSION_SECRET" envDefault:"change-this-to-a-secure-secret"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"studiogate"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"studiogate_secret"`
	PostgresDB   string `env:"POSTGRES_DB_NAME" envDefault:"studiogate"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Redis
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Uploads
	UploadMaxBytes int64 `env:"UPLOAD_MAX_BYTES" envDefault:"104857600"` // 100 MB

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Tracing
	TracingEnabled  bool    `env:"OTEL_TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TraceSampleRate float64 `env:"OTEL_TRACE_SAMPLE_RATE" envDefault:"1.0"`
}

const insecureDefaultSecret = "change-this-to-a-secure-secret"

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load studiogate config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if cfg.UploadMaxBytes <= 0 {
		return nil, fmt.Errorf("invalid upload size limit: %d", cfg.UploadMaxBytes)
	}

	// In non-development environments, require explicitly set, strong secrets.
	if cfg.Environment != "development" {
		secrets := []struct {
			name  string
			value string
		}{
			{"JWT_SECRET", cfg.JWTSecret},
			{"SESSION_SECRET", cfg.SessionSecret},
		}
		for _, s := range secrets {
			name, secret := s.name, s.value
			if secret == insecureDefaultSecret {
				return nil, fmt.Errorf("%s must be explicitly set via environment variable in %q mode", name, cfg.Environment)
			}
			if len(secret) < 32 {
				return nil, fmt.Errorf("%s must be at least 32 characters long, got %d", name, len(secret))
			}
		}
		if cfg.RedirectURIProd == "" {
			return nil, fmt.Errorf("OAUTH_REDIRECT_URI_PROD must be set in %q mode", cfg.Environment)
		}
	}

	return cfg, nil
}

// RedirectURI returns the OAuth callback URI for the active environment.
func (c *Config) RedirectURI() string {
	if c.Environment == "development" {
		return c.RedirectURIDev
	}
	return c.RedirectURIProd
}

// Postgres returns the connection pool configuration for the user store.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	return pg
}

// Redis returns the connection configuration for the revocation and session store.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPass,
		DB:       c.RedisDB,
	}
}
