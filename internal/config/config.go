// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/scriptgate/scriptgate/internal/model"
)

// Store driver names.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Store backend: "memory" (single process) or "postgres"
	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`

	// Database (PostgreSQL), required when STORE_DRIVER=postgres
	DatabaseURL string `env:"DATABASE_URL"`

	// Cache (Redis), required when rate limiting is enabled
	RedisURL string `env:"REDIS_URL"`

	// Plan assigned to free keys
	FreePlan string `env:"FREE_PLAN" envDefault:"1-month"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Per-IP rate limiting on the public endpoints
	RateLimitEnabled bool    `env:"RATE_LIMIT_ENABLED" envDefault:"false"`
	FreeKeyRPS       float64 `env:"RATE_LIMIT_FREEKEY_RPS" envDefault:"1"`
	FreeKeyBurst     int     `env:"RATE_LIMIT_FREEKEY_BURST" envDefault:"5"`
	RawRPS           float64 `env:"RATE_LIMIT_RAW_RPS" envDefault:"50"`
	RawBurst         int     `env:"RATE_LIMIT_RAW_BURST" envDefault:"20"`

	// Argon2id hash of the admin token. When empty the admin-gated
	// routes are open, matching the original panel behaviour.
	AdminTokenHash string `env:"ADMIN_TOKEN_HASH"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks cross-field constraints that env tags cannot express.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.RateLimitEnabled && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when RATE_LIMIT_ENABLED=true")
	}

	if _, ok := model.PlanDuration(c.FreePlan); !ok {
		return fmt.Errorf("unknown FREE_PLAN %q", c.FreePlan)
	}

	return nil
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing or inconsistent.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
