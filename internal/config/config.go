// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// MinSessionSecretLength is the shortest session secret accepted in production.
const MinSessionSecretLength = 32

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Public origin of the site, used in JSON-LD and offline precache URLs
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// Author named in recipe structured data
	RecipeAuthor string `env:"RECIPE_AUTHOR" envDefault:"Homestead Kitchen"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required,notEmpty"`

	// Logging: json, text or pretty
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting
	RateLimitAPIEnabled bool    `env:"RATE_LIMIT_API_ENABLED" envDefault:"true"`
	RateLimitAPIRPM     int     `env:"RATE_LIMIT_API_RPM" envDefault:"600"`
	RateLimitAPIBurst   int     `env:"RATE_LIMIT_API_BURST" envDefault:"60"`
	RateLimitLoginRPS   float64 `env:"RATE_LIMIT_LOGIN_RPS" envDefault:"0.2"`
	RateLimitLoginBurst int     `env:"RATE_LIMIT_LOGIN_BURST" envDefault:"5"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 10MB, image uploads are base64 JSON)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"10485760"`

	// Sessions
	SessionSecret string        `env:"SESSION_SECRET,required,notEmpty"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"720h"`

	// Features
	AllowRegistration bool `env:"ALLOW_REGISTRATION" envDefault:"false"`

	// Exchange rates (Frankfurter API)
	ExchangeRateURL     string        `env:"EXCHANGE_RATE_URL" envDefault:"https://api.frankfurter.app"`
	ExchangeRateTimeout time.Duration `env:"EXCHANGE_RATE_TIMEOUT" envDefault:"10s"`

	// Recurring payment scheduler
	RecurringSchedulerEnabled  bool          `env:"RECURRING_SCHEDULER_ENABLED" envDefault:"true"`
	RecurringSchedulerInterval time.Duration `env:"RECURRING_SCHEDULER_INTERVAL" envDefault:"1m"`

	// Faith
	BibleTSVPath string `env:"BIBLE_TSV_PATH" envDefault:"data/bible.tsv"`

	// Media
	MediaDir       string `env:"MEDIA_DIR" envDefault:"data/media"`
	ThumbnailWidth uint   `env:"THUMBNAIL_WIDTH" envDefault:"800"`
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

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.LogFormat {
	case "json", "text", "pretty":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json, text or pretty, got %q", c.LogFormat))
	}
	if c.IsProduction() && len(c.SessionSecret) < MinSessionSecretLength {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d bytes in production", MinSessionSecretLength))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.RecurringSchedulerEnabled && c.RecurringSchedulerInterval < time.Second {
		errs = append(errs, errors.New("RECURRING_SCHEDULER_INTERVAL must be at least 1s"))
	}
	if c.ThumbnailWidth == 0 {
		errs = append(errs, errors.New("THUMBNAIL_WIDTH must be positive"))
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a validated Config.
// Returns an error if required variables are missing.
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
