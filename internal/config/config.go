package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all Craftdesk configuration, read from environment variables.
type Config struct {
	Mode string `env:"CRAFTDESK_MODE" envDefault:"api"`

	// Server
	Host string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"APP_PORT" envDefault:"8080"`

	// Database
	DatabaseURL string `env:"DATABASE_URL" envDefault:"postgres://localhost:5432/craftdesk?sslmode=disable"`

	// Redis
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Migrations
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Metrics
	MetricsPath string `env:"METRICS_PATH" envDefault:"/metrics"`

	// Outbound provider calls
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`

	// Provider endpoint overrides, for sandboxes and local stubs.
	// Empty selects each provider's production endpoint.
	EmailAPIBaseURL    string `env:"EMAIL_API_BASE_URL"`
	SMSAPIBaseURL      string `env:"SMS_API_BASE_URL"`
	CalendarAPIBaseURL string `env:"CALENDAR_API_BASE_URL"`
	SlackAPIBaseURL    string `env:"SLACK_API_BASE_URL"`

	// Reminder sweep
	ReminderDedup    bool          `env:"REMINDER_DEDUP" envDefault:"false"`
	ReminderInterval time.Duration `env:"REMINDER_INTERVAL" envDefault:"1h"`

	// Public-facing base URL, used for form links embedded in emails.
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:3000"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present (development convenience).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config from env: %w", err)
	}
	return cfg, nil
}

// ListenAddr returns the address the HTTP server should listen on.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
