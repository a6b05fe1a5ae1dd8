package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the bot service.
// Environment variables are automatically parsed from the MNEMOCARD_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// Bot API credentials and endpoint. BaseURL is overridable so tests
	// and local bot-api mirrors can point the client elsewhere.
	BotToken        string `envconfig:"BOT_TOKEN" validate:"required"`
	TelegramBaseURL string `envconfig:"TELEGRAM_BASE_URL" default:"https://api.telegram.org"`

	// Webhook registration. WebhookURL is the public origin Telegram
	// calls back on; the service itself listens on WebhookPath.
	WebhookURL  string `envconfig:"WEBHOOK_URL" default:""`
	WebhookPath string `envconfig:"WEBHOOK_PATH" default:"/api/updates"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080" validate:"min=1,max=65535"`

	// Storage. DBDriver selects the backing store; "auto" derives it
	// from which connection settings are present.
	DBDriver    string `envconfig:"DB_DRIVER" default:"auto"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"./data/mnemocard.db"`

	// Menu pagination
	PerPage int `envconfig:"PER_PAGE" default:"8" validate:"min=1"`
}

// ResolveDefaults derives DBDriver when set to "auto" or empty and
// rejects driver/setting combinations that cannot work.
func (c *Config) ResolveDefaults() error {
	if c.DBDriver == "" || c.DBDriver == "auto" {
		if c.PostgresDSN != "" {
			c.DBDriver = "postgres"
		} else {
			c.DBDriver = "sqlite"
		}
	}

	switch c.DBDriver {
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("DB_DRIVER=postgres requires POSTGRES_DSN")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("DB_DRIVER=sqlite requires SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Environment variables should be prefixed with MNEMOCARD_
// Example: MNEMOCARD_BOT_TOKEN, MNEMOCARD_HTTP_PORT
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("MNEMOCARD", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("db_driver", cfg.DBDriver).
		Int("port", cfg.HTTPPort).
		Str("webhook_path", cfg.WebhookPath).
		Bool("webhook_url_present", cfg.WebhookURL != "").
		Int("per_page", cfg.PerPage).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	cfg := &Config{
		Environment: EnvTesting,
		BotToken:    "test-token",
		HTTPPort:    8080,
		DBDriver:    "sqlite",
		SQLitePath:  ":memory:",
		WebhookPath: "/api/updates",
		PerPage:     8,
	}
	return cfg
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}
