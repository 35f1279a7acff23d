package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ecomdemo/cardsync/internal/pkg/env"
)

const (
	EnvDev  = "dev"
	EnvTest = "test"
	EnvProd = "prod"
)

// Config is built once at startup and passed to every component that needs
// settings. Nothing reads the environment after Load returns.
type Config struct {
	AppEnv   string `validate:"oneof=dev test prod"`
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	Webhook  WebhookConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Admin    AdminConfig
	DocsPath string
}

type WebhookConfig struct {
	Secret           string
	SkipVerification bool
}

type DatabaseConfig struct {
	User     string `validate:"required"`
	Password string
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	Name     string `validate:"required"`
}

type CacheConfig struct {
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	Password string
}

// AdminConfig protects /metrics and the /admin endpoints with basic auth.
type AdminConfig struct {
	User     string `validate:"required"`
	Password string `validate:"required,min=8"`
}

// Load reads the configuration through env.GetEnv and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv: strings.ToLower(strings.TrimSpace(env.GetEnv("APP_ENV", EnvProd))),
		Host:   env.GetEnv("APP_HOST", "0.0.0.0"),
		Port:   env.GetEnv("APP_PORT", "4000"),
		Webhook: WebhookConfig{
			Secret:           strings.TrimSpace(env.GetEnv("PAYPAL_WEBHOOK_SECRET", "")),
			SkipVerification: env.GetBool("SKIP_WEBHOOK_VERIFICATION", false),
		},
		Database: databaseFromEnv(),
		Cache: CacheConfig{
			Host:     env.GetEnv("CACHE_HOST", "localhost"),
			Port:     env.GetEnv("CACHE_PORT", "6379"),
			Password: env.GetEnv("CACHE_PASSWORD", ""),
		},
		Admin: AdminConfig{
			User:     env.GetEnv("METRICS_USER", "admin"),
			Password: env.GetEnv("METRICS_PASSWORD", ""),
		},
		DocsPath: env.GetEnv("OPENAPI_FILE", "public/docs/v1/openapi.yml"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase reads and validates only the DB_* settings. The migrate and
// apikey commands use it so they run without the webhook and admin secrets.
func LoadDatabase() (DatabaseConfig, error) {
	cfg := databaseFromEnv()
	if err := validator.New().Struct(cfg); err != nil {
		return DatabaseConfig{}, fmt.Errorf("invalid database configuration: %w", err)
	}
	return cfg, nil
}

func databaseFromEnv() DatabaseConfig {
	return DatabaseConfig{
		User:     env.GetEnv("DB_USER", "cardsync"),
		Password: env.GetEnv("DB_PASSWORD", ""),
		Host:     env.GetEnv("DB_HOST", "127.0.0.1"),
		Port:     env.GetEnv("DB_PORT", "3306"),
		Name:     env.GetEnv("DB_NAME", "cardsync"),
	}
}

// Validate checks field constraints plus the rules that span fields.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !c.SkipSignatureVerification() && c.Webhook.Secret == "" {
		return errors.New("invalid configuration: PAYPAL_WEBHOOK_SECRET is required unless verification is skipped in dev")
	}
	return nil
}

// SkipSignatureVerification honours SKIP_WEBHOOK_VERIFICATION only in dev.
func (c *Config) SkipSignatureVerification() bool {
	return c.AppEnv == EnvDev && c.Webhook.SkipVerification
}

// IsDev reports whether the service runs in development mode.
func (c *Config) IsDev() bool {
	return c.AppEnv == EnvDev
}

// ListenAddr returns host:port for fiber's Listen.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// DSN returns the MySQL data source name used by GORM.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// MigrateURL returns the golang-migrate database URL.
func (d DatabaseConfig) MigrateURL() string {
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// Addr returns host:port of the Redis server.
func (c CacheConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}
