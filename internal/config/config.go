package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const devJWTSecret = "dev-secret-change-me"

// Config holds environment-driven configuration.
type Config struct {
	Addr        string
	AppEnv      string
	LogLevel    string
	DatabaseURL string
	CORSOrigins string

	JWTSecret string
	TokenTTL  time.Duration

	AdminEmail    string
	AdminPassword string
	AllowInit     bool

	MaxInstallments    int
	AbandonedCartAfter time.Duration

	Webhook WebhookConfig
}

type WebhookConfig struct {
	Timeout     time.Duration
	MaxAttempts int
	Concurrency int
	Backoff     time.Duration
}

// Load reads .env, an optional storefront.yaml and the process environment,
// in increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("STOREFRONT_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("storefront")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	v.AutomaticEnv()

	cfg := &Config{
		Addr:               v.GetString("addr"),
		AppEnv:             strings.ToLower(v.GetString("app_env")),
		LogLevel:           v.GetString("log_level"),
		DatabaseURL:        v.GetString("database_url"),
		CORSOrigins:        v.GetString("cors_origins"),
		JWTSecret:          v.GetString("jwt_secret"),
		TokenTTL:           v.GetDuration("token_ttl"),
		AdminEmail:         v.GetString("admin_email"),
		AdminPassword:      v.GetString("admin_password"),
		AllowInit:          v.GetBool("allow_init"),
		MaxInstallments:    v.GetInt("max_installments"),
		AbandonedCartAfter: v.GetDuration("abandoned_cart_after"),
		Webhook: WebhookConfig{
			Timeout:     v.GetDuration("webhook_timeout"),
			MaxAttempts: v.GetInt("webhook_max_attempts"),
			Concurrency: v.GetInt("webhook_concurrency"),
			Backoff:     v.GetDuration("webhook_backoff"),
		},
	}
	if cfg.JWTSecret == "" && cfg.IsDev() {
		cfg.JWTSecret = devJWTSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("app_env", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("database_url", "")
	v.SetDefault("cors_origins", "*")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", "72h")
	v.SetDefault("admin_email", "admin@techstore.com")
	v.SetDefault("admin_password", "admin123")
	v.SetDefault("allow_init", false)
	v.SetDefault("max_installments", 12)
	v.SetDefault("abandoned_cart_after", "120h")
	v.SetDefault("webhook_timeout", "5s")
	v.SetDefault("webhook_max_attempts", 3)
	v.SetDefault("webhook_concurrency", 4)
	v.SetDefault("webhook_backoff", "500ms")
}

// IsDev reports whether the service runs in the development environment.
func (c *Config) IsDev() bool {
	return c.AppEnv == "" || c.AppEnv == "dev"
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("ADDR is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required outside dev")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	if c.MaxInstallments < 1 {
		return fmt.Errorf("MAX_INSTALLMENTS must be at least 1")
	}
	if c.Webhook.MaxAttempts < 1 {
		return fmt.Errorf("WEBHOOK_MAX_ATTEMPTS must be at least 1")
	}
	if c.Webhook.Concurrency < 1 {
		return fmt.Errorf("WEBHOOK_CONCURRENCY must be at least 1")
	}
	if c.Webhook.Timeout <= 0 {
		return fmt.Errorf("WEBHOOK_TIMEOUT must be positive")
	}
	return nil
}
