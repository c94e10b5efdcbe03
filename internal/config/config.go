// Package config loads runtime settings from the environment, an optional .env file
// and an optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every runtime setting of the service.
type Config struct {
	AppPort string

	DatabaseDriver string
	DatabaseDSN    string

	JWTSecret string
	TokenTTL  time.Duration

	RabbitMQURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration

	PaymentProvider string
	StripeSecretKey string
	PaymentCurrency string
	GatewayTimeout  time.Duration
	PersistAttempts int

	StorageDir     string
	StorageTimeout time.Duration
	MaxUploadBytes int

	AdminEmail    string
	AdminPassword string
	SeedCatalog   bool
}

// Payment providers.
const (
	ProviderSandbox = "sandbox"
	ProviderStripe  = "stripe"
)

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "file:wellnest.db")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOCK_TTL", "10s")
	v.SetDefault("PAYMENT_PROVIDER", ProviderSandbox)
	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("PAYMENT_CURRENCY", "usd")
	v.SetDefault("GATEWAY_TIMEOUT", "10s")
	v.SetDefault("PERSIST_ATTEMPTS", 3)
	v.SetDefault("STORAGE_DIR", "./uploads")
	v.SetDefault("STORAGE_TIMEOUT", "15s")
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("SEED_CATALOG", true)
}

// Load reads .env (if present) into the environment, then builds the Config from
// defaults, config.yaml in the working directory and environment variables.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	v := viper.New()
	SetDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds and validates a Config from v.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		AppPort:         v.GetString("APP_PORT"),
		DatabaseDriver:  strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseDSN:     v.GetString("DATABASE_DSN"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		TokenTTL:        v.GetDuration("TOKEN_TTL"),
		RabbitMQURL:     v.GetString("RABBITMQ_URL"),
		RedisAddr:       v.GetString("REDIS_ADDR"),
		RedisPassword:   v.GetString("REDIS_PASSWORD"),
		RedisDB:         v.GetInt("REDIS_DB"),
		LockTTL:         v.GetDuration("LOCK_TTL"),
		PaymentProvider: strings.ToLower(v.GetString("PAYMENT_PROVIDER")),
		StripeSecretKey: v.GetString("STRIPE_SECRET_KEY"),
		PaymentCurrency: strings.ToLower(v.GetString("PAYMENT_CURRENCY")),
		GatewayTimeout:  v.GetDuration("GATEWAY_TIMEOUT"),
		PersistAttempts: v.GetInt("PERSIST_ATTEMPTS"),
		StorageDir:      v.GetString("STORAGE_DIR"),
		StorageTimeout:  v.GetDuration("STORAGE_TIMEOUT"),
		MaxUploadBytes:  v.GetInt("MAX_UPLOAD_BYTES"),
		AdminEmail:      v.GetString("ADMIN_EMAIL"),
		AdminPassword:   v.GetString("ADMIN_PASSWORD"),
		SeedCatalog:     v.GetBool("SEED_CATALOG"),
	}
	return cfg, cfg.Validate()
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable not set")
	}
	switch c.DatabaseDriver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.PaymentProvider {
	case ProviderSandbox:
	case ProviderStripe:
		if c.StripeSecretKey == "" {
			return errors.New("STRIPE_SECRET_KEY is required when PAYMENT_PROVIDER=stripe")
		}
	default:
		return fmt.Errorf("unsupported PAYMENT_PROVIDER %q", c.PaymentProvider)
	}
	if c.TokenTTL <= 0 || c.GatewayTimeout <= 0 || c.StorageTimeout <= 0 || c.LockTTL <= 0 {
		return errors.New("TOKEN_TTL, GATEWAY_TIMEOUT, STORAGE_TIMEOUT and LOCK_TTL must be positive")
	}
	if c.PersistAttempts < 1 {
		return errors.New("PERSIST_ATTEMPTS must be at least 1")
	}
	if c.MaxUploadBytes < 1 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	return nil
}
