package config_test

import (
	"testing"
	"time"

	"wellnest/internal/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func newViper(overrides map[string]interface{}) *viper.Viper {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("JWT_SECRET", "test_jwt_secret")
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := config.FromViper(newViper(nil))

	assert.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, config.ProviderSandbox, cfg.PaymentProvider)
	assert.Equal(t, "usd", cfg.PaymentCurrency)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 3, cfg.PersistAttempts)
	assert.Equal(t, 10<<20, cfg.MaxUploadBytes)
	assert.True(t, cfg.SeedCatalog)
	assert.Empty(t, cfg.RabbitMQURL)
	assert.Empty(t, cfg.RedisAddr)
}

func TestFromViper_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]interface{}
		contains  string
	}{
		{"missing secret", map[string]interface{}{"JWT_SECRET": ""}, "JWT_SECRET"},
		{"unknown driver", map[string]interface{}{"DATABASE_DRIVER": "oracle"}, "DATABASE_DRIVER"},
		{"stripe without key", map[string]interface{}{"PAYMENT_PROVIDER": "stripe"}, "STRIPE_SECRET_KEY"},
		{"unknown provider", map[string]interface{}{"PAYMENT_PROVIDER": "paypal"}, "PAYMENT_PROVIDER"},
		{"zero attempts", map[string]interface{}{"PERSIST_ATTEMPTS": 0}, "PERSIST_ATTEMPTS"},
		{"admin without password", map[string]interface{}{"ADMIN_EMAIL": "admin@example.com"}, "ADMIN_PASSWORD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.FromViper(newViper(tt.overrides))
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestFromViper_Stripe(t *testing.T) {
	cfg, err := config.FromViper(newViper(map[string]interface{}{
		"PAYMENT_PROVIDER":  "STRIPE",
		"STRIPE_SECRET_KEY": "sk_test_123",
		"PAYMENT_CURRENCY":  "EUR",
	}))

	assert.NoError(t, err)
	assert.Equal(t, config.ProviderStripe, cfg.PaymentProvider)
	assert.Equal(t, "eur", cfg.PaymentCurrency)
}
