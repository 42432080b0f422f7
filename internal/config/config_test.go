package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "sqlite://file::memory:")
	t.Setenv("SESSION_JWT_SECRET", "secret")
	t.Setenv("PAYPAL_CLIENT_ID", "id")
	t.Setenv("PAYPAL_CLIENT_SECRET", "secret")
	t.Setenv("PAYPAL_WEBHOOK_ID", "WH-1")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, "products", cfg.ESIndex)
	assert.Equal(t, time.Minute, cfg.ReconcileInterval)
	assert.Equal(t, []byte("secret"), cfg.SessionKey())
	assert.Equal(t, ProcessorPayPal, cfg.PaymentProcessor)
	assert.True(t, cfg.PayPalEnabled())
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_FromEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("RECONCILE_INTERVAL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Second, cfg.ReconcileInterval)
}

func TestLoad_PaymentProcessor(t *testing.T) {
	t.Run("paypal without credentials fails", func(t *testing.T) {
		setRequired(t)
		t.Setenv("PAYPAL_CLIENT_ID", "")
		t.Setenv("PAYPAL_CLIENT_SECRET", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PAYPAL_CLIENT_ID")
	})

	t.Run("fake only when asked for", func(t *testing.T) {
		setRequired(t)
		t.Setenv("PAYPAL_CLIENT_ID", "")
		t.Setenv("PAYPAL_CLIENT_SECRET", "")
		t.Setenv("PAYMENT_PROCESSOR", "fake")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, ProcessorFake, cfg.PaymentProcessor)
		assert.False(t, cfg.PayPalEnabled())
	})
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("SESSION_JWT_SECRET", "secret")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"currency", "CURRENCY", "DOLLARS"},
		{"admin half set", "ADMIN_ID", "7b0c4b8e-2f5e-4c83-9d65-2a8e0c1e3c11"},
		{"paypal secret missing", "PAYPAL_CLIENT_SECRET", ""},
		{"paypal webhook id missing", "PAYPAL_WEBHOOK_ID", ""},
		{"unknown processor", "PAYMENT_PROCESSOR", "stripe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			require.Error(t, err)
		})
	}
}
