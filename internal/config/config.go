package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	ProcessorPayPal = "paypal"
	ProcessorFake   = "fake"
)

type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"storefront"`
	ServerPort  int    `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseURL string `env:"DATABASE_URL,required"`

	SessionSecret  string `env:"SESSION_JWT_SECRET,required"`
	IdentityURL    string `env:"IDENTITY_URL"`
	IdentityAPIKey string `env:"IDENTITY_API_KEY"`
	SecureCookies  bool   `env:"SECURE_COOKIES" envDefault:"true"`

	AdminID    string `env:"ADMIN_ID"`
	AdminEmail string `env:"ADMIN_EMAIL"`

	Currency string `env:"CURRENCY" envDefault:"USD"`

	// PaymentProcessor is "paypal", or "fake" for the in-memory processor that
	// approves every payment. The fake is never picked implicitly.
	PaymentProcessor   string `env:"PAYMENT_PROCESSOR" envDefault:"paypal"`
	PayPalBaseURL      string `env:"PAYPAL_BASE_URL" envDefault:"https://api-m.sandbox.paypal.com"`
	PayPalClientID     string `env:"PAYPAL_CLIENT_ID"`
	PayPalClientSecret string `env:"PAYPAL_CLIENT_SECRET"`
	PayPalWebhookID    string `env:"PAYPAL_WEBHOOK_ID"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	ESURL      string `env:"ES_URL"`
	ESUser     string `env:"ES_USER"`
	ESPassword string `env:"ES_PASSWORD"`
	ESIndex    string `env:"ES_INDEX" envDefault:"products"`

	RedisURL string `env:"REDIS_URL"`

	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"1m"`
	CheckoutLockTTL   time.Duration `env:"CHECKOUT_LOCK_TTL" envDefault:"30s"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not found: %v. Using system environment variables", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Currency) != 3 {
		return fmt.Errorf("CURRENCY must be a 3-letter ISO code, got %q", c.Currency)
	}
	if (c.AdminID == "") != (c.AdminEmail == "") {
		return errors.New("ADMIN_ID and ADMIN_EMAIL must be set together")
	}
	switch c.PaymentProcessor {
	case ProcessorPayPal:
		if c.PayPalClientID == "" || c.PayPalClientSecret == "" || c.PayPalWebhookID == "" {
			return errors.New("PAYPAL_CLIENT_ID, PAYPAL_CLIENT_SECRET and PAYPAL_WEBHOOK_ID are required for the paypal processor")
		}
	case ProcessorFake:
	default:
		return fmt.Errorf("PAYMENT_PROCESSOR must be %q or %q, got %q", ProcessorPayPal, ProcessorFake, c.PaymentProcessor)
	}
	return nil
}

// PayPalEnabled reports whether checkouts go to PayPal.
func (c *Config) PayPalEnabled() bool {
	return c.PaymentProcessor == ProcessorPayPal
}

func (c *Config) SessionKey() []byte {
	return []byte(c.SessionSecret)
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}
