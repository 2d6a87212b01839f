package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	AppEnv        string `envconfig:"APP_ENV" default:"dev"`
	ProdOrigins   string `envconfig:"PROD_ORIGINS"`
	HTTPAddr      string `envconfig:"HTTP_ADDR" default:":8080"`
	DBDSN         string `envconfig:"DB_DSN" required:"true"`
	DBAutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`
	JWTSecret     string `envconfig:"JWT_SECRET" required:"true"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`

	Payment   PaymentConfig
	Events    EventsConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

// PaymentConfig configures fee computation and the Razorpay gateway.
type PaymentConfig struct {
	PlatformFeePercent int64         `envconfig:"PLATFORM_FEE_PERCENT" default:"10"`
	Currency           string        `envconfig:"CURRENCY" default:"INR"`
	RazorpayKeyID      string        `envconfig:"RAZORPAY_KEY_ID" required:"true"`
	RazorpayKeySecret  string        `envconfig:"RAZORPAY_KEY_SECRET" required:"true"`
	WebhookSecret      string        `envconfig:"RAZORPAY_WEBHOOK_SECRET"`
	PayoutLease        time.Duration `envconfig:"PAYOUT_LEASE" default:"5m"`
}

// EventsConfig configures the RabbitMQ publisher. An empty URL disables the broker.
type EventsConfig struct {
	RabbitMQURL string `envconfig:"RABBITMQ_URL"`
	Exchange    string `envconfig:"EVENTS_EXCHANGE" default:"library.events"`
}

// RedisConfig configures the rate limiter store. An empty address disables rate limiting.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type RateLimitConfig struct {
	Capacity       int           `envconfig:"RATE_LIMIT_CAPACITY" default:"30"`
	RefillInterval time.Duration `envconfig:"RATE_LIMIT_REFILL_INTERVAL" default:"2s"`
}

// IsProduction reports whether APP_ENV selects the production profile.
func (c *Config) IsProduction() bool {
	return c.AppEnv == PROD_STRING
}

// Origins splits PROD_ORIGINS into a list, dropping empty entries.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.ProdOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	return FromEnv()
}

// FromEnv decodes and validates the process environment without touching .env.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Webhook signatures fall back to the API key secret.
	if cfg.Payment.WebhookSecret == "" {
		cfg.Payment.WebhookSecret = cfg.Payment.RazorpayKeySecret
	}

	return cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if c.Payment.PlatformFeePercent < 0 || c.Payment.PlatformFeePercent > 100 {
		return fmt.Errorf("invalid PLATFORM_FEE_PERCENT %d: must be within [0,100]", c.Payment.PlatformFeePercent)
	}
	if c.Payment.PayoutLease <= 0 {
		return fmt.Errorf("invalid PAYOUT_LEASE %s: must be positive", c.Payment.PayoutLease)
	}
	if c.RateLimit.Capacity < 1 {
		return fmt.Errorf("invalid RATE_LIMIT_CAPACITY %d: must be at least 1", c.RateLimit.Capacity)
	}
	return nil
}
