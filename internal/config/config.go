package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUser  string
	DBPass  string
	DBHost  string
	DBPort  string
	DBName  string
	SSLMode string

	RedisHost string
	RedisPort string

	NatsHost string
	NatsPort string

	StripeSecretKey     string
	StripeWebhookSecret string

	ApiPort string
}

// New loads and validates configuration from environment variables.
// Stripe credentials and the backing stores are all required; the HTTP
// listen port falls back to 5001.
func New() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBUser:  os.Getenv("COINPAY_POSTGRES_USER"),
		DBPass:  os.Getenv("COINPAY_POSTGRES_PASSWORD"),
		DBHost:  os.Getenv("COINPAY_POSTGRES_HOST"),
		DBPort:  os.Getenv("COINPAY_POSTGRES_PORT"),
		DBName:  os.Getenv("COINPAY_POSTGRES_DB"),
		SSLMode: os.Getenv("COINPAY_POSTGRES_SSLMODE"),

		RedisHost: os.Getenv("COINPAY_REDIS_HOST"),
		RedisPort: os.Getenv("COINPAY_REDIS_PORT"),

		NatsHost: os.Getenv("COINPAY_NATS_HOST"),
		NatsPort: os.Getenv("COINPAY_NATS_PORT"),

		StripeSecretKey:     os.Getenv("COINPAY_STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("COINPAY_STRIPE_WEBHOOK_SECRET"),

		ApiPort: getEnv("COINPAY_API_PORT", "5001"),
	}

	// Required: database
	if cfg.DBUser == "" || cfg.DBHost == "" || cfg.DBName == "" || cfg.SSLMode == "" {
		return nil, fmt.Errorf("missing required env for database: COINPAY_POSTGRES_USER/HOST/DB/SSLMODE")
	}

	// Required: redis
	if cfg.RedisHost == "" || cfg.RedisPort == "" {
		return nil, fmt.Errorf("missing required env for redis: COINPAY_REDIS_HOST/PORT")
	}

	// Required: nats (the credit queue)
	if cfg.NatsHost == "" || cfg.NatsPort == "" {
		return nil, fmt.Errorf("missing required env for nats: COINPAY_NATS_HOST/PORT")
	}

	// Required: stripe
	if cfg.StripeSecretKey == "" {
		return nil, fmt.Errorf("missing required env: COINPAY_STRIPE_SECRET_KEY")
	}
	if cfg.StripeWebhookSecret == "" {
		return nil, fmt.Errorf("missing required env: COINPAY_STRIPE_WEBHOOK_SECRET")
	}

	return cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName, c.SSLMode)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func (c *Config) NatsAddr() string {
	return fmt.Sprintf("nats://%s:%s", c.NatsHost, c.NatsPort)
}

func (c *Config) ApiAddr() string {
	return ":" + c.ApiPort
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}
