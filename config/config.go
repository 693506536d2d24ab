package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port string

	DB    DBConfig
	Redis RedisConfig
	Kafka KafkaConfig
	SMTP  SMTPConfig

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeAPIURL        string
	Currency            string
	AppOrigin           string
	TestMode            bool
	GatewayTimeout      time.Duration

	JWTSecret      string
	NotifyMode     string
	JaegerEndpoint string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type KafkaConfig struct {
	Broker      string
	NotifyTopic string
	NotifyGroup string
}

type SMTPConfig struct {
	Host      string
	Port      int
	Secure    bool
	User      string
	Password  string
	FromName  string
	FromEmail string
	Timeout   time.Duration
}

const (
	NotifyModeLog   = "log"
	NotifyModeSMTP  = "smtp"
	NotifyModeKafka = "kafka"
)

var defaults = map[string]any{
	"PORT":            "8080",
	"DB_HOST":         "localhost",
	"DB_PORT":         "5432",
	"DB_USER":         "postgres",
	"DB_PASSWORD":     "postgres",
	"DB_NAME":         "marketplacedb",
	"DB_SSLMODE":      "disable",
	"REDIS_HOST":      "localhost",
	"REDIS_PORT":      "6379",
	"REDIS_PASSWORD":  "",
	"KAFKA_BROKER":    "localhost:9092",
	"NOTIFY_TOPIC":    "marketplace_notifications",
	"NOTIFY_GROUP":    "marketplace-notify",
	"NOTIFY_MODE":     NotifyModeLog,
	"CURRENCY":        "inr",
	"APP_ORIGIN":      "http://localhost:3000",
	"TEST_MODE":       false,
	"GATEWAY_TIMEOUT": 15 * time.Second,
	"JAEGER_ENDPOINT": "http://localhost:14268/api/traces",
	"SMTP_PORT":       587,
	"SMTP_SECURE":     false,
	"SMTP_FROM_NAME":  "Farmer Marketplace",
	"SMTP_TIMEOUT":    10 * time.Second,
}

// Load reads configuration from the environment, falling back to defaults.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	cfg := &Config{
		Port: v.GetString("PORT"),
		DB: DBConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		Kafka: KafkaConfig{
			Broker:      v.GetString("KAFKA_BROKER"),
			NotifyTopic: v.GetString("NOTIFY_TOPIC"),
			NotifyGroup: v.GetString("NOTIFY_GROUP"),
		},
		SMTP: SMTPConfig{
			Host:      v.GetString("SMTP_HOST"),
			Port:      v.GetInt("SMTP_PORT"),
			Secure:    v.GetBool("SMTP_SECURE"),
			User:      v.GetString("SMTP_USER"),
			Password:  v.GetString("SMTP_PASSWORD"),
			FromName:  v.GetString("SMTP_FROM_NAME"),
			FromEmail: v.GetString("SMTP_FROM_EMAIL"),
			Timeout:   v.GetDuration("SMTP_TIMEOUT"),
		},
		StripeSecretKey:     v.GetString("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
		StripeAPIURL:        v.GetString("STRIPE_API_URL"),
		Currency:            v.GetString("CURRENCY"),
		AppOrigin:           v.GetString("APP_ORIGIN"),
		TestMode:            v.GetBool("TEST_MODE"),
		GatewayTimeout:      v.GetDuration("GATEWAY_TIMEOUT"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		NotifyMode:          v.GetString("NOTIFY_MODE"),
		JaegerEndpoint:      v.GetString("JAEGER_ENDPOINT"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.NotifyMode {
	case NotifyModeLog, NotifyModeKafka:
	case NotifyModeSMTP:
		if c.SMTP.Host == "" || c.SMTP.FromEmail == "" {
			return fmt.Errorf("NOTIFY_MODE=smtp requires SMTP_HOST and SMTP_FROM_EMAIL")
		}
	default:
		return fmt.Errorf("unknown NOTIFY_MODE %q", c.NotifyMode)
	}
	return nil
}

// placeholderJWTSecret is the sample value shipped in older deployment files.
const placeholderJWTSecret = "your-secret-key-change-in-production"

// RequireJWT is checked by commands that issue or accept bearer tokens.
func (c *Config) RequireJWT() error {
	switch c.JWTSecret {
	case "":
		return fmt.Errorf("JWT_SECRET is required")
	case placeholderJWTSecret:
		return fmt.Errorf("JWT_SECRET must not be the sample value")
	}
	return nil
}

// RequireStripe is checked by commands that talk to the payment gateway.
func (c *Config) RequireStripe() error {
	if c.StripeSecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if c.StripeWebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}
	return nil
}
