package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"

	CartMemory = "memory"
	CartRedis  = "redis"
)

type Config struct {
	ServiceName string
	Env         string
	HTTPAddr    string
	LogLevel    string
	LogFile     string

	StoreDriver string
	DatabaseURL string

	CartDriver    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CartTTL       time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	GatewayBaseURL   string
	GatewayKeyID     string
	GatewayKeySecret string
	GatewayTimeout   time.Duration
	Currency         string

	WebhookSecret []byte
	JWTSecret     []byte

	SMTPAddr     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	ShutdownTimeout time.Duration
}

// Load reads the environment, after merging a .env file from the working
// directory when one exists. Values already set in the environment win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		ServiceName: EnvDefault("SERVICE_NAME", "minishop-checkout"),
		Env:         EnvDefault("ENV", "dev"),
		HTTPAddr:    EnvDefault("HTTP_ADDR", ":8080"),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),
		LogFile:     os.Getenv("LOG_FILE"),

		StoreDriver: strings.ToLower(EnvDefault("STORE_DRIVER", StoreMemory)),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		CartDriver:    strings.ToLower(EnvDefault("CART_DRIVER", CartMemory)),
		RedisAddr:     EnvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       EnvIntDefault("REDIS_DB", 0),
		CartTTL:       EnvDurationDefault("CART_TTL", 7*24*time.Hour),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   EnvDefault("KAFKA_TOPIC", "minishop.checkout.events"),

		GatewayBaseURL:   os.Getenv("GATEWAY_BASE_URL"),
		GatewayKeyID:     os.Getenv("GATEWAY_KEY_ID"),
		GatewayKeySecret: os.Getenv("GATEWAY_KEY_SECRET"),
		GatewayTimeout:   EnvDurationDefault("GATEWAY_TIMEOUT", 10*time.Second),
		Currency:         strings.ToUpper(EnvDefault("CURRENCY", "INR")),

		WebhookSecret: []byte(os.Getenv("WEBHOOK_SECRET")),
		JWTSecret:     []byte(os.Getenv("JWT_SECRET")),

		SMTPAddr:     os.Getenv("SMTP_ADDR"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),

		ShutdownTimeout: EnvDurationDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	return cfg, cfg.Validate()
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	errs = append(errs,
		MustNonEmptyBytes(c.WebhookSecret, "WEBHOOK_SECRET"),
		MustNonEmptyBytes(c.JWTSecret, "JWT_SECRET"),
	)
	switch c.StoreDriver {
	case StoreMemory:
	case StoreSQLite, StorePostgres:
		errs = append(errs, MustNonEmpty(c.DatabaseURL, "DATABASE_URL"))
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q: want memory, sqlite or postgres", c.StoreDriver))
	}
	switch c.CartDriver {
	case CartMemory, CartRedis:
	default:
		errs = append(errs, fmt.Errorf("CART_DRIVER %q: want memory or redis", c.CartDriver))
	}
	if (c.GatewayKeyID == "") != (c.GatewayKeySecret == "") {
		errs = append(errs, errors.New("GATEWAY_KEY_ID and GATEWAY_KEY_SECRET must be set together"))
	}
	if c.SMTPAddr != "" {
		errs = append(errs, MustNonEmpty(c.SMTPFrom, "SMTP_FROM"))
	}
	if len(c.Currency) != 3 {
		errs = append(errs, fmt.Errorf("CURRENCY %q: want an ISO 4217 code", c.Currency))
	}
	return errors.Join(errs...)
}

// GatewaySandboxed is true when no gateway credentials are configured.
func (c Config) GatewaySandboxed() bool {
	return c.GatewayKeyID == ""
}

func MustNonEmpty(value, envName string) error {
	if value == "" {
		return fmt.Errorf("missing required env %s", envName)
	}
	return nil
}

func MustNonEmptyBytes(value []byte, envName string) error {
	if len(value) == 0 {
		return fmt.Errorf("missing required env %s", envName)
	}
	return nil
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
