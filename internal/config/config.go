// Package config loads storefront settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/notify"
	"github.com/fjod/storefront/internal/orders/repository"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/fjod/storefront/pkg/circuitbreaker"
	"github.com/shopspring/decimal"
)

// Order store backends.
const (
	OrderStoreSQLite   = "sqlite"
	OrderStorePostgres = "postgres"
	OrderStoreMongo    = "mongo"
	OrderStoreMemory   = "memory"
)

// Cart slot backends.
const (
	CartSlotMemory = "memory"
	CartSlotFile   = "file"
	CartSlotRedis  = "redis"
)

// Confirmation email delivery modes.
const (
	NotifierResend   = "resend"
	NotifierKafka    = "kafka"
	NotifierDisabled = "disabled"
)

type Config struct {
	HTTPPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	LogMode            string
	Environment        string

	ShippingMinor int64
	TaxRate       decimal.Decimal
	Currency      string

	OrderStore     string
	SQLitePath     string
	MigrationsPath string
	Database       repository.Credentials
	MongoURI       string
	MongoDatabase  string

	CartSlot       string
	CartDir        string
	CartTTL        time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	SessionIdleTTL time.Duration

	Notifier      string
	ResendAPIKey  string
	FromEmail     string
	SupportEmail  string
	PublicBaseURL string
	StoreName     string
	NotifyTimeout time.Duration
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaGroupID  string

	BreakerFailures    uint32
	BreakerOpenTimeout time.Duration

	OtelEnabled bool
}

// Load reads the environment. Malformed numeric or duration values are
// reported together rather than silently replaced by defaults.
func Load() (*Config, error) {
	var errs []error
	p := parser{errs: &errs}

	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		RequestTimeout:     p.envDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    p.envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: p.envInt64("MAX_REQUEST_BODY_SIZE", 1<<20), // 1MB
		LogMode:            getEnv("LOG_MODE", "prod"),
		Environment:        getEnv("APP_ENV", "development"),

		ShippingMinor: p.envInt64("SHIPPING_MINOR", pricing.DefaultShippingMinor),
		TaxRate:       p.envDecimal("TAX_RATE", pricing.DefaultTaxRate),
		Currency:      getEnv("CURRENCY", "KES"),

		OrderStore:     strings.ToLower(getEnv("ORDER_STORE", OrderStoreSQLite)),
		SQLitePath:     getEnv("SQLITE_PATH", "./storefront.db"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", ""),
		Database: repository.Credentials{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     p.envInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "storefront"),
		},
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "storefront"),

		CartSlot:       strings.ToLower(getEnv("CART_SLOT", CartSlotMemory)),
		CartDir:        getEnv("CART_DIR", "./carts"),
		CartTTL:        p.envDuration("CART_TTL", 7*24*time.Hour),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        p.envInt("REDIS_DB", 0),
		SessionIdleTTL: p.envDuration("SESSION_IDLE_TTL", 30*time.Minute),

		Notifier:      strings.ToLower(getEnv("NOTIFIER", "")),
		ResendAPIKey:  getEnv("RESEND_API_KEY", ""),
		FromEmail:     getEnv("FROM_EMAIL", notify.DefaultFromEmail),
		SupportEmail:  getEnv("SUPPORT_EMAIL", "support@example.com"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		StoreName:     getEnv("STORE_NAME", "Audiophile"),
		NotifyTimeout: p.envDuration("NOTIFY_TIMEOUT", 10*time.Second),
		KafkaBrokers:  splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", notify.DefaultTopic),
		KafkaGroupID:  getEnv("KAFKA_GROUP_ID", notify.DefaultGroupID),

		BreakerFailures:    uint32(p.envInt("BREAKER_FAILURES", 5)),
		BreakerOpenTimeout: p.envDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),

		OtelEnabled: p.envBool("OTEL_ENABLED", false),
	}

	if cfg.Notifier == "" {
		cfg.Notifier = NotifierDisabled
		if cfg.ResendAPIKey != "" {
			cfg.Notifier = NotifierResend
		}
	}
	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = defaultMigrationsPath(cfg.OrderStore)
	}
	cfg.Database.MigrationsDirPath = cfg.MigrationsPath

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.OrderStore {
	case OrderStoreSQLite, OrderStorePostgres, OrderStoreMongo, OrderStoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown ORDER_STORE %q", c.OrderStore))
	}
	switch c.CartSlot {
	case CartSlotMemory, CartSlotFile, CartSlotRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown CART_SLOT %q", c.CartSlot))
	}
	switch c.Notifier {
	case NotifierResend, NotifierKafka, NotifierDisabled:
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFIER %q", c.Notifier))
	}
	if c.Notifier == NotifierResend && c.ResendAPIKey == "" {
		errs = append(errs, errors.New("NOTIFIER=resend requires RESEND_API_KEY"))
	}
	if c.Notifier == NotifierKafka && len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("NOTIFIER=kafka requires KAFKA_BROKERS"))
	}
	if c.ShippingMinor < 0 {
		errs = append(errs, errors.New("SHIPPING_MINOR must not be negative"))
	}
	if c.TaxRate.IsNegative() || c.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		errs = append(errs, fmt.Errorf("TAX_RATE must be in [0, 1), got %s", c.TaxRate))
	}
	if c.MaxRequestBodySize <= 0 {
		errs = append(errs, errors.New("MAX_REQUEST_BODY_SIZE must be positive"))
	}
	if c.RequestTimeout <= 0 || c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	if c.BreakerFailures == 0 {
		errs = append(errs, errors.New("BREAKER_FAILURES must be at least 1"))
	}
	return errors.Join(errs...)
}

func (c *Config) PricingPolicy() pricing.Policy {
	return pricing.Policy{ShippingMinor: c.ShippingMinor, TaxRate: c.TaxRate}
}

func (c *Config) Email() notify.Config {
	return notify.Config{
		APIKey:        c.ResendAPIKey,
		FromEmail:     c.FromEmail,
		SupportEmail:  c.SupportEmail,
		PublicBaseURL: c.PublicBaseURL,
		Currency:      c.Currency,
		StoreName:     c.StoreName,
	}
}

func (c *Config) Breaker(name string) circuitbreaker.Config {
	cb := circuitbreaker.DefaultConfig(name)
	cb.ConsecutiveFailures = c.BreakerFailures
	cb.OpenTimeout = c.BreakerOpenTimeout
	return cb
}

func defaultMigrationsPath(store string) string {
	switch store {
	case OrderStorePostgres:
		return "./internal/orders/repository/migrations/postgres"
	default:
		return "./internal/orders/repository/migrations/sqlite"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser collects conversion errors so Load can report all of them.
type parser struct {
	errs *[]error
}

func (p parser) fail(key, value string, err error) {
	*p.errs = append(*p.errs, fmt.Errorf("invalid %s=%q: %w", key, value, err))
}

func (p parser) envInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return n
}

func (p parser) envInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return n
}

func (p parser) envDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return d
}

func (p parser) envBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return b
}

func (p parser) envDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return d
}
