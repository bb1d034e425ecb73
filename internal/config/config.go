package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	ServiceName     string        `mapstructure:"SERVICE_NAME"`
	Env             string        `mapstructure:"ENV"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	LogFile         string        `mapstructure:"LOG_FILE"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	StoreBackend  string `mapstructure:"STORE_BACKEND"`
	DatabaseDSN   string `mapstructure:"DATABASE_DSN"`
	DBAutoMigrate bool   `mapstructure:"DB_AUTO_MIGRATE"`

	CartBackend   string        `mapstructure:"CART_BACKEND"`
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	CartTTL       time.Duration `mapstructure:"CART_TTL"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`

	PaymentSuccessRate float64 `mapstructure:"PAYMENT_SUCCESS_RATE"`
	RefundSuccessRate  float64 `mapstructure:"REFUND_SUCCESS_RATE"`

	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	SeedCatalog  bool   `mapstructure:"SEED_CATALOG"`

	LowStockThreshold int `mapstructure:"LOW_STOCK_THRESHOLD"`
}

var defaults = map[string]any{
	"SERVICE_NAME":                "minishop-fulfillment",
	"ENV":                         "dev",
	"HTTP_ADDR":                   ":8080",
	"LOG_LEVEL":                   "info",
	"LOG_FILE":                    "",
	"SHUTDOWN_TIMEOUT":            10 * time.Second,
	"STORE_BACKEND":               BackendMemory,
	"DATABASE_DSN":                "",
	"DB_AUTO_MIGRATE":             true,
	"CART_BACKEND":                BackendMemory,
	"REDIS_ADDR":                  "localhost:6379",
	"REDIS_PASSWORD":              "",
	"REDIS_DB":                    0,
	"CART_TTL":                    7 * 24 * time.Hour,
	"KAFKA_BROKERS":               "",
	"KAFKA_TOPIC":                 "minishop.fulfillment.events",
	"PAYMENT_SUCCESS_RATE":        0.95,
	"REFUND_SUCCESS_RATE":         1.0,
	"OTEL_EXPORTER_OTLP_ENDPOINT": "",
	"OTEL_EXPORTER_OTLP_INSECURE": true,
	"SEED_CATALOG":                true,
	"LOW_STOCK_THRESHOLD":         5,
}

// Load reads defaults, then the file named by CONFIG_FILE if set, then the
// environment. Later sources win.
func Load() (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required when STORE_BACKEND=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}
	switch c.CartBackend {
	case BackendMemory, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown CART_BACKEND %q", c.CartBackend))
	}
	if c.PaymentSuccessRate < 0 || c.PaymentSuccessRate > 1 {
		errs = append(errs, errors.New("PAYMENT_SUCCESS_RATE must be within [0,1]"))
	}
	if c.RefundSuccessRate < 0 || c.RefundSuccessRate > 1 {
		errs = append(errs, errors.New("REFUND_SUCCESS_RATE must be within [0,1]"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// Brokers splits KAFKA_BROKERS on commas. Empty means the relay is off.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
