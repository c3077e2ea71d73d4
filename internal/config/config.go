package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

const (
	envPrefix  = "RENTAL_"
	envFileVar = "RENTAL_CONFIG_FILE"
)

type Config struct {
	Primary       Primary             `koanf:"primary"`
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	CardGateway   CardGatewayConfig   `koanf:"card_gateway"`
	WalletGateway WalletGatewayConfig `koanf:"wallet_gateway"`
	Retry         RetryConfig         `koanf:"retry"`
	Booking       BookingConfig       `koanf:"booking"`
	Notification  NotificationConfig  `koanf:"notification"`
	Redis         RedisConfig         `koanf:"redis"`
	Kafka         KafkaConfig         `koanf:"kafka"`
	RateLimit     RateLimitConfig     `koanf:"rate_limit"`
	Logger        LoggerConfig        `koanf:"logger"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port           string        `koanf:"port" validate:"required"`
	ReadTimeout    time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout   time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout    time.Duration `koanf:"idle_timeout" validate:"required"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

type CardGatewayConfig struct {
	BaseURL    string        `koanf:"base_url" validate:"required"`
	SecretKey  string        `koanf:"secret_key" validate:"required"`
	Timeout    time.Duration `koanf:"timeout" validate:"required"`
	SuccessURL string        `koanf:"success_url" validate:"required"`
	CancelURL  string        `koanf:"cancel_url" validate:"required"`
}

type WalletGatewayConfig struct {
	BaseURL      string        `koanf:"base_url" validate:"required"`
	ClientID     string        `koanf:"client_id" validate:"required"`
	ClientSecret string        `koanf:"client_secret" validate:"required"`
	Timeout      time.Duration `koanf:"timeout" validate:"required"`
}

type RetryConfig struct {
	BaseDelay  time.Duration `koanf:"base_delay"`
	MaxRetries int           `koanf:"max_retries"`
}

type BookingConfig struct {
	// ExpireAt is the lifetime of a temporary booking in seconds.
	ExpireAt      int           `koanf:"expire_at" validate:"required,gt=0"`
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"required"`
	Currency      string        `koanf:"currency" validate:"required,len=3"`
}

// TTL returns the temporary booking lifetime.
func (c BookingConfig) TTL() time.Duration {
	return time.Duration(c.ExpireAt) * time.Second
}

type NotificationConfig struct {
	AdminEmail  string `koanf:"admin_email" validate:"required,email"`
	FrontendURL string `koanf:"frontend_url" validate:"required"`
	PushURL     string `koanf:"push_url"`
	QueueSize   int    `koanf:"queue_size" validate:"required,gt=0"`
	BatchSize   int    `koanf:"batch_size" validate:"required,gt=0"`
	Workers     int    `koanf:"workers" validate:"required,gt=0"`
	MaxAttempts int    `koanf:"max_attempts"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type KafkaConfig struct {
	Brokers    []string `koanf:"brokers"`
	EmailTopic string   `koanf:"email_topic"`
}

type RateLimitConfig struct {
	RPS   float64 `koanf:"rps"`
	Burst int     `koanf:"burst"`
}

type LoggerConfig struct {
	Level    string `koanf:"level"`
	Format   string `koanf:"format"`
	Output   string `koanf:"output"`
	FilePath string `koanf:"file_path"`
}

func defaults() map[string]any {
	return map[string]any{
		"primary.env":                 "development",
		"server.port":                 "8080",
		"server.read_timeout":         "15s",
		"server.write_timeout":        "30s",
		"server.idle_timeout":         "60s",
		"server.request_timeout":      "25s",
		"database.ssl_mode":           "disable",
		"database.max_open_conns":     20,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"card_gateway.timeout":        "10s",
		"wallet_gateway.timeout":      "10s",
		"retry.base_delay":            "200ms",
		"retry.max_retries":           3,
		"booking.expire_at":           900,
		"booking.sweep_interval":      "60s",
		"booking.currency":            "usd",
		"notification.queue_size":     256,
		"notification.batch_size":     100,
		"notification.workers":        2,
		"notification.max_attempts":   3,
		"kafka.email_topic":           "booking.emails",
		"rate_limit.rps":              10,
		"rate_limit.burst":            20,
		"logger.level":                "info",
		"logger.format":               "json",
		"logger.output":               "stdout",
	}
}

// LoadConfig layers defaults, an optional YAML file named by
// RENTAL_CONFIG_FILE and RENTAL_* environment variables, then validates.
// Nested keys use a double underscore: RENTAL_BOOKING__EXPIRE_AT.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	mainConfig := &Config{}

	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New()

	if err := validate.Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return mainConfig, nil
}
