package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	GRPC      GRPCConfig
	DB        DatabaseConfig
	Feed      FeedConfig
	Notify    NotifyConfig
	Telegram  TelegramConfig
	Kafka     KafkaConfig
	Dashboard DashboardConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	RateLimit      int // requests per second, 0 disables
	AllowedOrigins []string
}

type GRPCConfig struct {
	Enabled bool
	Port    int
}

type DatabaseConfig struct {
	Driver string // sqlite, postgres or mysql
	DSN    string
}

type FeedConfig struct {
	Interval   time.Duration
	AlertLimit int
	CacheTTL   time.Duration // 0 disables the shared snapshot cache
}

type NotifyConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
	URLs      []string // shoutrrr service urls for the operator broadcast
}

type TelegramConfig struct {
	Token         string
	RatePerSecond int
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
	GroupID string
}

type DashboardConfig struct {
	ServerURL    string
	PollInterval time.Duration
}

type LoggingConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "localhost"),
			Port:           getEnvInt("SERVER_PORT", 8080),
			RateLimit:      getEnvInt("RATE_LIMIT_RPS", 20),
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		GRPC: GRPCConfig{
			Enabled: getEnvBool("GRPC_ENABLED", false),
			Port:    getEnvInt("GRPC_PORT", 50051),
		},
		DB: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			DSN:    getEnv("DATABASE_URL", "./data/safetywatch.db"),
		},
		Feed: FeedConfig{
			Interval:   getEnvDuration("FEED_INTERVAL", 30*time.Second),
			AlertLimit: getEnvInt("FEED_ALERT_LIMIT", 10),
			CacheTTL:   getEnvDuration("FEED_CACHE_TTL", 0),
		},
		Notify: NotifyConfig{
			Workers:   getEnvInt("NOTIFY_WORKERS", 2),
			QueueSize: getEnvInt("NOTIFY_QUEUE_SIZE", 100),
			Timeout:   getEnvDuration("NOTIFY_TIMEOUT", 10*time.Second),
			URLs:      getEnvList("NOTIFY_URLS", nil),
		},
		Telegram: TelegramConfig{
			Token:         getEnv("TELEGRAM_BOT_TOKEN", ""),
			RatePerSecond: getEnvInt("TELEGRAM_RATE_PER_SECOND", 25),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC", "safety.detections"),
			GroupID: getEnv("KAFKA_GROUP_ID", "safetywatch"),
		},
		Dashboard: DashboardConfig{
			ServerURL:    getEnv("SAFETYWATCH_URL", "http://localhost:8080"),
			PollInterval: getEnvDuration("DASHBOARD_POLL_INTERVAL", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 50),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 14),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.GRPC.Enabled && (c.GRPC.Port < 1 || c.GRPC.Port > 65535) {
		return fmt.Errorf("invalid grpc port: %d", c.GRPC.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative: %d", c.Server.RateLimit)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.DB.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}

	if c.Feed.Interval < time.Second {
		return fmt.Errorf("feed interval must be at least 1 second")
	}
	if c.Feed.AlertLimit < 1 || c.Feed.AlertLimit > 100 {
		return fmt.Errorf("feed alert limit must be between 1 and 100: %d", c.Feed.AlertLimit)
	}
	if c.Feed.CacheTTL < 0 {
		return fmt.Errorf("feed cache ttl must not be negative")
	}

	if c.Notify.Workers < 1 {
		return fmt.Errorf("notify workers must be at least 1")
	}
	if c.Notify.QueueSize < 1 {
		return fmt.Errorf("notify queue size must be at least 1")
	}
	if c.Telegram.Token != "" && c.Telegram.RatePerSecond < 1 {
		return fmt.Errorf("telegram rate must be at least 1 per second")
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS must not be empty when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("KAFKA_TOPIC must not be empty when kafka is enabled")
		}
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma separated value, dropping empty entries.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
