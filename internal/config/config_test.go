package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.DB.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %s", cfg.DB.Driver)
	}
	if cfg.Feed.Interval != 30*time.Second {
		t.Errorf("expected 30s feed interval, got %s", cfg.Feed.Interval)
	}
	if cfg.Feed.CacheTTL != 0 {
		t.Errorf("expected snapshot cache disabled by default, got %s", cfg.Feed.CacheTTL)
	}
	if cfg.Feed.AlertLimit != 10 {
		t.Errorf("expected feed alert limit 10, got %d", cfg.Feed.AlertLimit)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("FEED_INTERVAL", "5s")
	t.Setenv("NOTIFY_URLS", "logger://, ,generic://example.com")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Feed.Interval != 5*time.Second {
		t.Errorf("expected 5s, got %s", cfg.Feed.Interval)
	}
	if len(cfg.Notify.URLs) != 2 {
		t.Errorf("expected 2 notify urls, got %v", cfg.Notify.URLs)
	}
	if strings.Join(cfg.Kafka.Brokers, ",") != "k1:9092,k2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.Kafka.Brokers)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad port", "SERVER_PORT", "70000"},
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"bad driver", "DB_DRIVER", "oracle"},
		{"feed interval too short", "FEED_INTERVAL", "100ms"},
		{"zero workers", "NOTIFY_WORKERS", "0"},
		{"zero queue", "NOTIFY_QUEUE_SIZE", "0"},
		{"feed limit too large", "FEED_ALERT_LIMIT", "500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
