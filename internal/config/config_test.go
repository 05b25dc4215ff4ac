package config

import (
	"log/slog"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("QUIZ_CATALOG_URL", "http://catalog:8081")
	t.Setenv("GRADING_SERVICE_URL", "http://grading:8082")
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		setRequired(t)

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Port != "8080" {
			t.Errorf("Expected default port 8080, got %s", cfg.Port)
		}
		if cfg.Environment != "development" {
			t.Errorf("Expected development environment, got %s", cfg.Environment)
		}
		if cfg.LogLevel != slog.LevelInfo {
			t.Errorf("Expected info level, got %v", cfg.LogLevel)
		}
		if cfg.ClientTimeout != 10*time.Second {
			t.Errorf("Expected 10s client timeout, got %s", cfg.ClientTimeout)
		}
		if cfg.SessionTTL != 2*time.Hour {
			t.Errorf("Expected 2h session TTL, got %s", cfg.SessionTTL)
		}
		if len(cfg.KafkaBrokers) != 0 {
			t.Errorf("Expected no brokers by default, got %v", cfg.KafkaBrokers)
		}
	})

	t.Run("missing catalog url", func(t *testing.T) {
		t.Setenv("QUIZ_CATALOG_URL", "")
		t.Setenv("GRADING_SERVICE_URL", "http://grading:8082")

		if _, err := LoadConfig(); err == nil {
			t.Fatal("Expected error for missing QUIZ_CATALOG_URL")
		}
	})

	t.Run("kafka brokers parsed", func(t *testing.T) {
		setRequired(t)
		t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092 ,")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[0] != "broker1:9092" || cfg.KafkaBrokers[1] != "broker2:9092" {
			t.Errorf("Unexpected brokers: %v", cfg.KafkaBrokers)
		}
	})

	t.Run("log level parsed", func(t *testing.T) {
		setRequired(t)
		t.Setenv("LOG_LEVEL", "debug")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.LogLevel != slog.LevelDebug {
			t.Errorf("Expected debug level, got %v", cfg.LogLevel)
		}
	})
}
