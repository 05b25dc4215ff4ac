package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the service reads from the environment.
type Config struct {
	Environment string
	Port        string
	LogLevel    slog.Level

	// External collaborators
	CatalogBaseURL string
	GradingBaseURL string
	ClientTimeout  time.Duration

	// Optional infrastructure
	RedisURL     string
	DatabaseURL  string
	KafkaBrokers []string
	KafkaTopic   string

	// Liveness marker TTL for Redis-backed session registry
	SessionTTL time.Duration
}

// LoadConfig reads configuration from the environment, with .env support
// for local development.
func LoadConfig() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		Port:           getEnv("PORT", "8080"),
		LogLevel:       parseLogLevel(getEnv("LOG_LEVEL", "info")),
		CatalogBaseURL: os.Getenv("QUIZ_CATALOG_URL"),
		GradingBaseURL: os.Getenv("GRADING_SERVICE_URL"),
		ClientTimeout:  parseDuration(getEnv("CLIENT_TIMEOUT", "10s"), 10*time.Second),
		RedisURL:       os.Getenv("REDIS_URL"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "quiz-session-events"),
		SessionTTL:     parseDuration(getEnv("SESSION_TTL", "2h"), 2*time.Hour),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, broker := range strings.Split(brokers, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}

	if cfg.CatalogBaseURL == "" {
		return nil, fmt.Errorf("QUIZ_CATALOG_URL is required")
	}
	if cfg.GradingBaseURL == "" {
		return nil, fmt.Errorf("GRADING_SERVICE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
