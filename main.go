package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/classlight/quiz-session-service/internal/archive"
	"github.com/classlight/quiz-session-service/internal/clients"
	"github.com/classlight/quiz-session-service/internal/config"
	"github.com/classlight/quiz-session-service/internal/events"
	"github.com/classlight/quiz-session-service/internal/handlers"
	"github.com/classlight/quiz-session-service/internal/reports"
	"github.com/classlight/quiz-session-service/internal/services"
	"github.com/classlight/quiz-session-service/internal/store"
	"github.com/classlight/quiz-session-service/internal/utils"
	"github.com/classlight/quiz-session-service/internal/validator"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize attempt archive (if a database is configured)
	var db *gorm.DB
	archiver := archive.NewNoopArchiver()
	if cfg.DatabaseURL != "" {
		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := archive.Migrate(db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		archiver = archive.NewArchiver(db, slogLogger)
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Warning: Redis unreachable, falling back to in-memory store: %v", err)
			redisClient = nil
		}
	}

	// Initialize session store
	var sessionStore store.SessionStore
	if redisClient != nil {
		sessionStore = store.NewRedisStore(redisClient, cfg.SessionTTL)
	} else {
		sessionStore = store.NewMemoryStore()
	}

	// Initialize event publisher
	var publisher events.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err = events.NewKafkaEventPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, slogLogger)
		if err != nil {
			log.Fatalf("Failed to create Kafka publisher: %v", err)
		}
	} else {
		publisher = events.NewLogEventPublisher(slogLogger)
	}

	// Initialize external collaborators
	catalogClient := clients.NewCatalogClient(cfg.CatalogBaseURL, cfg.ClientTimeout, slogLogger)
	gradingClient := clients.NewGradingClient(cfg.GradingBaseURL, cfg.ClientTimeout, slogLogger)

	// Initialize validator
	validator := validator.New()

	// Initialize services
	sessionService := services.NewSessionService(services.Deps{
		Store:     sessionStore,
		Loader:    catalogClient,
		Grader:    gradingClient,
		Logger:    slogLogger,
		Validator: validator,
		Publisher: publisher,
		Archiver:  archiver,
	})

	// Initialize handlers
	exporter := reports.NewExporter(archiver)
	handlerManager := handlers.NewHandlerManager(sessionService, exporter, logger)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Setup middleware
	handlers.SetupMiddleware(router, logger)

	// Setup routes
	handlerManager.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Close event publisher
	if err := publisher.Close(); err != nil {
		log.Printf("Failed to close event publisher: %v", err)
	}

	// Close database connection
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("Server exited")
}
