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

	"github.com/SAP-F-2025/library-service/internal/config"
	"github.com/SAP-F-2025/library-service/internal/events"
	"github.com/SAP-F-2025/library-service/internal/handlers"
	"github.com/SAP-F-2025/library-service/internal/repositories"
	"github.com/SAP-F-2025/library-service/internal/repositories/memory"
	"github.com/SAP-F-2025/library-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/library-service/internal/scheduler"
	"github.com/SAP-F-2025/library-service/internal/services"
	"github.com/SAP-F-2025/library-service/internal/storage"
	"github.com/SAP-F-2025/library-service/internal/utils"
	"github.com/SAP-F-2025/library-service/internal/validator"
	"github.com/SAP-F-2025/library-service/pkg"
)

const megabyte = 1 << 20

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

	// Initialize repositories
	repoManager, err := newRepositoryManager(cfg, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	// Root context for background consumers
	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// Initialize event publisher
	publisher, err := newPublisher(rootCtx, cfg, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}

	// Initialize blob storage
	blobs, err := storage.NewLocalStore(cfg.Files.StoragePath)
	if err != nil {
		log.Fatalf("Failed to initialize file storage: %v", err)
	}

	// Initialize services
	serviceManager := services.NewServiceManager(services.ServiceDependencies{
		Repo:      repoManager.GetRepository(),
		Publisher: publisher,
		Blobs:     blobs,
		Tokens:    services.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.Issuer),
		Logger:    slogLogger,
		Validator: validator.New(),
	}, serviceManagerConfig(cfg))
	if err := serviceManager.Initialize(rootCtx); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Schedule the overdue scan
	var overdueScanner *scheduler.OverdueScanner
	if cfg.OverdueCron != "" {
		overdueScanner, err = scheduler.NewOverdueScanner(serviceManager.Reservation(), cfg.OverdueCron, slogLogger)
		if err != nil {
			log.Fatalf("Failed to initialize overdue scanner: %v", err)
		}
		overdueScanner.Start()
	}

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(serviceManager, logger)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Setup middleware
	handlers.SetupMiddleware(router, logger, cfg.CORSAllowedOrigins)

	// Setup routes
	handlerManager.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment, "storage", cfg.StorageDriver, "events", cfg.Events.Driver)
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

	// Wait for a running overdue scan
	if overdueScanner != nil {
		select {
		case <-overdueScanner.Stop().Done():
		case <-ctx.Done():
			log.Printf("Overdue scan still running at shutdown")
		}
	}

	// Shutdown services (closes the event publisher)
	if err := serviceManager.Shutdown(ctx); err != nil {
		log.Printf("Failed to shutdown services: %v", err)
	}
	stopBackground()

	// Close database and Redis connections
	if err := repoManager.Shutdown(ctx); err != nil {
		log.Printf("Failed to close repositories: %v", err)
	}

	logger.Info("Server exited")
}

func newRepositoryManager(cfg *config.Config, logger *slog.Logger) (repositories.RepositoryManager, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Warn("Using in-memory storage; data is lost on restart")
		manager := memory.NewRepositoryManager()
		return manager, manager.Initialize()
	}

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return nil, err
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Failed to initialize Redis, caching disabled", "error", err)
			redisClient = nil
		}
	}

	manager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
	})
	if err := manager.Initialize(); err != nil {
		return nil, err
	}
	return manager, nil
}

func newPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	switch cfg.Events.Driver {
	case config.EventsDriverKafka:
		publisher, err := events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.Topic, logger)
		if err != nil {
			return nil, err
		}
		return publisher, nil
	case config.EventsDriverGoChannel:
		publisher, pubSub := events.NewGoChannelPublisher(cfg.Events.Topic, logger)
		if err := events.LogEvents(ctx, pubSub, cfg.Events.Topic, logger); err != nil {
			return nil, err
		}
		return publisher, nil
	default:
		return events.NewNoopPublisher(), nil
	}
}

func serviceManagerConfig(cfg *config.Config) services.ServiceManagerConfig {
	enabled := services.ServiceConfig{Enabled: true}
	return services.ServiceManagerConfig{
		Auth:        enabled,
		User:        enabled,
		Book:        enabled,
		Category:    enabled,
		File:        enabled,
		Rating:      enabled,
		Reservation: enabled,
		Dashboard:   enabled,
		Files: services.FileServiceConfig{
			MaxCoverBytes:  int64(cfg.Files.MaxCoverSizeMB) * megabyte,
			MaxPDFBytes:    int64(cfg.Files.MaxPDFSizeMB) * megabyte,
			CoverMaxWidth:  cfg.Files.CoverMaxWidth,
			CoverMaxHeight: cfg.Files.CoverMaxHeight,
		},
		DefaultLoanDays: cfg.DefaultLoanDays,
	}
}
