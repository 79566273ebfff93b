package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SAP-F-2025/library-service/internal/events"
	"github.com/SAP-F-2025/library-service/internal/repositories"
	"github.com/SAP-F-2025/library-service/internal/storage"
	"github.com/SAP-F-2025/library-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// Service-specific configurations
	Auth        ServiceConfig
	User        ServiceConfig
	Book        ServiceConfig
	Category    ServiceConfig
	File        ServiceConfig
	Rating      ServiceConfig
	Reservation ServiceConfig
	Dashboard   ServiceConfig

	// Domain settings
	Files           FileServiceConfig
	DefaultLoanDays int
}

type ServiceConfig struct {
	Enabled bool
}

// ServiceDependencies are the collaborators shared by every service
type ServiceDependencies struct {
	Repo      repositories.Repository
	Publisher events.Publisher
	Blobs     storage.BlobStore
	Tokens    *TokenManager
	Logger    *slog.Logger
	Validator *validator.Validator
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	deps   ServiceDependencies
	logger *slog.Logger
	config ServiceManagerConfig
	guard  *Guard

	// Service instances
	authService        AuthService
	userService        UserService
	bookService        BookService
	categoryService    CategoryService
	fileService        FileService
	ratingService      RatingService
	reservationService ReservationService
	dashboardService   DashboardService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps ServiceDependencies, config ServiceManagerConfig) ServiceManager {
	if deps.Publisher == nil {
		deps.Publisher = events.NewNoopPublisher()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	return &serviceManager{
		deps:   deps,
		logger: deps.Logger,
		config: config,
		guard:  NewGuard(),
	}
}

// NewDefaultServiceManager enables every service with default limits
func NewDefaultServiceManager(deps ServiceDependencies) ServiceManager {
	enabled := ServiceConfig{Enabled: true}
	return NewServiceManager(deps, ServiceManagerConfig{
		Auth:            enabled,
		User:            enabled,
		Book:            enabled,
		Category:        enabled,
		File:            enabled,
		Rating:          enabled,
		Reservation:     enabled,
		Dashboard:       enabled,
		Files:           DefaultFileServiceConfig(),
		DefaultLoanDays: defaultLoanDays,
	})
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.config.Validate(); err != nil {
		return err
	}
	if err := sm.initializeServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices() error {
	d := sm.deps

	if sm.config.Auth.Enabled {
		if d.Tokens == nil {
			return fmt.Errorf("auth service requires a token manager")
		}
		sm.authService = NewAuthService(d.Repo, d.Tokens, d.Logger, d.Validator)
		sm.logger.Info("Auth service initialized")
	}

	if sm.config.User.Enabled {
		sm.userService = NewUserService(d.Repo, sm.guard, d.Logger, d.Validator)
		sm.logger.Info("User service initialized")
	}

	if sm.config.Book.Enabled {
		if d.Blobs == nil {
			return fmt.Errorf("book service requires a blob store")
		}
		sm.bookService = NewBookService(d.Repo, d.Blobs, d.Logger, d.Validator)
		sm.logger.Info("Book service initialized")
	}

	if sm.config.Category.Enabled {
		sm.categoryService = NewCategoryService(d.Repo, d.Logger, d.Validator)
		sm.logger.Info("Category service initialized")
	}

	if sm.config.File.Enabled {
		if d.Blobs == nil {
			return fmt.Errorf("file service requires a blob store")
		}
		sm.fileService = NewFileService(d.Repo, d.Blobs, sm.config.Files, d.Logger)
		sm.logger.Info("File service initialized")
	}

	if sm.config.Rating.Enabled {
		sm.ratingService = NewRatingService(d.Repo, d.Logger, d.Validator)
		sm.logger.Info("Rating service initialized")
	}

	if sm.config.Reservation.Enabled {
		sm.reservationService = NewReservationService(d.Repo, d.Publisher, d.Logger, d.Validator, sm.config.DefaultLoanDays)
		sm.logger.Info("Reservation service initialized")
	}

	if sm.config.Dashboard.Enabled {
		sm.dashboardService = NewDashboardService(d.Repo, d.Logger)
		sm.logger.Info("Dashboard service initialized")
	}

	return nil
}

// Service getters

func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()

	if sm.authService != nil {
		return sm.authService
	}
	panic("auth service not enabled or not initialized")
}

func (sm *serviceManager) User() UserService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()

	if sm.userService != nil {
		return sm.userService
	}
	panic("user service not enabled or not initialized")
}

func (sm *serviceManager) Book() BookService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()

	if sm.bookService != nil {
		return sm.bookService
	}
	panic("book service not enabled or not initialized")
}

func (sm *serviceManager) Category() CategoryService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()

	if sm.categoryService != nil {
		return sm.categoryService
	}
	panic("category service not enabled or not initialized")
}

func (sm *serviceManager) File() FileService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()

	if sm.fileService != nil {
		return sm.fileService
	}
	panic("file service not enabled or not initialized")
}

func (sm *serviceManager) Rating() RatingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()

	if sm.ratingService != nil {
		return sm.ratingService
	}
	panic("rating service not enabled or not initialized")
}

func (sm *serviceManager) Reservation() ReservationService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()

	if sm.reservationService != nil {
		return sm.reservationService
	}
	panic("reservation service not enabled or not initialized")
}

func (sm *serviceManager) Dashboard() DashboardService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()

	if sm.dashboardService != nil {
		return sm.dashboardService
	}
	panic("dashboard service not enabled or not initialized")
}

func (sm *serviceManager) Guard() *Guard {
	return sm.guard
}

func (sm *serviceManager) mustBeInitialized() {
	if !sm.initialized {
		panic("service manager not initialized")
	}
}

// Health and lifecycle

func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if err := sm.deps.Publisher.Close(); err != nil {
		sm.logger.Error("Failed to close event publisher", "error", err)
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

// ===== CONFIGURATION VALIDATION =====

// Validate validates the service manager configuration
func (config *ServiceManagerConfig) Validate() error {
	var errors []string

	if config.DefaultLoanDays <= 0 {
		errors = append(errors, "default loan days must be positive")
	}
	if config.File.Enabled {
		if config.Files.MaxCoverBytes <= 0 || config.Files.MaxPDFBytes <= 0 {
			errors = append(errors, "file size limits must be positive")
		}
		if config.Files.CoverMaxWidth <= 0 || config.Files.CoverMaxHeight <= 0 {
			errors = append(errors, "cover dimensions must be positive")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}
	return nil
}
