package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/library-service/internal/cache"
	"github.com/SAP-F-2025/library-service/internal/repositories"
)

// PostgreSQLRepository implements the main Repository interface
type PostgreSQLRepository struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cacheManager *cache.CacheManager
	invalidator  *cache.Invalidator

	// Repository instances
	user        repositories.UserRepository
	book        repositories.BookRepository
	category    repositories.CategoryRepository
	file        repositories.FileRepository
	rating      repositories.RatingRepository
	reservation repositories.ReservationRepository
	dashboard   repositories.DashboardRepository
}

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	DB          *gorm.DB
	RedisClient *redis.Client
}

// NewPostgreSQLRepository creates a new repository manager with all sub-repositories
func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	cacheManager := cache.NewCacheManager(config.RedisClient)
	return newRepository(config.DB, config.RedisClient, cacheManager, cache.NewImmediateInvalidator())
}

func newRepository(db *gorm.DB, redisClient *redis.Client, cacheManager *cache.CacheManager, inv *cache.Invalidator) *PostgreSQLRepository {
	repo := &PostgreSQLRepository{
		db:           db,
		redisClient:  redisClient,
		cacheManager: cacheManager,
		invalidator:  inv,
	}

	repo.user = NewUserPostgreSQL(db)
	repo.book = NewBookPostgreSQL(db, cacheManager, inv)
	repo.category = NewCategoryPostgreSQL(db, cacheManager, inv)
	repo.file = NewFilePostgreSQL(db, cacheManager, inv)
	repo.rating = NewRatingPostgreSQL(db, cacheManager, inv)
	repo.reservation = NewReservationPostgreSQL(db)
	repo.dashboard = NewDashboardRepository(db)

	return repo
}

// User returns the user repository
func (r *PostgreSQLRepository) User() repositories.UserRepository {
	return r.user
}

// Book returns the book repository
func (r *PostgreSQLRepository) Book() repositories.BookRepository {
	return r.book
}

// Category returns the category repository
func (r *PostgreSQLRepository) Category() repositories.CategoryRepository {
	return r.category
}

// File returns the file repository
func (r *PostgreSQLRepository) File() repositories.FileRepository {
	return r.file
}

// Rating returns the rating repository
func (r *PostgreSQLRepository) Rating() repositories.RatingRepository {
	return r.rating
}

// Reservation returns the reservation repository
func (r *PostgreSQLRepository) Reservation() repositories.ReservationRepository {
	return r.reservation
}

// Dashboard returns the analytics repository
func (r *PostgreSQLRepository) Dashboard() repositories.DashboardRepository {
	return r.dashboard
}

// WithTransaction executes a function within a database transaction.
// Cache invalidations issued inside fn run only after a successful commit.
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	inv := cache.NewDeferredInvalidator()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Create a new repository instance with the transaction
		txRepo := newRepository(tx, r.redisClient, r.cacheManager, inv)
		return fn(txRepo)
	})
	if err != nil {
		inv.Discard()
		return err
	}

	inv.Flush(ctx)
	return nil
}

// Ping checks the health of database and cache connections
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	// Check database connection
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Check cache connection
	if r.redisClient != nil {
		if err := r.cacheManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache ping failed: %w", err)
		}
	}

	return nil
}

// Close closes all connections
func (r *PostgreSQLRepository) Close() error {
	// Close database connection
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	// Close Redis connection
	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			return fmt.Errorf("failed to close Redis: %w", err)
		}
	}

	return nil
}

// RepositoryManager implements the RepositoryManager interface
type RepositoryManager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

// NewRepositoryManager creates a new repository manager
func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &RepositoryManager{
		config: config,
	}
}

// Initialize initializes all repositories and connections
func (rm *RepositoryManager) Initialize() error {
	// Validate configuration
	if rm.config.DB == nil {
		return fmt.Errorf("database connection is required")
	}

	// Test database connection
	sqlDB, err := rm.config.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	// Test Redis connection if provided
	if rm.config.RedisClient != nil {
		if _, err := rm.config.RedisClient.Ping(ctx).Result(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
	}

	rm.repo = NewPostgreSQLRepository(rm.config)

	return nil
}

// GetRepository returns the repository instance
func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

// HealthCheck checks the health of all repository connections
func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repository not initialized")
	}

	return rm.repo.Ping(ctx)
}

// Shutdown gracefully shuts down all repository connections
func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}

	return rm.repo.Close()
}
