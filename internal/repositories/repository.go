package repositories

import "context"

// Repository aggregates all repository interfaces
type Repository interface {
	// Identity domain
	User() UserRepository

	// Catalog domain
	Book() BookRepository
	Category() CategoryRepository
	File() FileRepository

	// Rating domain
	Rating() RatingRepository

	// Reservation domain
	Reservation() ReservationRepository

	// Analytics
	Dashboard() DashboardRepository

	// Transaction support. Sub-repositories obtained from the callback's
	// Repository share one transaction that commits when fn returns nil.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
