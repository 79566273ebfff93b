package repositories

import (
	"context"

	"github.com/SAP-F-2025/library-service/internal/models"
)

// UserRepository interface for user operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error

	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)

	// List and search operations
	List(ctx context.Context, filters UserFilters) ([]*models.User, int64, error)

	// Validation and checks
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// IncrementTokenVersion revokes every token issued before the call and
	// returns the new version.
	IncrementTokenVersion(ctx context.Context, id string) (int, error)
}
