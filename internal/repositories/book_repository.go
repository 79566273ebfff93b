package repositories

import (
	"context"

	"github.com/SAP-F-2025/library-service/internal/models"
)

// BookRepository interface for catalog operations
type BookRepository interface {
	Create(ctx context.Context, book *models.Book) error
	Update(ctx context.Context, book *models.Book) error
	Delete(ctx context.Context, id uint) error

	GetByID(ctx context.Context, id uint) (*models.Book, error)
	// GetForUpdate reads the book holding a row lock until the surrounding transaction ends
	GetForUpdate(ctx context.Context, id uint) (*models.Book, error)
	GetWithStats(ctx context.Context, id uint) (*models.BookWithStats, error)

	List(ctx context.Context, filters BookFilters) ([]*models.BookWithStats, int64, error)
	Popular(ctx context.Context, limit int) ([]*models.BookWithStats, error)
	Newest(ctx context.Context, limit int) ([]*models.BookWithStats, error)

	// Category links
	ReplaceCategories(ctx context.Context, bookID uint, categoryIDs []uint) error
	CategoriesForBooks(ctx context.Context, bookIDs []uint) (map[uint][]models.Category, error)

	// Copy accounting. Both are conditional single-row updates.
	DecrementAvailable(ctx context.Context, id uint) error
	IncrementAvailable(ctx context.Context, id uint) error
	// AdjustCopies shifts total and available by the same delta
	AdjustCopies(ctx context.Context, id uint, delta int) error
	CopyCounts(ctx context.Context, id uint) (*CopyCounts, error)
}

// CategoryRepository interface for category operations
type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id uint) error

	GetByID(ctx context.Context, id uint) (*models.Category, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Category, error)
	List(ctx context.Context) ([]*models.Category, error)
	ExistsByName(ctx context.Context, name string, excludeID uint) (bool, error)
	CountBooks(ctx context.Context, id uint) (int64, error)
}

// FileRepository interface for book attachments
type FileRepository interface {
	Create(ctx context.Context, file *models.File) error
	Delete(ctx context.Context, id uint) error

	GetByID(ctx context.Context, id uint) (*models.File, error)
	GetByBookAndType(ctx context.Context, bookID uint, fileType models.FileType) (*models.File, error)
	ListByBook(ctx context.Context, bookID uint) ([]*models.File, error)
}
