package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/library-service/internal/cache"
	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
	invalidator  *cache.Invalidator
}

func NewBookPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager, inv *cache.Invalidator) repositories.BookRepository {
	return &BookPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(),
		cacheManager: cacheManager,
		invalidator:  inv,
	}
}

func (b *BookPostgreSQL) getDB(ctx context.Context) *gorm.DB {
	return b.db.WithContext(ctx)
}

func (b *BookPostgreSQL) invalidate(ctx context.Context, id uint) {
	b.invalidator.Delete(ctx, b.cacheManager.Book, cache.BookKey(id))
}

func (b *BookPostgreSQL) Create(ctx context.Context, book *models.Book) error {
	return translateError(b.getDB(ctx).Omit(clause.Associations).Create(book).Error)
}

func (b *BookPostgreSQL) Update(ctx context.Context, book *models.Book) error {
	result := b.getDB(ctx).Model(book).
		Select("title", "author", "description", "isbn", "updated_at").
		Updates(book)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	b.invalidate(ctx, book.ID)
	return nil
}

func (b *BookPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := b.getDB(ctx).Delete(&models.Book{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	b.invalidate(ctx, id)
	b.invalidator.Delete(ctx, b.cacheManager.Rating, cache.RatingSummaryKey(id))
	b.invalidator.Delete(ctx, b.cacheManager.Category, cache.CategoryListKey)
	return nil
}

func (b *BookPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	if err := b.getDB(ctx).First(&book, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &book, nil
}

func (b *BookPostgreSQL) GetForUpdate(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	if err := b.getDB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &book, nil
}

func (b *BookPostgreSQL) GetWithStats(ctx context.Context, id uint) (*models.BookWithStats, error) {
	var book models.BookWithStats

	err := b.cacheManager.Book.CacheOrExecute(ctx, cache.BookKey(id), &book, cache.BookCacheConfig.TTL, func() (interface{}, error) {
		var row models.BookWithStats
		result := b.helpers.bookStatsQuery(b.getDB(ctx)).
			Where("books.id = ?", id).
			Limit(1).
			Scan(&row)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to get book: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, repositories.ErrNotFound
		}
		return &row, nil
	})
	if err != nil {
		return nil, err
	}

	return &book, nil
}

func (b *BookPostgreSQL) List(ctx context.Context, filters repositories.BookFilters) ([]*models.BookWithStats, int64, error) {
	var books []*models.BookWithStats
	var total int64

	countQuery := b.helpers.ApplyBookFilters(b.getDB(ctx).Model(&models.Book{}), filters)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := b.helpers.ApplyBookFilters(b.helpers.bookStatsQuery(b.getDB(ctx)), filters)
	query = b.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Scan(&books).Error; err != nil {
		return nil, 0, err
	}

	return books, total, nil
}

func (b *BookPostgreSQL) Popular(ctx context.Context, limit int) ([]*models.BookWithStats, error) {
	var books []*models.BookWithStats
	err := b.helpers.bookStatsQuery(b.getDB(ctx)).
		Order("ratings_count DESC").
		Order("average_rating DESC").
		Order("books.id ASC").
		Limit(limit).
		Scan(&books).Error
	return books, err
}

func (b *BookPostgreSQL) Newest(ctx context.Context, limit int) ([]*models.BookWithStats, error) {
	var books []*models.BookWithStats
	err := b.helpers.bookStatsQuery(b.getDB(ctx)).
		Order("books.created_at DESC").
		Order("books.id DESC").
		Limit(limit).
		Scan(&books).Error
	return books, err
}

func (b *BookPostgreSQL) ReplaceCategories(ctx context.Context, bookID uint, categoryIDs []uint) error {
	db := b.getDB(ctx)
	if err := db.Exec("DELETE FROM book_categories WHERE book_id = ?", bookID).Error; err != nil {
		return fmt.Errorf("failed to clear categories: %w", err)
	}

	if len(categoryIDs) > 0 {
		placeholders := make([]string, 0, len(categoryIDs))
		args := make([]interface{}, 0, len(categoryIDs)*2)
		for _, id := range categoryIDs {
			placeholders = append(placeholders, "(?, ?)")
			args = append(args, bookID, id)
		}
		sql := "INSERT INTO book_categories (book_id, category_id) VALUES " +
			strings.Join(placeholders, ", ") + " ON CONFLICT DO NOTHING"
		if err := db.Exec(sql, args...).Error; err != nil {
			return fmt.Errorf("failed to link categories: %w", err)
		}
	}

	b.invalidate(ctx, bookID)
	b.invalidator.Delete(ctx, b.cacheManager.Category, cache.CategoryListKey)
	return nil
}

type bookCategoryRow struct {
	BookID     uint
	CategoryID uint
	Name       string
}

func (b *BookPostgreSQL) CategoriesForBooks(ctx context.Context, bookIDs []uint) (map[uint][]models.Category, error) {
	result := make(map[uint][]models.Category, len(bookIDs))
	if len(bookIDs) == 0 {
		return result, nil
	}

	var rows []bookCategoryRow
	if err := b.getDB(ctx).Table("book_categories AS bc").
		Select("bc.book_id, c.id AS category_id, c.name").
		Joins("JOIN categories c ON c.id = bc.category_id").
		Where("bc.book_id IN ?", bookIDs).
		Order("c.name ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.BookID] = append(result[row.BookID], models.Category{ID: row.CategoryID, Name: row.Name})
	}
	return result, nil
}

func (b *BookPostgreSQL) DecrementAvailable(ctx context.Context, id uint) error {
	result := b.getDB(ctx).Model(&models.Book{}).
		Where("id = ? AND available_copies > 0", id).
		Update("available_copies", gorm.Expr("available_copies - 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNoAvailableCopies
	}
	b.invalidate(ctx, id)
	return nil
}

func (b *BookPostgreSQL) IncrementAvailable(ctx context.Context, id uint) error {
	result := b.getDB(ctx).Model(&models.Book{}).
		Where("id = ? AND available_copies < total_copies", id).
		Update("available_copies", gorm.Expr("available_copies + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrCopyOverflow
	}
	b.invalidate(ctx, id)
	return nil
}

func (b *BookPostgreSQL) AdjustCopies(ctx context.Context, id uint, delta int) error {
	if delta == 0 {
		return nil
	}
	result := b.getDB(ctx).Model(&models.Book{}).
		Where("id = ? AND available_copies + ? >= 0", id, delta).
		Updates(map[string]interface{}{
			"total_copies":     gorm.Expr("total_copies + ?", delta),
			"available_copies": gorm.Expr("available_copies + ?", delta),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNoAvailableCopies
	}
	b.invalidate(ctx, id)
	return nil
}

func (b *BookPostgreSQL) CopyCounts(ctx context.Context, id uint) (*repositories.CopyCounts, error) {
	var book models.Book
	if err := b.getDB(ctx).Select("id", "total_copies", "available_copies").First(&book, id).Error; err != nil {
		return nil, translateError(err)
	}

	var active int64
	if err := b.getDB(ctx).Model(&models.Reservation{}).
		Where("book_id = ? AND status IN ?", id, models.ActiveReservationStatuses).
		Count(&active).Error; err != nil {
		return nil, err
	}

	return &repositories.CopyCounts{
		BookID:             book.ID,
		TotalCopies:        book.TotalCopies,
		AvailableCopies:    book.AvailableCopies,
		ActiveReservations: active,
	}, nil
}

// ===== CATEGORIES =====

type CategoryPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
	invalidator  *cache.Invalidator
}

func NewCategoryPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager, inv *cache.Invalidator) repositories.CategoryRepository {
	return &CategoryPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
		invalidator:  inv,
	}
}

func (c *CategoryPostgreSQL) getDB(ctx context.Context) *gorm.DB {
	return c.db.WithContext(ctx)
}

func (c *CategoryPostgreSQL) invalidate(ctx context.Context) {
	c.invalidator.Delete(ctx, c.cacheManager.Category, cache.CategoryListKey)
}

func (c *CategoryPostgreSQL) withBookCount(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Category{}).
		Select("categories.*, (SELECT COUNT(*) FROM book_categories bc WHERE bc.category_id = categories.id) AS book_count")
}

func (c *CategoryPostgreSQL) Create(ctx context.Context, category *models.Category) error {
	if err := c.getDB(ctx).Create(category).Error; err != nil {
		return translateError(err)
	}
	c.invalidate(ctx)
	return nil
}

func (c *CategoryPostgreSQL) Update(ctx context.Context, category *models.Category) error {
	result := c.getDB(ctx).Model(category).Select("name", "updated_at").Updates(category)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	c.invalidate(ctx)
	return nil
}

func (c *CategoryPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := c.getDB(ctx).Delete(&models.Category{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	c.invalidate(ctx)
	return nil
}

func (c *CategoryPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := c.withBookCount(c.getDB(ctx)).First(&category, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &category, nil
}

func (c *CategoryPostgreSQL) GetByIDs(ctx context.Context, ids []uint) ([]models.Category, error) {
	var categories []models.Category
	if len(ids) == 0 {
		return categories, nil
	}
	if err := c.getDB(ctx).Where("id IN ?", ids).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *CategoryPostgreSQL) List(ctx context.Context) ([]*models.Category, error) {
	var categories []*models.Category

	err := c.cacheManager.Category.CacheOrExecute(ctx, cache.CategoryListKey, &categories, cache.CategoryCacheConfig.TTL, func() (interface{}, error) {
		var rows []*models.Category
		if err := c.withBookCount(c.getDB(ctx)).Order("name ASC").Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to list categories: %w", err)
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}

	return categories, nil
}

func (c *CategoryPostgreSQL) ExistsByName(ctx context.Context, name string, excludeID uint) (bool, error) {
	var count int64
	query := c.getDB(ctx).Model(&models.Category{}).Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name)))
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (c *CategoryPostgreSQL) CountBooks(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := c.getDB(ctx).Table("book_categories").Where("category_id = ?", id).Count(&count).Error
	return count, err
}
