package postgres

import (
	"context"

	"github.com/SAP-F-2025/library-service/internal/cache"
	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
	"gorm.io/gorm"
)

type FilePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
	invalidator  *cache.Invalidator
}

func NewFilePostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager, inv *cache.Invalidator) repositories.FileRepository {
	return &FilePostgreSQL{
		db:           db,
		cacheManager: cacheManager,
		invalidator:  inv,
	}
}

func (f *FilePostgreSQL) getDB(ctx context.Context) *gorm.DB {
	return f.db.WithContext(ctx)
}

func (f *FilePostgreSQL) Create(ctx context.Context, file *models.File) error {
	if err := f.getDB(ctx).Create(file).Error; err != nil {
		return translateError(err)
	}
	// has_cover and has_pdf are part of the cached book row
	f.invalidator.Delete(ctx, f.cacheManager.Book, cache.BookKey(file.BookID))
	return nil
}

func (f *FilePostgreSQL) Delete(ctx context.Context, id uint) error {
	var file models.File
	if err := f.getDB(ctx).Select("id", "book_id").First(&file, id).Error; err != nil {
		return translateError(err)
	}
	if err := f.getDB(ctx).Delete(&models.File{}, id).Error; err != nil {
		return err
	}
	f.invalidator.Delete(ctx, f.cacheManager.Book, cache.BookKey(file.BookID))
	return nil
}

func (f *FilePostgreSQL) GetByID(ctx context.Context, id uint) (*models.File, error) {
	var file models.File
	if err := f.getDB(ctx).First(&file, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &file, nil
}

func (f *FilePostgreSQL) GetByBookAndType(ctx context.Context, bookID uint, fileType models.FileType) (*models.File, error) {
	var file models.File
	if err := f.getDB(ctx).
		Where("book_id = ? AND type = ?", bookID, fileType).
		First(&file).Error; err != nil {
		return nil, translateError(err)
	}
	return &file, nil
}

func (f *FilePostgreSQL) ListByBook(ctx context.Context, bookID uint) ([]*models.File, error) {
	var files []*models.File
	err := f.getDB(ctx).Where("book_id = ?", bookID).Order("type ASC").Find(&files).Error
	return files, err
}
