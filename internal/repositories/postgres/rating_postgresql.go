package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/library-service/internal/cache"
	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RatingPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
	invalidator  *cache.Invalidator
}

func NewRatingPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager, inv *cache.Invalidator) repositories.RatingRepository {
	return &RatingPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
		invalidator:  inv,
	}
}

func (r *RatingPostgreSQL) getDB(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func (r *RatingPostgreSQL) invalidate(ctx context.Context, bookID uint) {
	r.invalidator.Delete(ctx, r.cacheManager.Rating, cache.RatingSummaryKey(bookID))
	r.invalidator.Delete(ctx, r.cacheManager.Book, cache.BookKey(bookID))
}

func (r *RatingPostgreSQL) Upsert(ctx context.Context, rating *models.Rating) error {
	err := r.getDB(ctx).Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "book_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "review", "updated_at"}),
		}).
		Create(rating).Error
	if err != nil {
		return translateError(err)
	}

	// Reload so id and created_at reflect the stored row on the update path
	var stored models.Rating
	if err := r.getDB(ctx).
		Where("book_id = ? AND user_id = ?", rating.BookID, rating.UserID).
		First(&stored).Error; err != nil {
		return translateError(err)
	}
	*rating = stored

	r.invalidate(ctx, rating.BookID)
	return nil
}

func (r *RatingPostgreSQL) Delete(ctx context.Context, id uint) error {
	var rating models.Rating
	if err := r.getDB(ctx).Select("id", "book_id").First(&rating, id).Error; err != nil {
		return translateError(err)
	}
	if err := r.getDB(ctx).Delete(&models.Rating{}, id).Error; err != nil {
		return err
	}
	r.invalidate(ctx, rating.BookID)
	return nil
}

func (r *RatingPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Rating, error) {
	var rating models.Rating
	if err := r.getDB(ctx).First(&rating, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &rating, nil
}

func (r *RatingPostgreSQL) GetByBookAndUser(ctx context.Context, bookID uint, userID string) (*models.Rating, error) {
	var rating models.Rating
	if err := r.getDB(ctx).
		Where("book_id = ? AND user_id = ?", bookID, userID).
		First(&rating).Error; err != nil {
		return nil, translateError(err)
	}
	return &rating, nil
}

func (r *RatingPostgreSQL) ListByBook(ctx context.Context, bookID uint, filters repositories.RatingFilters) ([]*repositories.RatingWithUser, int64, error) {
	var ratings []*models.Rating
	var total int64

	query := r.getDB(ctx).Model(&models.Rating{}).Where("book_id = ?", bookID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyLimitOffset(query.Order("created_at DESC").Order("id DESC"), filters.Limit, filters.Offset)
	if err := query.Preload("User").Find(&ratings).Error; err != nil {
		return nil, 0, err
	}

	result := make([]*repositories.RatingWithUser, 0, len(ratings))
	for _, rating := range ratings {
		item := &repositories.RatingWithUser{Rating: *rating}
		if rating.User != nil {
			item.User = &models.UserSummary{ID: rating.User.ID, Name: rating.User.Name}
		}
		item.Rating.User = nil
		result = append(result, item)
	}

	return result, total, nil
}

type ratingAggregate struct {
	AverageRating float64
	RatingsCount  int64
}

func (r *RatingPostgreSQL) Summary(ctx context.Context, bookID uint) (*models.RatingSummary, error) {
	var summary models.RatingSummary

	err := r.cacheManager.Rating.CacheOrExecute(ctx, cache.RatingSummaryKey(bookID), &summary, cache.RatingCacheConfig.TTL, func() (interface{}, error) {
		var agg ratingAggregate
		if err := r.getDB(ctx).Model(&models.Rating{}).
			Select("COALESCE(AVG(rating), 0) AS average_rating, COUNT(*) AS ratings_count").
			Where("book_id = ?", bookID).
			Scan(&agg).Error; err != nil {
			return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
		}
		return &models.RatingSummary{
			BookID:        bookID,
			AverageRating: models.RoundRating(agg.AverageRating),
			RatingsCount:  agg.RatingsCount,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	return &summary, nil
}
