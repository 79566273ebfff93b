package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
	"github.com/SAP-F-2025/library-service/internal/validator"
)

type ratingService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewRatingService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) RatingService {
	return &ratingService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// Rate inserts or overwrites the caller's rating and returns the new aggregate
func (s *ratingService) Rate(ctx context.Context, userID string, bookID uint, req *RateBookRequest) (*RatingResult, error) {
	s.logger.Info("Rating book", "book_id", bookID, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if err := s.ensureBook(ctx, bookID); err != nil {
		return nil, err
	}

	rating := &models.Rating{
		BookID: bookID,
		UserID: userID,
		Rating: models.RoundRating(*req.Rating),
		Review: req.Review,
	}
	if err := s.repo.Rating().Upsert(ctx, rating); err != nil {
		return nil, fmt.Errorf("failed to save rating: %w", err)
	}

	summary, err := s.summary(ctx, bookID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Book rated successfully",
		"book_id", bookID,
		"rating_id", rating.ID,
		"average_rating", summary.AverageRating,
		"ratings_count", summary.RatingsCount)

	return &RatingResult{
		Rating:        rating,
		AverageRating: summary.AverageRating,
		RatingsCount:  summary.RatingsCount,
	}, nil
}

func (s *ratingService) Delete(ctx context.Context, userID string, bookID uint) (*models.RatingSummary, error) {
	s.logger.Info("Deleting own rating", "book_id", bookID, "user_id", userID)

	rating, err := s.repo.Rating().GetByBookAndUser(ctx, bookID, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRatingNotFound
		}
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}
	return s.remove(ctx, rating)
}

func (s *ratingService) DeleteByID(ctx context.Context, userID string, ratingID uint) (*models.RatingSummary, error) {
	s.logger.Info("Deleting rating", "rating_id", ratingID, "user_id", userID)

	rating, err := s.repo.Rating().GetByID(ctx, ratingID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRatingNotFound
		}
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}
	if rating.UserID != userID {
		return nil, NewPermissionError(userID, ratingID, "rating", "delete", "not owner")
	}
	return s.remove(ctx, rating)
}

func (s *ratingService) List(ctx context.Context, bookID uint, filters repositories.RatingFilters) (*RatingListResponse, error) {
	if err := s.ensureBook(ctx, bookID); err != nil {
		return nil, err
	}
	filters.Limit, filters.Offset = normalizePagination(filters.Limit, filters.Offset)

	ratings, total, err := s.repo.Rating().ListByBook(ctx, bookID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	summary, err := s.summary(ctx, bookID)
	if err != nil {
		return nil, err
	}

	return &RatingListResponse{
		Ratings:       ratings,
		AverageRating: summary.AverageRating,
		Total:         total,
		Page:          pageOf(filters.Limit, filters.Offset),
		Size:          filters.Limit,
	}, nil
}

func (s *ratingService) remove(ctx context.Context, rating *models.Rating) (*models.RatingSummary, error) {
	if err := s.repo.Rating().Delete(ctx, rating.ID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRatingNotFound
		}
		return nil, fmt.Errorf("failed to delete rating: %w", err)
	}

	s.logger.Info("Rating deleted successfully", "rating_id", rating.ID, "book_id", rating.BookID)
	return s.summary(ctx, rating.BookID)
}

func (s *ratingService) summary(ctx context.Context, bookID uint) (*models.RatingSummary, error) {
	summary, err := s.repo.Rating().Summary(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute rating summary: %w", err)
	}
	return summary, nil
}

func (s *ratingService) ensureBook(ctx context.Context, bookID uint) error {
	if _, err := s.repo.Book().GetByID(ctx, bookID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrBookNotFound
		}
		return fmt.Errorf("failed to get book: %w", err)
	}
	return nil
}
