package repositories

import (
	"context"

	"github.com/SAP-F-2025/library-service/internal/models"
)

// ReservationRepository interface for the reservation lifecycle
type ReservationRepository interface {
	Create(ctx context.Context, reservation *models.Reservation) error
	Delete(ctx context.Context, id uint) error

	GetByID(ctx context.Context, id uint) (*models.Reservation, error)
	// GetForUpdate reads the reservation holding a row lock until the surrounding transaction ends
	GetForUpdate(ctx context.Context, id uint) (*models.Reservation, error)
	GetDetail(ctx context.Context, id uint) (*ReservationDetail, error)

	// UpdateStatus writes status, due_date and handled_by together
	UpdateStatus(ctx context.Context, reservation *models.Reservation) error

	List(ctx context.Context, filters ReservationFilters) ([]*ReservationDetail, int64, error)
	ListByUser(ctx context.Context, userID string) ([]*ReservationDetail, error)

	HasActive(ctx context.Context, userID string, bookID uint) (bool, error)
	CountActiveByBook(ctx context.Context, bookID uint) (int64, error)
	CountActiveByUser(ctx context.Context, userID string) (int64, error)

	// Audit trail
	RecordEvent(ctx context.Context, event *models.ReservationEvent) error
	ListEvents(ctx context.Context, reservationID uint) ([]*models.ReservationEvent, error)
}

// RatingRepository interface for rating operations
type RatingRepository interface {
	// Upsert inserts or overwrites the rating keyed by (book_id, user_id)
	Upsert(ctx context.Context, rating *models.Rating) error
	Delete(ctx context.Context, id uint) error

	GetByID(ctx context.Context, id uint) (*models.Rating, error)
	GetByBookAndUser(ctx context.Context, bookID uint, userID string) (*models.Rating, error)
	ListByBook(ctx context.Context, bookID uint, filters RatingFilters) ([]*RatingWithUser, int64, error)

	Summary(ctx context.Context, bookID uint) (*models.RatingSummary, error)
}
