package postgres

import (
	"context"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReservationPostgreSQL struct {
	db *gorm.DB
}

func NewReservationPostgreSQL(db *gorm.DB) repositories.ReservationRepository {
	return &ReservationPostgreSQL{db: db}
}

func (r *ReservationPostgreSQL) getDB(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func (r *ReservationPostgreSQL) withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("User").Preload("Book").Preload("Handler")
}

func toDetail(reservation *models.Reservation) *repositories.ReservationDetail {
	detail := &repositories.ReservationDetail{
		Reservation: *reservation,
		User:        reservation.User.Summary(),
		Book:        reservation.Book,
		Handler:     reservation.Handler.Summary(),
	}
	detail.Reservation.User = nil
	detail.Reservation.Book = nil
	detail.Reservation.Handler = nil
	return detail
}

func (r *ReservationPostgreSQL) Create(ctx context.Context, reservation *models.Reservation) error {
	// The partial unique index on active (user_id, book_id) surfaces as ErrDuplicate
	return translateError(r.getDB(ctx).Omit(clause.Associations).Create(reservation).Error)
}

func (r *ReservationPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := r.getDB(ctx).Delete(&models.Reservation{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *ReservationPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := r.getDB(ctx).First(&reservation, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &reservation, nil
}

func (r *ReservationPostgreSQL) GetForUpdate(ctx context.Context, id uint) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := r.getDB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&reservation, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &reservation, nil
}

func (r *ReservationPostgreSQL) GetDetail(ctx context.Context, id uint) (*repositories.ReservationDetail, error) {
	var reservation models.Reservation
	if err := r.withRelations(r.getDB(ctx)).First(&reservation, id).Error; err != nil {
		return nil, translateError(err)
	}
	return toDetail(&reservation), nil
}

func (r *ReservationPostgreSQL) UpdateStatus(ctx context.Context, reservation *models.Reservation) error {
	result := r.getDB(ctx).Model(reservation).
		Select("status", "due_date", "handled_by", "updated_at").
		Updates(reservation)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *ReservationPostgreSQL) applyFilters(query *gorm.DB, filters repositories.ReservationFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.BookID != nil {
		query = query.Where("book_id = ?", *filters.BookID)
	}
	if filters.DueBefore != nil {
		query = query.Where("due_date IS NOT NULL AND due_date < ?", *filters.DueBefore)
	}
	return query
}

func (r *ReservationPostgreSQL) List(ctx context.Context, filters repositories.ReservationFilters) ([]*repositories.ReservationDetail, int64, error) {
	var reservations []*models.Reservation
	var total int64

	query := r.applyFilters(r.getDB(ctx).Model(&models.Reservation{}), filters)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyLimitOffset(query.Order("reserved_at DESC").Order("id DESC"), filters.Limit, filters.Offset)
	if err := r.withRelations(query).Find(&reservations).Error; err != nil {
		return nil, 0, err
	}

	details := make([]*repositories.ReservationDetail, 0, len(reservations))
	for _, reservation := range reservations {
		details = append(details, toDetail(reservation))
	}

	return details, total, nil
}

func (r *ReservationPostgreSQL) ListByUser(ctx context.Context, userID string) ([]*repositories.ReservationDetail, error) {
	var reservations []*models.Reservation
	if err := r.getDB(ctx).
		Preload("Book").
		Where("user_id = ?", userID).
		Order("reserved_at DESC").
		Order("id DESC").
		Find(&reservations).Error; err != nil {
		return nil, err
	}

	details := make([]*repositories.ReservationDetail, 0, len(reservations))
	for _, reservation := range reservations {
		details = append(details, toDetail(reservation))
	}
	return details, nil
}

func (r *ReservationPostgreSQL) HasActive(ctx context.Context, userID string, bookID uint) (bool, error) {
	var count int64
	err := r.getDB(ctx).Model(&models.Reservation{}).
		Where("user_id = ? AND book_id = ? AND status IN ?", userID, bookID, models.ActiveReservationStatuses).
		Count(&count).Error
	return count > 0, err
}

func (r *ReservationPostgreSQL) CountActiveByBook(ctx context.Context, bookID uint) (int64, error) {
	var count int64
	err := r.getDB(ctx).Model(&models.Reservation{}).
		Where("book_id = ? AND status IN ?", bookID, models.ActiveReservationStatuses).
		Count(&count).Error
	return count, err
}

func (r *ReservationPostgreSQL) CountActiveByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.getDB(ctx).Model(&models.Reservation{}).
		Where("user_id = ? AND status IN ?", userID, models.ActiveReservationStatuses).
		Count(&count).Error
	return count, err
}

func (r *ReservationPostgreSQL) RecordEvent(ctx context.Context, event *models.ReservationEvent) error {
	return r.getDB(ctx).Create(event).Error
}

func (r *ReservationPostgreSQL) ListEvents(ctx context.Context, reservationID uint) ([]*models.ReservationEvent, error) {
	var events []*models.ReservationEvent
	err := r.getDB(ctx).
		Where("reservation_id = ?", reservationID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&events).Error
	return events, err
}
