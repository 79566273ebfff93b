package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/library-service/internal/events"
	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
	"github.com/SAP-F-2025/library-service/internal/validator"
	"gorm.io/datatypes"
)

const defaultLoanDays = 14

type reservationService struct {
	repo      repositories.Repository
	publisher events.Publisher
	logger    *slog.Logger
	validator *validator.Validator
	loanDays  int
	now       func() time.Time
}

func NewReservationService(repo repositories.Repository, publisher events.Publisher, logger *slog.Logger, validator *validator.Validator, loanDays int) ReservationService {
	if loanDays <= 0 {
		loanDays = defaultLoanDays
	}
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	return &reservationService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: validator,
		loanDays:  loanDays,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ===== LIFECYCLE =====

// Create holds one copy of the book for the user. The book row is locked and
// the decrement is conditional, so concurrent requests for the last copy
// cannot both succeed.
func (s *reservationService) Create(ctx context.Context, userID string, req *CreateReservationRequest) (*ReservationResponse, error) {
	s.logger.Info("Creating reservation", "user_id", userID, "book_id", req.BookID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	reservation := &models.Reservation{
		UserID: userID,
		BookID: req.BookID,
		Status: models.ReservationPending,
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		book, err := tx.Book().GetForUpdate(ctx, req.BookID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrBookNotFound
			}
			return fmt.Errorf("failed to get book: %w", err)
		}
		if !book.IsAvailable() {
			return ErrBookNotAvailable
		}

		active, err := tx.Reservation().HasActive(ctx, userID, req.BookID)
		if err != nil {
			return fmt.Errorf("failed to check active reservations: %w", err)
		}
		if active {
			return ErrDuplicateReservation
		}

		if err := tx.Book().DecrementAvailable(ctx, req.BookID); err != nil {
			if errors.Is(err, repositories.ErrNoAvailableCopies) {
				return ErrBookNotAvailable
			}
			return fmt.Errorf("failed to hold copy: %w", err)
		}

		reservation.ReservedAt = s.now()
		if err := tx.Reservation().Create(ctx, reservation); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrDuplicateReservation
			}
			return fmt.Errorf("failed to create reservation: %w", err)
		}

		return s.recordEvent(ctx, tx, reservation.ID, nil, models.ReservationPending, userID, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reservation created successfully", "reservation_id", reservation.ID, "book_id", req.BookID)
	publishEvent(ctx, s.publisher, s.logger, events.ReservationCreated, map[string]interface{}{
		"reservation_id": reservation.ID,
		"user_id":        userID,
		"book_id":        req.BookID,
		"status":         reservation.Status,
	})

	return s.Get(ctx, reservation.ID)
}

// UpdateStatus applies a staff transition. Releasing transitions return the
// held copy in the same transaction as the status write.
func (s *reservationService) UpdateStatus(ctx context.Context, id uint, staffID string, req *UpdateReservationStatusRequest) (*ReservationResponse, error) {
	s.logger.Info("Updating reservation status", "reservation_id", id, "staff_id", staffID, "status", req.Status)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	next := models.ReservationStatus(req.Status)

	var from models.ReservationStatus
	var bookID uint
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := s.ensureStaff(ctx, tx, staffID, id); err != nil {
			return err
		}

		reservation, err := tx.Reservation().GetForUpdate(ctx, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrReservationNotFound
			}
			return fmt.Errorf("failed to get reservation: %w", err)
		}

		from = reservation.Status
		bookID = reservation.BookID
		if detail := validator.ValidateStatusTransition(from, next); detail != nil {
			return &TransitionError{Detail: detail}
		}

		payload := map[string]interface{}{}
		if next == models.ReservationApproved {
			dueDate, err := s.resolveDueDate(req.DueDate)
			if err != nil {
				return err
			}
			reservation.DueDate = &dueDate
			payload["due_date"] = dueDate.Format(validator.DateLayout)
		}

		reservation.Status = next
		reservation.HandledBy = &staffID
		if err := tx.Reservation().UpdateStatus(ctx, reservation); err != nil {
			return fmt.Errorf("failed to update reservation: %w", err)
		}

		if releasesCopy(from, next) {
			if err := tx.Book().IncrementAvailable(ctx, reservation.BookID); err != nil {
				return fmt.Errorf("failed to release copy of book %d: %w", reservation.BookID, err)
			}
		}

		return s.recordEvent(ctx, tx, reservation.ID, &from, next, staffID, payload)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reservation status updated successfully", "reservation_id", id, "from", from, "to", next)
	publishEvent(ctx, s.publisher, s.logger, events.ReservationStatusChanged, map[string]interface{}{
		"reservation_id": id,
		"book_id":        bookID,
		"from_status":    from,
		"to_status":      next,
		"handled_by":     staffID,
	})

	return s.Get(ctx, id)
}

// Cancel lets the owner withdraw a pending reservation
func (s *reservationService) Cancel(ctx context.Context, id uint, userID string) (*ReservationResponse, error) {
	s.logger.Info("Cancelling reservation", "reservation_id", id, "user_id", userID)

	var bookID uint
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		reservation, err := tx.Reservation().GetForUpdate(ctx, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrReservationNotFound
			}
			return fmt.Errorf("failed to get reservation: %w", err)
		}

		if reservation.UserID != userID {
			return NewPermissionError(userID, id, "reservation", "cancel", "not owner")
		}
		if reservation.Status != models.ReservationPending {
			return fmt.Errorf("%w: reservation is %s", ErrReservationNotPending, reservation.Status)
		}

		from := reservation.Status
		bookID = reservation.BookID
		reservation.Status = models.ReservationRejected
		if err := tx.Reservation().UpdateStatus(ctx, reservation); err != nil {
			return fmt.Errorf("failed to update reservation: %w", err)
		}
		if err := tx.Book().IncrementAvailable(ctx, reservation.BookID); err != nil {
			return fmt.Errorf("failed to release copy of book %d: %w", reservation.BookID, err)
		}

		return s.recordEvent(ctx, tx, reservation.ID, &from, models.ReservationRejected, userID,
			map[string]interface{}{"reason": "cancelled_by_owner"})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reservation cancelled successfully", "reservation_id", id)
	publishEvent(ctx, s.publisher, s.logger, events.ReservationCancelled, map[string]interface{}{
		"reservation_id": id,
		"user_id":        userID,
		"book_id":        bookID,
	})

	return s.Get(ctx, id)
}

// ===== READS =====

func (s *reservationService) ListMine(ctx context.Context, userID string) ([]*ReservationResponse, error) {
	details, err := s.repo.Reservation().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return toReservationResponses(details), nil
}

func (s *reservationService) List(ctx context.Context, filters repositories.ReservationFilters) (*ReservationListResponse, error) {
	filters.Limit, filters.Offset = normalizePagination(filters.Limit, filters.Offset)

	details, total, err := s.repo.Reservation().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}

	return &ReservationListResponse{
		Reservations: toReservationResponses(details),
		Total:        total,
		Page:         pageOf(filters.Limit, filters.Offset),
		Size:         filters.Limit,
	}, nil
}

func (s *reservationService) Get(ctx context.Context, id uint) (*ReservationResponse, error) {
	detail, err := s.repo.Reservation().GetDetail(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return newReservationResponse(detail), nil
}

func (s *reservationService) Events(ctx context.Context, id uint) ([]*models.ReservationEvent, error) {
	if _, err := s.repo.Reservation().GetByID(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	trail, err := s.repo.Reservation().ListEvents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservation events: %w", err)
	}
	return trail, nil
}

// ===== ADMINISTRATION =====

// Delete removes a terminal reservation. Active ones still hold a copy.
func (s *reservationService) Delete(ctx context.Context, id uint) error {
	s.logger.Info("Deleting reservation", "reservation_id", id)

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		reservation, err := tx.Reservation().GetForUpdate(ctx, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrReservationNotFound
			}
			return fmt.Errorf("failed to get reservation: %w", err)
		}
		if reservation.Status.IsActive() {
			return fmt.Errorf("%w: reservation is %s", ErrActiveReservations, reservation.Status)
		}
		if err := tx.Reservation().Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Reservation deleted successfully", "reservation_id", id)
	return nil
}

// CheckOverdue reports approved reservations whose due date is before today.
// It never changes state.
func (s *reservationService) CheckOverdue(ctx context.Context, now time.Time) (int, error) {
	today := dateOnly(now)
	status := models.ReservationApproved

	overdue, _, err := s.repo.Reservation().List(ctx, repositories.ReservationFilters{
		Status:    &status,
		DueBefore: &today,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue reservations: %w", err)
	}

	for _, r := range overdue {
		publishEvent(ctx, s.publisher, s.logger, events.ReservationOverdue, map[string]interface{}{
			"reservation_id": r.ID,
			"user_id":        r.UserID,
			"book_id":        r.BookID,
			"due_date":       r.DueDate.Format(validator.DateLayout),
			"days_overdue":   int(today.Sub(dateOnly(*r.DueDate)).Hours() / 24),
		})
	}

	s.logger.Info("Overdue scan finished", "overdue", len(overdue), "date", today.Format(validator.DateLayout))
	return len(overdue), nil
}

// ===== HELPERS =====

// releasesCopy reports whether a transition gives the held copy back
func releasesCopy(from, to models.ReservationStatus) bool {
	return from.IsActive() && to.IsTerminal()
}

func (s *reservationService) ensureStaff(ctx context.Context, tx repositories.Repository, staffID string, reservationID uint) error {
	staff, err := tx.User().GetByID(ctx, staffID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUnauthorized
		}
		return fmt.Errorf("failed to get staff user: %w", err)
	}
	if !staff.Role.IsStaff() {
		return NewPermissionError(staffID, reservationID, "reservation", "update_status", "staff role required")
	}
	return nil
}

// resolveDueDate returns the requested due date, or today plus the loan
// period. Dates before today are rejected.
func (s *reservationService) resolveDueDate(requested *string) (time.Time, error) {
	today := dateOnly(s.now())
	if requested == nil || *requested == "" {
		return today.AddDate(0, 0, s.loanDays), nil
	}

	dueDate, err := validator.ParseDueDate(*requested)
	if err != nil {
		return time.Time{}, fmt.Errorf("validation failed: %w", ValidationErrors{{
			Field: "due_date", Message: "must be a date in YYYY-MM-DD format", Value: *requested, Rule: "due_date",
		}})
	}
	if dueDate.Before(today) {
		return time.Time{}, fmt.Errorf("validation failed: %w", ValidationErrors{{
			Field: "due_date", Message: "must not be before today", Value: *requested, Rule: "due_date",
		}})
	}
	return dueDate, nil
}

func (s *reservationService) recordEvent(ctx context.Context, tx repositories.Repository, reservationID uint, from *models.ReservationStatus, to models.ReservationStatus, actorID string, payload map[string]interface{}) error {
	event := &models.ReservationEvent{
		ReservationID: reservationID,
		FromStatus:    from,
		ToStatus:      to,
		ActorID:       actorID,
		CreatedAt:     s.now(),
	}
	if len(payload) > 0 {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode event payload: %w", err)
		}
		event.Payload = datatypes.JSON(raw)
	}
	if err := tx.Reservation().RecordEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to record reservation event: %w", err)
	}
	return nil
}

func newReservationResponse(detail *repositories.ReservationDetail) *ReservationResponse {
	return &ReservationResponse{
		ReservationDetail: detail,
		CanCancel:         detail.Status == models.ReservationPending,
	}
}

func toReservationResponses(details []*repositories.ReservationDetail) []*ReservationResponse {
	responses := make([]*ReservationResponse, len(details))
	for i, d := range details {
		responses[i] = newReservationResponse(d)
	}
	return responses
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
