package memory

import (
	"context"
	"sort"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
)

type reservationRepo struct {
	r *Repository
}

func (rr *reservationRepo) detail(reservation *models.Reservation) *repositories.ReservationDetail {
	s := rr.r.s
	d := &repositories.ReservationDetail{Reservation: *copyReservation(reservation)}
	if user, ok := s.users[reservation.UserID]; ok {
		d.User = user.Summary()
	}
	if book, ok := s.books[reservation.BookID]; ok {
		d.Book = copyBook(book)
	}
	if reservation.HandledBy != nil {
		if handler, ok := s.users[*reservation.HandledBy]; ok {
			d.Handler = handler.Summary()
		}
	}
	return d
}

func sortReservations(items []*models.Reservation) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].ReservedAt.Equal(items[j].ReservedAt) {
			return items[i].ReservedAt.After(items[j].ReservedAt)
		}
		return items[i].ID > items[j].ID
	})
}

func (rr *reservationRepo) Create(ctx context.Context, reservation *models.Reservation) error {
	defer rr.r.lock()()

	s := rr.r.s
	if _, ok := s.books[reservation.BookID]; !ok {
		return repositories.ErrNotFound
	}
	if reservation.Status.IsActive() {
		for _, existing := range s.reservations {
			if existing.UserID == reservation.UserID &&
				existing.BookID == reservation.BookID &&
				existing.Status.IsActive() {
				return repositories.ErrDuplicate
			}
		}
	}

	s.seq.reservation++
	reservation.ID = s.seq.reservation
	ts := now()
	if reservation.ReservedAt.IsZero() {
		reservation.ReservedAt = ts
	}
	reservation.CreatedAt = ts
	reservation.UpdatedAt = ts

	s.reservations[reservation.ID] = copyReservation(reservation)
	return nil
}

func (rr *reservationRepo) Delete(ctx context.Context, id uint) error {
	defer rr.r.lock()()

	s := rr.r.s
	if _, ok := s.reservations[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.reservations, id)
	for eid, event := range s.events {
		if event.ReservationID == id {
			delete(s.events, eid)
		}
	}
	return nil
}

func (rr *reservationRepo) GetByID(ctx context.Context, id uint) (*models.Reservation, error) {
	defer rr.r.lock()()

	reservation, ok := rr.r.s.reservations[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyReservation(reservation), nil
}

// GetForUpdate is GetByID; the transaction already holds the store lock
func (rr *reservationRepo) GetForUpdate(ctx context.Context, id uint) (*models.Reservation, error) {
	return rr.GetByID(ctx, id)
}

func (rr *reservationRepo) GetDetail(ctx context.Context, id uint) (*repositories.ReservationDetail, error) {
	defer rr.r.lock()()

	reservation, ok := rr.r.s.reservations[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return rr.detail(reservation), nil
}

func (rr *reservationRepo) UpdateStatus(ctx context.Context, reservation *models.Reservation) error {
	defer rr.r.lock()()

	existing, ok := rr.r.s.reservations[reservation.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	reservation.UpdatedAt = now()
	existing.Status = reservation.Status
	existing.DueDate = reservation.DueDate
	existing.HandledBy = reservation.HandledBy
	existing.UpdatedAt = reservation.UpdatedAt
	return nil
}

func (rr *reservationRepo) List(ctx context.Context, filters repositories.ReservationFilters) ([]*repositories.ReservationDetail, int64, error) {
	defer rr.r.lock()()

	var matched []*models.Reservation
	for _, reservation := range rr.r.s.reservations {
		if filters.Status != nil && reservation.Status != *filters.Status {
			continue
		}
		if filters.UserID != nil && reservation.UserID != *filters.UserID {
			continue
		}
		if filters.BookID != nil && reservation.BookID != *filters.BookID {
			continue
		}
		if filters.DueBefore != nil && (reservation.DueDate == nil || !reservation.DueDate.Before(*filters.DueBefore)) {
			continue
		}
		matched = append(matched, reservation)
	}
	sortReservations(matched)

	total := int64(len(matched))
	page := paginate(matched, filters.Limit, filters.Offset)

	details := make([]*repositories.ReservationDetail, 0, len(page))
	for _, reservation := range page {
		details = append(details, rr.detail(reservation))
	}
	return details, total, nil
}

func (rr *reservationRepo) ListByUser(ctx context.Context, userID string) ([]*repositories.ReservationDetail, error) {
	defer rr.r.lock()()

	var matched []*models.Reservation
	for _, reservation := range rr.r.s.reservations {
		if reservation.UserID == userID {
			matched = append(matched, reservation)
		}
	}
	sortReservations(matched)

	details := make([]*repositories.ReservationDetail, 0, len(matched))
	for _, reservation := range matched {
		d := rr.detail(reservation)
		d.User = nil
		d.Handler = nil
		details = append(details, d)
	}
	return details, nil
}

func (rr *reservationRepo) countActive(match func(*models.Reservation) bool) int64 {
	var count int64
	for _, reservation := range rr.r.s.reservations {
		if reservation.Status.IsActive() && match(reservation) {
			count++
		}
	}
	return count
}

func (rr *reservationRepo) HasActive(ctx context.Context, userID string, bookID uint) (bool, error) {
	defer rr.r.lock()()
	count := rr.countActive(func(r *models.Reservation) bool {
		return r.UserID == userID && r.BookID == bookID
	})
	return count > 0, nil
}

func (rr *reservationRepo) CountActiveByBook(ctx context.Context, bookID uint) (int64, error) {
	defer rr.r.lock()()
	return rr.countActive(func(r *models.Reservation) bool { return r.BookID == bookID }), nil
}

func (rr *reservationRepo) CountActiveByUser(ctx context.Context, userID string) (int64, error) {
	defer rr.r.lock()()
	return rr.countActive(func(r *models.Reservation) bool { return r.UserID == userID }), nil
}

func (rr *reservationRepo) RecordEvent(ctx context.Context, event *models.ReservationEvent) error {
	defer rr.r.lock()()

	s := rr.r.s
	s.seq.event++
	event.ID = s.seq.event
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now()
	}
	stored := *event
	s.events[event.ID] = &stored
	return nil
}

func (rr *reservationRepo) ListEvents(ctx context.Context, reservationID uint) ([]*models.ReservationEvent, error) {
	defer rr.r.lock()()

	var events []*models.ReservationEvent
	for _, event := range rr.r.s.events {
		if event.ReservationID == reservationID {
			c := *event
			events = append(events, &c)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

// ===== RATINGS =====

type ratingRepo struct {
	r *Repository
}

func (rt *ratingRepo) Upsert(ctx context.Context, rating *models.Rating) error {
	defer rt.r.lock()()

	s := rt.r.s
	if _, ok := s.books[rating.BookID]; !ok {
		return repositories.ErrNotFound
	}

	ts := now()
	for _, existing := range s.ratings {
		if existing.BookID == rating.BookID && existing.UserID == rating.UserID {
			existing.Rating = rating.Rating
			existing.Review = rating.Review
			existing.UpdatedAt = ts
			*rating = *copyRating(existing)
			return nil
		}
	}

	s.seq.rating++
	rating.ID = s.seq.rating
	rating.CreatedAt = ts
	rating.UpdatedAt = ts
	s.ratings[rating.ID] = copyRating(rating)
	return nil
}

func (rt *ratingRepo) Delete(ctx context.Context, id uint) error {
	defer rt.r.lock()()

	if _, ok := rt.r.s.ratings[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(rt.r.s.ratings, id)
	return nil
}

func (rt *ratingRepo) GetByID(ctx context.Context, id uint) (*models.Rating, error) {
	defer rt.r.lock()()

	rating, ok := rt.r.s.ratings[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyRating(rating), nil
}

func (rt *ratingRepo) GetByBookAndUser(ctx context.Context, bookID uint, userID string) (*models.Rating, error) {
	defer rt.r.lock()()

	for _, rating := range rt.r.s.ratings {
		if rating.BookID == bookID && rating.UserID == userID {
			return copyRating(rating), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (rt *ratingRepo) ListByBook(ctx context.Context, bookID uint, filters repositories.RatingFilters) ([]*repositories.RatingWithUser, int64, error) {
	defer rt.r.lock()()

	s := rt.r.s
	var matched []*models.Rating
	for _, rating := range s.ratings {
		if rating.BookID == bookID {
			matched = append(matched, rating)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	page := paginate(matched, filters.Limit, filters.Offset)

	result := make([]*repositories.RatingWithUser, 0, len(page))
	for _, rating := range page {
		item := &repositories.RatingWithUser{Rating: *copyRating(rating)}
		if user, ok := s.users[rating.UserID]; ok {
			item.User = &models.UserSummary{ID: user.ID, Name: user.Name}
		}
		result = append(result, item)
	}
	return result, total, nil
}

func (rt *ratingRepo) Summary(ctx context.Context, bookID uint) (*models.RatingSummary, error) {
	defer rt.r.lock()()

	summary := &models.RatingSummary{BookID: bookID}
	var sum float64
	for _, rating := range rt.r.s.ratings {
		if rating.BookID == bookID {
			sum += rating.Rating
			summary.RatingsCount++
		}
	}
	if summary.RatingsCount > 0 {
		summary.AverageRating = models.RoundRating(sum / float64(summary.RatingsCount))
	}
	return summary, nil
}
