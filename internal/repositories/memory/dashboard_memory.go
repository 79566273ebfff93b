package memory

import (
	"context"
	"sort"
	"time"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
)

type dashboardRepo struct {
	r *Repository
}

func (d *dashboardRepo) GetCatalogTotals(ctx context.Context) (*repositories.CatalogTotals, error) {
	defer d.r.lock()()

	s := d.r.s
	totals := &repositories.CatalogTotals{
		Books:      int64(len(s.books)),
		Categories: int64(len(s.categories)),
	}
	for _, book := range s.books {
		totals.TotalCopies += int64(book.TotalCopies)
		totals.AvailableCopies += int64(book.AvailableCopies)
	}
	return totals, nil
}

func (d *dashboardRepo) GetTotalUsers(ctx context.Context) (int64, error) {
	defer d.r.lock()()
	return int64(len(d.r.s.users)), nil
}

func (d *dashboardRepo) distinctUsers(from, to time.Time) int64 {
	seen := make(map[string]bool)
	for _, reservation := range d.r.s.reservations {
		if inRange(reservation.ReservedAt, from, to) {
			seen[reservation.UserID] = true
		}
	}
	return int64(len(seen))
}

func (d *dashboardRepo) GetActiveUsers(ctx context.Context, since time.Time) (int64, error) {
	defer d.r.lock()()
	return d.distinctUsers(since, time.Time{}), nil
}

func (d *dashboardRepo) CountReservationsByStatus(ctx context.Context) (map[models.ReservationStatus]int64, error) {
	defer d.r.lock()()

	counts := map[models.ReservationStatus]int64{
		models.ReservationPending:  0,
		models.ReservationApproved: 0,
		models.ReservationRejected: 0,
		models.ReservationReturned: 0,
	}
	for _, reservation := range d.r.s.reservations {
		counts[reservation.Status]++
	}
	return counts, nil
}

func (d *dashboardRepo) CountOverdue(ctx context.Context, day time.Time) (int64, error) {
	defer d.r.lock()()

	var count int64
	for _, reservation := range d.r.s.reservations {
		if reservation.Status == models.ReservationApproved &&
			reservation.DueDate != nil && reservation.DueDate.Before(day) {
			count++
		}
	}
	return count, nil
}

func (d *dashboardRepo) countReservations(from, to time.Time) int64 {
	var count int64
	for _, reservation := range d.r.s.reservations {
		if inRange(reservation.ReservedAt, from, to) {
			count++
		}
	}
	return count
}

func (d *dashboardRepo) CountReservationsBetween(ctx context.Context, from, to time.Time) (int64, error) {
	defer d.r.lock()()
	return d.countReservations(from, to), nil
}

func (d *dashboardRepo) GetActivityTrends(ctx context.Context, buckets []repositories.TimeBucket) ([]repositories.ActivityTrendData, error) {
	defer d.r.lock()()

	results := make([]repositories.ActivityTrendData, 0, len(buckets))
	for _, bucket := range buckets {
		trend := repositories.ActivityTrendData{
			Period:       bucket.Label,
			Date:         bucket.Start,
			Reservations: d.countReservations(bucket.Start, bucket.End),
			Users:        d.distinctUsers(bucket.Start, bucket.End),
		}
		for _, event := range d.r.s.events {
			if event.ToStatus == models.ReservationReturned && inRange(event.CreatedAt, bucket.Start, bucket.End) {
				trend.Returns++
			}
		}
		results = append(results, trend)
	}
	return results, nil
}

func (d *dashboardRepo) GetRecentActivities(ctx context.Context, limit int) ([]repositories.RecentActivityData, error) {
	defer d.r.lock()()

	s := d.r.s
	activities := make([]repositories.RecentActivityData, 0, len(s.events))
	for _, event := range s.events {
		reservation, ok := s.reservations[event.ReservationID]
		if !ok {
			continue
		}
		activity := repositories.RecentActivityData{
			ID:            event.ID,
			ReservationID: event.ReservationID,
			ActorID:       event.ActorID,
			OwnerID:       reservation.UserID,
			FromStatus:    event.FromStatus,
			ToStatus:      event.ToStatus,
			BookID:        reservation.BookID,
			CreatedAt:     event.CreatedAt,
		}
		if actor, ok := s.users[event.ActorID]; ok {
			activity.ActorName = actor.Name
		}
		if book, ok := s.books[reservation.BookID]; ok {
			activity.BookTitle = book.Title
		}
		activities = append(activities, activity)
	}

	sort.Slice(activities, func(i, j int) bool {
		if !activities[i].CreatedAt.Equal(activities[j].CreatedAt) {
			return activities[i].CreatedAt.After(activities[j].CreatedAt)
		}
		return activities[i].ID > activities[j].ID
	})
	return paginate(activities, limit, 0), nil
}

func (d *dashboardRepo) GetCategoryDistribution(ctx context.Context) ([]repositories.CategoryDistributionData, error) {
	defer d.r.lock()()

	s := d.r.s
	distribution := make([]repositories.CategoryDistributionData, 0, len(s.categories))
	var total int64
	for _, category := range s.categories {
		var books int64
		for bookID, links := range s.bookCategories {
			if _, ok := s.books[bookID]; ok && links[category.ID] {
				books++
			}
		}
		total += books
		distribution = append(distribution, repositories.CategoryDistributionData{
			CategoryID:   category.ID,
			CategoryName: category.Name,
			Books:        books,
		})
	}

	for i := range distribution {
		if total > 0 {
			distribution[i].Percentage = float64(distribution[i].Books) / float64(total) * 100
		}
	}
	sort.Slice(distribution, func(i, j int) bool {
		if distribution[i].Books != distribution[j].Books {
			return distribution[i].Books > distribution[j].Books
		}
		return distribution[i].CategoryName < distribution[j].CategoryName
	})
	return distribution, nil
}

// inRange reports from <= t < to; a zero to leaves the range open
func inRange(t, from, to time.Time) bool {
	if t.Before(from) {
		return false
	}
	return to.IsZero() || t.Before(to)
}
