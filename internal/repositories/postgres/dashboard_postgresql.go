package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
	"gorm.io/gorm"
)

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) repositories.DashboardRepository {
	return &dashboardRepository{db: db}
}

func (r *dashboardRepository) getDB(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// ===== DASHBOARD STATS =====

func (r *dashboardRepository) GetCatalogTotals(ctx context.Context) (*repositories.CatalogTotals, error) {
	var totals repositories.CatalogTotals

	if err := r.getDB(ctx).
		Model(&models.Book{}).
		Select("COUNT(*) AS books, " +
			"COALESCE(SUM(total_copies), 0) AS total_copies, " +
			"COALESCE(SUM(available_copies), 0) AS available_copies").
		Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to get catalog totals: %w", err)
	}

	if err := r.getDB(ctx).
		Model(&models.Category{}).
		Count(&totals.Categories).Error; err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}

	return &totals, nil
}

func (r *dashboardRepository) GetTotalUsers(ctx context.Context) (int64, error) {
	var count int64

	if err := r.getDB(ctx).
		Model(&models.User{}).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to get total users: %w", err)
	}

	return count, nil
}

func (r *dashboardRepository) GetActiveUsers(ctx context.Context, since time.Time) (int64, error) {
	var count int64

	if err := r.getDB(ctx).
		Model(&models.Reservation{}).
		Where("reserved_at >= ?", since).
		Distinct("user_id").
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to get active users: %w", err)
	}

	return count, nil
}

func (r *dashboardRepository) CountReservationsByStatus(ctx context.Context) (map[models.ReservationStatus]int64, error) {
	var rows []struct {
		Status models.ReservationStatus
		Count  int64
	}

	if err := r.getDB(ctx).
		Model(&models.Reservation{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count reservations by status: %w", err)
	}

	counts := map[models.ReservationStatus]int64{
		models.ReservationPending:  0,
		models.ReservationApproved: 0,
		models.ReservationRejected: 0,
		models.ReservationReturned: 0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *dashboardRepository) CountOverdue(ctx context.Context, day time.Time) (int64, error) {
	var count int64

	if err := r.getDB(ctx).
		Model(&models.Reservation{}).
		Where("status = ? AND due_date < ?", models.ReservationApproved, day).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count overdue reservations: %w", err)
	}

	return count, nil
}

// ===== TRENDS =====

func (r *dashboardRepository) CountReservationsBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64

	if err := r.getDB(ctx).
		Model(&models.Reservation{}).
		Where("reserved_at >= ? AND reserved_at < ?", from, to).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	return count, nil
}

func (r *dashboardRepository) GetActivityTrends(ctx context.Context, buckets []repositories.TimeBucket) ([]repositories.ActivityTrendData, error) {
	results := make([]repositories.ActivityTrendData, 0, len(buckets))

	for _, bucket := range buckets {
		trend := repositories.ActivityTrendData{
			Period: bucket.Label,
			Date:   bucket.Start,
		}

		if err := r.getDB(ctx).
			Model(&models.Reservation{}).
			Where("reserved_at >= ? AND reserved_at < ?", bucket.Start, bucket.End).
			Count(&trend.Reservations).Error; err != nil {
			return nil, fmt.Errorf("failed to count reservations for %s: %w", bucket.Label, err)
		}

		if err := r.getDB(ctx).
			Model(&models.Reservation{}).
			Where("reserved_at >= ? AND reserved_at < ?", bucket.Start, bucket.End).
			Distinct("user_id").
			Count(&trend.Users).Error; err != nil {
			return nil, fmt.Errorf("failed to count users for %s: %w", bucket.Label, err)
		}

		if err := r.getDB(ctx).
			Model(&models.ReservationEvent{}).
			Where("to_status = ? AND created_at >= ? AND created_at < ?", models.ReservationReturned, bucket.Start, bucket.End).
			Count(&trend.Returns).Error; err != nil {
			return nil, fmt.Errorf("failed to count returns for %s: %w", bucket.Label, err)
		}

		results = append(results, trend)
	}

	return results, nil
}

// ===== RECENT ACTIVITIES =====

func (r *dashboardRepository) GetRecentActivities(ctx context.Context, limit int) ([]repositories.RecentActivityData, error) {
	var activities []repositories.RecentActivityData

	if err := r.getDB(ctx).
		Table("reservation_events AS e").
		Select("e.id, e.reservation_id, e.actor_id, COALESCE(a.name, '') AS actor_name, " +
			"res.user_id AS owner_id, e.from_status, e.to_status, res.book_id, " +
			"COALESCE(b.title, '') AS book_title, e.created_at").
		Joins("JOIN reservations res ON res.id = e.reservation_id").
		Joins("LEFT JOIN users a ON a.id = e.actor_id").
		Joins("LEFT JOIN books b ON b.id = res.book_id").
		Order("e.created_at DESC").
		Order("e.id DESC").
		Limit(limit).
		Scan(&activities).Error; err != nil {
		return nil, fmt.Errorf("failed to get recent activities: %w", err)
	}

	return activities, nil
}

// ===== CATEGORY DISTRIBUTION =====

func (r *dashboardRepository) GetCategoryDistribution(ctx context.Context) ([]repositories.CategoryDistributionData, error) {
	var results []struct {
		CategoryID   uint
		CategoryName string
		Books        int64
	}

	if err := r.getDB(ctx).
		Table("categories AS c").
		Select("c.id AS category_id, c.name AS category_name, COUNT(bc.book_id) AS books").
		Joins("LEFT JOIN book_categories bc ON bc.category_id = c.id").
		Group("c.id, c.name").
		Order("books DESC").
		Order("c.name ASC").
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to get category distribution: %w", err)
	}

	var total int64
	for _, row := range results {
		total += row.Books
	}

	distribution := make([]repositories.CategoryDistributionData, 0, len(results))
	for _, row := range results {
		distribution = append(distribution, repositories.CategoryDistributionData{
			CategoryID:   row.CategoryID,
			CategoryName: row.CategoryName,
			Books:        row.Books,
			Percentage:   percentage(row.Books, total),
		})
	}

	return distribution, nil
}

func percentage(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
