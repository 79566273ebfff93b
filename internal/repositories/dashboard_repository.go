package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/library-service/internal/models"
)

// DashboardRepository interface for library analytics. Every method is read only.
type DashboardRepository interface {
	// Dashboard stats
	GetCatalogTotals(ctx context.Context) (*CatalogTotals, error)
	GetTotalUsers(ctx context.Context) (int64, error)
	// GetActiveUsers counts distinct users with a reservation placed at or after since
	GetActiveUsers(ctx context.Context, since time.Time) (int64, error)
	CountReservationsByStatus(ctx context.Context) (map[models.ReservationStatus]int64, error)
	// CountOverdue counts approved reservations due strictly before day
	CountOverdue(ctx context.Context, day time.Time) (int64, error)

	// Trends
	CountReservationsBetween(ctx context.Context, from, to time.Time) (int64, error)
	GetActivityTrends(ctx context.Context, buckets []TimeBucket) ([]ActivityTrendData, error)

	// Recent activities
	GetRecentActivities(ctx context.Context, limit int) ([]RecentActivityData, error)

	// Category distribution
	GetCategoryDistribution(ctx context.Context) ([]CategoryDistributionData, error)
}

// Data structures for dashboard responses

type CatalogTotals struct {
	Books           int64 `json:"books"`
	Categories      int64 `json:"categories"`
	TotalCopies     int64 `json:"total_copies"`
	AvailableCopies int64 `json:"available_copies"`
}

// TimeBucket is a half-open interval [Start, End)
type TimeBucket struct {
	Label string
	Start time.Time
	End   time.Time
}

type ActivityTrendData struct {
	Period       string    `json:"period"`
	Reservations int64     `json:"reservations"`
	Returns      int64     `json:"returns"`
	Users        int64     `json:"users"`
	Date         time.Time `json:"date"`
}

type RecentActivityData struct {
	ID            uint                      `json:"id"`
	ReservationID uint                      `json:"reservation_id"`
	ActorID       string                    `json:"actor_id"`
	ActorName     string                    `json:"actor_name"`
	OwnerID       string                    `json:"owner_id"`
	FromStatus    *models.ReservationStatus `json:"from_status,omitempty"`
	ToStatus      models.ReservationStatus  `json:"to_status"`
	BookID        uint                      `json:"book_id"`
	BookTitle     string                    `json:"book_title"`
	CreatedAt     time.Time                 `json:"created_at"`
}

type CategoryDistributionData struct {
	CategoryID   uint    `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Books        int64   `json:"books"`
	Percentage   float64 `json:"percentage"`
}
