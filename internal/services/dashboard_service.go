package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
)

const (
	defaultStatsPeriodDays = 30
	maxStatsPeriodDays     = 365

	defaultRecentActivities = 10
	maxRecentActivities     = 50
)

// Activity trend periods
const (
	TrendPeriodWeek  = "week"
	TrendPeriodMonth = "month"
	TrendPeriodYear  = "year"
)

// Recent activity actions
const (
	ActionReservationCreated   = "reservation_created"
	ActionReservationApproved  = "reservation_approved"
	ActionReservationRejected  = "reservation_rejected"
	ActionReservationCancelled = "reservation_cancelled"
	ActionReservationReturned  = "reservation_returned"
)

// ===== RESPONSE DTOs =====

type DashboardStatsResponse struct {
	Overview     DashboardOverview     `json:"overview"`
	Reservations DashboardReservations `json:"reservations"`
	Metrics      DashboardMetrics      `json:"metrics"`
	Trends       DashboardTrends       `json:"trends"`
}

type DashboardOverview struct {
	TotalBooks      int64 `json:"total_books"`
	TotalCategories int64 `json:"total_categories"`
	TotalCopies     int64 `json:"total_copies"`
	AvailableCopies int64 `json:"available_copies"`
	CopiesOnHold    int64 `json:"copies_on_hold"`
	TotalUsers      int64 `json:"total_users"`
	ActiveUsers     int64 `json:"active_users"`
}

type DashboardReservations struct {
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Returned int64 `json:"returned"`
	Overdue  int64 `json:"overdue"`
}

type DashboardMetrics struct {
	// Share of copies held by pending or approved reservations
	UtilizationRate float64 `json:"utilization_rate"`
	// Share of handled loans that came back
	ReturnRate float64 `json:"return_rate"`
	// Share of approved loans past their due date
	OverdueRate float64 `json:"overdue_rate"`
}

type DashboardTrends struct {
	PeriodDays          int     `json:"period_days"`
	ReservationsChange  float64 `json:"reservations_change"`
	CurrentReservations int64   `json:"current_reservations"`
}

type ActivityTrendResponse struct {
	Period       string    `json:"period"`
	Date         time.Time `json:"date"`
	Reservations int64     `json:"reservations"`
	Returns      int64     `json:"returns"`
	Users        int64     `json:"users"`
}

type RecentActivityResponse struct {
	ID            uint      `json:"id"`
	ReservationID uint      `json:"reservation_id"`
	Action        string    `json:"action"`
	ActorID       string    `json:"actor_id"`
	ActorName     string    `json:"actor_name"`
	BookID        uint      `json:"book_id"`
	BookTitle     string    `json:"book_title"`
	CreatedAt     time.Time `json:"created_at"`
	TimeAgo       string    `json:"time_ago"`
}

type CategoryDistributionResponse struct {
	CategoryID   uint    `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Books        int64   `json:"books"`
	Percentage   float64 `json:"percentage"`
}

// ===== SERVICE INTERFACE =====

type DashboardService interface {
	GetDashboardStats(ctx context.Context, periodDays int) (*DashboardStatsResponse, error)
	GetActivityTrends(ctx context.Context, period string) ([]ActivityTrendResponse, error)
	GetRecentActivities(ctx context.Context, limit int) ([]RecentActivityResponse, error)
	GetCategoryDistribution(ctx context.Context) ([]CategoryDistributionResponse, error)
}

// ===== SERVICE IMPLEMENTATION =====

type dashboardService struct {
	repo   repositories.Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewDashboardService(repo repositories.Repository, logger *slog.Logger) DashboardService {
	return &dashboardService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *dashboardService) GetDashboardStats(ctx context.Context, periodDays int) (*DashboardStatsResponse, error) {
	if periodDays <= 0 {
		periodDays = defaultStatsPeriodDays
	}
	if periodDays > maxStatsPeriodDays {
		periodDays = maxStatsPeriodDays
	}
	s.logger.Info("Getting dashboard stats", "period_days", periodDays)

	dashboard := s.repo.Dashboard()
	now := s.now()
	periodStart := now.AddDate(0, 0, -periodDays)

	totals, err := dashboard.GetCatalogTotals(ctx)
	if err != nil {
		return nil, err
	}

	totalUsers, err := dashboard.GetTotalUsers(ctx)
	if err != nil {
		return nil, err
	}

	activeUsers, err := dashboard.GetActiveUsers(ctx, periodStart)
	if err != nil {
		return nil, err
	}

	byStatus, err := dashboard.CountReservationsByStatus(ctx)
	if err != nil {
		return nil, err
	}

	overdue, err := dashboard.CountOverdue(ctx, dateOnly(now))
	if err != nil {
		return nil, err
	}

	current, err := dashboard.CountReservationsBetween(ctx, periodStart, now)
	if err != nil {
		return nil, err
	}

	previous, err := dashboard.CountReservationsBetween(ctx, now.AddDate(0, 0, -2*periodDays), periodStart)
	if err != nil {
		s.logger.Warn("Failed to get previous period reservations", "error", err)
		previous = 0
	}

	onHold := totals.TotalCopies - totals.AvailableCopies
	approved := byStatus[models.ReservationApproved]
	returned := byStatus[models.ReservationReturned]

	return &DashboardStatsResponse{
		Overview: DashboardOverview{
			TotalBooks:      totals.Books,
			TotalCategories: totals.Categories,
			TotalCopies:     totals.TotalCopies,
			AvailableCopies: totals.AvailableCopies,
			CopiesOnHold:    onHold,
			TotalUsers:      totalUsers,
			ActiveUsers:     activeUsers,
		},
		Reservations: DashboardReservations{
			Pending:  byStatus[models.ReservationPending],
			Approved: approved,
			Rejected: byStatus[models.ReservationRejected],
			Returned: returned,
			Overdue:  overdue,
		},
		Metrics: DashboardMetrics{
			UtilizationRate: roundFloat(rate(onHold, totals.TotalCopies), 1),
			ReturnRate:      roundFloat(rate(returned, approved+returned), 1),
			OverdueRate:     roundFloat(rate(overdue, approved), 1),
		},
		Trends: DashboardTrends{
			PeriodDays:          periodDays,
			CurrentReservations: current,
			ReservationsChange:  roundFloat(trendChange(current, previous), 1),
		},
	}, nil
}

func (s *dashboardService) GetActivityTrends(ctx context.Context, period string) ([]ActivityTrendResponse, error) {
	if period == "" {
		period = TrendPeriodMonth
	}
	s.logger.Info("Getting activity trends", "period", period)

	buckets, err := trendBuckets(period, s.now())
	if err != nil {
		return nil, err
	}

	trends, err := s.repo.Dashboard().GetActivityTrends(ctx, buckets)
	if err != nil {
		return nil, err
	}

	response := make([]ActivityTrendResponse, len(trends))
	for i, trend := range trends {
		response[i] = ActivityTrendResponse{
			Period:       trend.Period,
			Date:         trend.Date,
			Reservations: trend.Reservations,
			Returns:      trend.Returns,
			Users:        trend.Users,
		}
	}
	return response, nil
}

func (s *dashboardService) GetRecentActivities(ctx context.Context, limit int) ([]RecentActivityResponse, error) {
	if limit <= 0 {
		limit = defaultRecentActivities
	}
	if limit > maxRecentActivities {
		limit = maxRecentActivities
	}
	s.logger.Info("Getting recent activities", "limit", limit)

	activities, err := s.repo.Dashboard().GetRecentActivities(ctx, limit)
	if err != nil {
		return nil, err
	}

	now := s.now()
	response := make([]RecentActivityResponse, len(activities))
	for i, activity := range activities {
		response[i] = RecentActivityResponse{
			ID:            activity.ID,
			ReservationID: activity.ReservationID,
			Action:        activityAction(activity),
			ActorID:       activity.ActorID,
			ActorName:     activity.ActorName,
			BookID:        activity.BookID,
			BookTitle:     activity.BookTitle,
			CreatedAt:     activity.CreatedAt,
			TimeAgo:       formatTimeAgo(now.Sub(activity.CreatedAt)),
		}
	}
	return response, nil
}

func (s *dashboardService) GetCategoryDistribution(ctx context.Context) ([]CategoryDistributionResponse, error) {
	s.logger.Info("Getting category distribution")

	distribution, err := s.repo.Dashboard().GetCategoryDistribution(ctx)
	if err != nil {
		return nil, err
	}

	response := make([]CategoryDistributionResponse, len(distribution))
	for i, dist := range distribution {
		response[i] = CategoryDistributionResponse{
			CategoryID:   dist.CategoryID,
			CategoryName: dist.CategoryName,
			Books:        dist.Books,
			Percentage:   roundFloat(dist.Percentage, 1),
		}
	}
	return response, nil
}

// ===== HELPER FUNCTIONS =====

// trendBuckets splits the period ending at now into consecutive buckets,
// oldest first: 7 days, 4 weeks or 12 calendar months.
func trendBuckets(period string, now time.Time) ([]repositories.TimeBucket, error) {
	today := dateOnly(now)
	var buckets []repositories.TimeBucket

	switch period {
	case TrendPeriodWeek:
		for i := 6; i >= 0; i-- {
			start := today.AddDate(0, 0, -i)
			buckets = append(buckets, repositories.TimeBucket{
				Label: start.Format("Mon"),
				Start: start,
				End:   start.AddDate(0, 0, 1),
			})
		}
	case TrendPeriodMonth:
		end := today.AddDate(0, 0, 1)
		for i := 3; i >= 0; i-- {
			bucketEnd := end.AddDate(0, 0, -i*7)
			buckets = append(buckets, repositories.TimeBucket{
				Label: fmt.Sprintf("W%d", 4-i),
				Start: bucketEnd.AddDate(0, 0, -7),
				End:   bucketEnd,
			})
		}
	case TrendPeriodYear:
		firstOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		for i := 11; i >= 0; i-- {
			start := firstOfMonth.AddDate(0, -i, 0)
			buckets = append(buckets, repositories.TimeBucket{
				Label: start.Format("Jan 2006"),
				Start: start,
				End:   start.AddDate(0, 1, 0),
			})
		}
	default:
		return nil, fmt.Errorf("validation failed: %w", ValidationErrors{{
			Field:   "period",
			Message: "period must be one of week, month, year",
			Value:   period,
			Rule:    "oneof",
		}})
	}

	return buckets, nil
}

func activityAction(activity repositories.RecentActivityData) string {
	switch activity.ToStatus {
	case models.ReservationPending:
		return ActionReservationCreated
	case models.ReservationApproved:
		return ActionReservationApproved
	case models.ReservationReturned:
		return ActionReservationReturned
	case models.ReservationRejected:
		if activity.ActorID == activity.OwnerID {
			return ActionReservationCancelled
		}
		return ActionReservationRejected
	}
	return string(activity.ToStatus)
}

func rate(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// trendChange is the percent change from previous to current; growth from zero reads as 100
func trendChange(current, previous int64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}

func roundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

func formatTimeAgo(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	case d < 7*24*time.Hour:
		return plural(int(d.Hours()/24), "day")
	case d < 30*24*time.Hour:
		return plural(int(d.Hours()/(24*7)), "week")
	case d < 365*24*time.Hour:
		return plural(int(d.Hours()/(24*30)), "month")
	default:
		return plural(int(d.Hours()/(24*365)), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
