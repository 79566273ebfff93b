package services

import (
	"errors"
	"testing"
	"time"

	"github.com/SAP-F-2025/library-service/internal/models"
)

func (e *testEnv) dashboardService() *dashboardService {
	svc := NewDashboardService(e.repo, e.logger).(*dashboardService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

// seedReservation stores a reservation as-is and keeps copy accounting consistent
func (e *testEnv) seedReservation(t *testing.T, userID string, bookID uint, status models.ReservationStatus, reservedAt time.Time, dueDate *time.Time) *models.Reservation {
	t.Helper()
	reservation := &models.Reservation{
		UserID:     userID,
		BookID:     bookID,
		Status:     status,
		ReservedAt: reservedAt,
		DueDate:    dueDate,
	}
	if err := e.repo.Reservation().Create(e.ctx, reservation); err != nil {
		t.Fatalf("seed reservation: %v", err)
	}
	if status.IsActive() {
		if err := e.repo.Book().DecrementAvailable(e.ctx, bookID); err != nil {
			t.Fatalf("hold copy: %v", err)
		}
	}
	return reservation
}

func TestDashboardStats(t *testing.T) {
	env := newTestEnv(t)
	svc := env.dashboardService()

	first := env.seedBook(t, "Dune", 3)
	second := env.seedBook(t, "Emma", 2)
	alice := env.seedUser(t, models.RoleReader)
	bob := env.seedUser(t, models.RoleReader)
	env.seedUser(t, models.RoleLibrarian)

	overdueOn := fixedNow.AddDate(0, 0, -3)
	env.seedReservation(t, alice.ID, first.ID, models.ReservationPending, fixedNow.AddDate(0, 0, -2), nil)
	env.seedReservation(t, bob.ID, first.ID, models.ReservationApproved, fixedNow.AddDate(0, 0, -20), &overdueOn)
	env.seedReservation(t, alice.ID, second.ID, models.ReservationReturned, fixedNow.AddDate(0, 0, -45), nil)
	env.seedReservation(t, bob.ID, second.ID, models.ReservationRejected, fixedNow.AddDate(0, 0, -40), nil)

	stats, err := svc.GetDashboardStats(env.ctx, 0)
	if err != nil {
		t.Fatalf("GetDashboardStats() error = %v", err)
	}

	wantOverview := DashboardOverview{
		TotalBooks:      2,
		TotalCategories: 0,
		TotalCopies:     5,
		AvailableCopies: 3,
		CopiesOnHold:    2,
		TotalUsers:      3,
		ActiveUsers:     2,
	}
	if stats.Overview != wantOverview {
		t.Errorf("overview = %+v, want %+v", stats.Overview, wantOverview)
	}

	wantReservations := DashboardReservations{Pending: 1, Approved: 1, Rejected: 1, Returned: 1, Overdue: 1}
	if stats.Reservations != wantReservations {
		t.Errorf("reservations = %+v, want %+v", stats.Reservations, wantReservations)
	}

	wantMetrics := DashboardMetrics{UtilizationRate: 40, ReturnRate: 50, OverdueRate: 100}
	if stats.Metrics != wantMetrics {
		t.Errorf("metrics = %+v, want %+v", stats.Metrics, wantMetrics)
	}

	if stats.Trends.PeriodDays != defaultStatsPeriodDays || stats.Trends.CurrentReservations != 2 || stats.Trends.ReservationsChange != 0 {
		t.Errorf("trends = %+v", stats.Trends)
	}

	t.Run("period is clamped", func(t *testing.T) {
		stats, err := svc.GetDashboardStats(env.ctx, 10_000)
		if err != nil {
			t.Fatalf("GetDashboardStats() error = %v", err)
		}
		if stats.Trends.PeriodDays != maxStatsPeriodDays {
			t.Errorf("period days = %d, want %d", stats.Trends.PeriodDays, maxStatsPeriodDays)
		}
		if stats.Overview.ActiveUsers != 2 || stats.Trends.CurrentReservations != 4 {
			t.Errorf("stats = %+v", stats)
		}
	})

	t.Run("short period", func(t *testing.T) {
		stats, err := svc.GetDashboardStats(env.ctx, 7)
		if err != nil {
			t.Fatalf("GetDashboardStats() error = %v", err)
		}
		// one reservation this week, none the week before
		if stats.Overview.ActiveUsers != 1 || stats.Trends.CurrentReservations != 1 || stats.Trends.ReservationsChange != 100 {
			t.Errorf("stats = %+v", stats)
		}
	})
}

func TestDashboardStats_EmptyCatalog(t *testing.T) {
	env := newTestEnv(t)

	stats, err := env.dashboardService().GetDashboardStats(env.ctx, 30)
	if err != nil {
		t.Fatalf("GetDashboardStats() error = %v", err)
	}
	if stats.Metrics != (DashboardMetrics{}) {
		t.Errorf("metrics on empty catalog = %+v", stats.Metrics)
	}
}

func TestActivityTrends(t *testing.T) {
	env := newTestEnv(t)
	svc := env.dashboardService()

	book := env.seedBook(t, "Dune", 5)
	alice := env.seedUser(t, models.RoleReader)
	bob := env.seedUser(t, models.RoleReader)

	today := env.seedReservation(t, alice.ID, book.ID, models.ReservationReturned, fixedNow.Add(-time.Hour), nil)
	env.seedReservation(t, bob.ID, book.ID, models.ReservationPending, fixedNow.Add(-2*time.Hour), nil)
	env.seedReservation(t, alice.ID, book.ID, models.ReservationRejected, fixedNow.AddDate(0, 0, -2), nil)
	env.seedReservation(t, bob.ID, book.ID, models.ReservationRejected, fixedNow.AddDate(0, 0, -20), nil)

	approved := models.ReservationApproved
	if err := env.repo.Reservation().RecordEvent(env.ctx, &models.ReservationEvent{
		ReservationID: today.ID,
		FromStatus:    &approved,
		ToStatus:      models.ReservationReturned,
		ActorID:       alice.ID,
		CreatedAt:     fixedNow.Add(-30 * time.Minute),
	}); err != nil {
		t.Fatalf("record event: %v", err)
	}

	t.Run("week", func(t *testing.T) {
		trends, err := svc.GetActivityTrends(env.ctx, TrendPeriodWeek)
		if err != nil {
			t.Fatalf("GetActivityTrends() error = %v", err)
		}
		if len(trends) != 7 {
			t.Fatalf("len = %d, want 7", len(trends))
		}
		last := trends[6]
		if last.Period != fixedNow.Format("Mon") || last.Reservations != 2 || last.Users != 2 || last.Returns != 1 {
			t.Errorf("today = %+v", last)
		}
		if trends[4].Reservations != 1 || trends[4].Users != 1 {
			t.Errorf("two days ago = %+v", trends[4])
		}
	})

	t.Run("month", func(t *testing.T) {
		trends, err := svc.GetActivityTrends(env.ctx, "")
		if err != nil {
			t.Fatalf("GetActivityTrends() error = %v", err)
		}
		if len(trends) != 4 || trends[0].Period != "W1" || trends[3].Period != "W4" {
			t.Fatalf("trends = %+v", trends)
		}
		if trends[3].Reservations != 3 || trends[1].Reservations != 1 {
			t.Errorf("weekly reservations = %d, %d, %d, %d",
				trends[0].Reservations, trends[1].Reservations, trends[2].Reservations, trends[3].Reservations)
		}
	})

	t.Run("year", func(t *testing.T) {
		trends, err := svc.GetActivityTrends(env.ctx, TrendPeriodYear)
		if err != nil {
			t.Fatalf("GetActivityTrends() error = %v", err)
		}
		if len(trends) != 12 || trends[0].Period != "Dec 2024" || trends[11].Period != "Nov 2025" {
			t.Fatalf("periods = %s .. %s", trends[0].Period, trends[len(trends)-1].Period)
		}
		if trends[11].Reservations != 3 || trends[10].Reservations != 1 {
			t.Errorf("last two months = %+v, %+v", trends[10], trends[11])
		}
	})

	t.Run("invalid period", func(t *testing.T) {
		_, err := svc.GetActivityTrends(env.ctx, "decade")
		var verrs ValidationErrors
		if !errors.As(err, &verrs) || verrs[0].Field != "period" {
			t.Fatalf("error = %v, want period ValidationErrors", err)
		}
	})
}

func TestRecentActivities(t *testing.T) {
	env := newTestEnv(t)
	reservations := env.reservationService()
	svc := env.dashboardService()

	book := env.seedBook(t, "Dune", 2)
	alice := env.seedUser(t, models.RoleReader)
	bob := env.seedUser(t, models.RoleReader)
	librarian := env.seedUser(t, models.RoleLibrarian)

	first, err := reservations.Create(env.ctx, alice.ID, &CreateReservationRequest{BookID: book.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := reservations.UpdateStatus(env.ctx, first.ID, librarian.ID, &UpdateReservationStatusRequest{Status: "approved"}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	second, err := reservations.Create(env.ctx, bob.ID, &CreateReservationRequest{BookID: book.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := reservations.Cancel(env.ctx, second.ID, bob.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	activities, err := svc.GetRecentActivities(env.ctx, 0)
	if err != nil {
		t.Fatalf("GetRecentActivities() error = %v", err)
	}

	wantActions := []string{
		ActionReservationCancelled,
		ActionReservationCreated,
		ActionReservationApproved,
		ActionReservationCreated,
	}
	if len(activities) != len(wantActions) {
		t.Fatalf("len = %d, want %d", len(activities), len(wantActions))
	}
	for i, want := range wantActions {
		if activities[i].Action != want {
			t.Errorf("activities[%d].Action = %q, want %q", i, activities[i].Action, want)
		}
	}

	approval := activities[2]
	if approval.ActorName != librarian.Name || approval.BookTitle != "Dune" || approval.ReservationID != first.ID {
		t.Errorf("approval = %+v", approval)
	}
	if approval.TimeAgo != "just now" {
		t.Errorf("time ago = %q", approval.TimeAgo)
	}

	limited, err := svc.GetRecentActivities(env.ctx, 2)
	if err != nil {
		t.Fatalf("GetRecentActivities() error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limited len = %d, want 2", len(limited))
	}
}

func TestCategoryDistribution(t *testing.T) {
	env := newTestEnv(t)
	svc := env.dashboardService()

	categories := NewCategoryService(env.repo, env.logger, env.validator)
	fiction, err := categories.Create(env.ctx, &CategoryRequest{Name: "Fiction"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	science, err := categories.Create(env.ctx, &CategoryRequest{Name: "Science"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := categories.Create(env.ctx, &CategoryRequest{Name: "Atlases"}); err != nil {
		t.Fatalf("create category: %v", err)
	}

	dune := env.seedBook(t, "Dune", 1)
	emma := env.seedBook(t, "Emma", 1)
	cosmos := env.seedBook(t, "Cosmos", 1)
	for bookID, ids := range map[uint][]uint{
		dune.ID:   {fiction.ID, science.ID},
		emma.ID:   {fiction.ID},
		cosmos.ID: {fiction.ID},
	} {
		if err := env.repo.Book().ReplaceCategories(env.ctx, bookID, ids); err != nil {
			t.Fatalf("link categories: %v", err)
		}
	}

	distribution, err := svc.GetCategoryDistribution(env.ctx)
	if err != nil {
		t.Fatalf("GetCategoryDistribution() error = %v", err)
	}

	want := []CategoryDistributionResponse{
		{CategoryID: fiction.ID, CategoryName: "Fiction", Books: 3, Percentage: 75},
		{CategoryID: science.ID, CategoryName: "Science", Books: 1, Percentage: 25},
		{CategoryName: "Atlases", Books: 0, Percentage: 0},
	}
	if len(distribution) != len(want) {
		t.Fatalf("len = %d, want %d", len(distribution), len(want))
	}
	for i, w := range want {
		got := distribution[i]
		if got.CategoryName != w.CategoryName || got.Books != w.Books || got.Percentage != w.Percentage {
			t.Errorf("distribution[%d] = %+v, want %+v", i, got, w)
		}
	}
}

func TestFormatTimeAgo(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{-time.Second, "just now"},
		{30 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{45 * time.Minute, "45 minutes ago"},
		{3 * time.Hour, "3 hours ago"},
		{26 * time.Hour, "1 day ago"},
		{15 * 24 * time.Hour, "2 weeks ago"},
		{90 * 24 * time.Hour, "3 months ago"},
		{800 * 24 * time.Hour, "2 years ago"},
	}
	for _, tt := range tests {
		if got := formatTimeAgo(tt.in); got != tt.want {
			t.Errorf("formatTimeAgo(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTrendChange(t *testing.T) {
	tests := []struct {
		current, previous int64
		want              float64
	}{
		{0, 0, 0},
		{5, 0, 100},
		{5, 5, 0},
		{3, 4, -25},
		{6, 4, 50},
	}
	for _, tt := range tests {
		if got := trendChange(tt.current, tt.previous); got != tt.want {
			t.Errorf("trendChange(%d, %d) = %v, want %v", tt.current, tt.previous, got, tt.want)
		}
	}
}
