package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/services"
)

func TestDashboardEndpoints(t *testing.T) {
	s := newTestServer(t)
	book := s.seedBook("Dune", 2)

	_, reader := s.seedUser(models.RoleReader)
	_, librarian := s.seedUser(models.RoleLibrarian)

	w := s.do(http.MethodPost, "/api/v1/reservations", reader, map[string]uint{"book_id": book.ID})
	expectStatus(t, w, http.StatusCreated)
	created := decode[idBody](t, w)

	w = s.do(http.MethodPut, fmt.Sprintf("/api/v1/reservations/%d/status", created.ID), librarian, map[string]string{"status": "approved"})
	expectStatus(t, w, http.StatusOK)

	t.Run("staff only", func(t *testing.T) {
		for _, path := range []string{
			"/api/v1/dashboard/stats",
			"/api/v1/dashboard/activity-trends",
			"/api/v1/dashboard/recent-activities",
			"/api/v1/dashboard/category-distribution",
		} {
			expectStatus(t, s.do(http.MethodGet, path, "", nil), http.StatusUnauthorized)
			expectStatus(t, s.do(http.MethodGet, path, reader, nil), http.StatusForbidden)
		}
	})

	t.Run("stats", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/v1/dashboard/stats?period=abc", librarian, nil)
		expectStatus(t, w, http.StatusOK)
		stats := decode[services.DashboardStatsResponse](t, w)
		if stats.Overview.TotalBooks != 1 || stats.Overview.CopiesOnHold != 1 || stats.Reservations.Approved != 1 {
			t.Errorf("stats = %+v", stats)
		}
		if stats.Trends.PeriodDays != 30 {
			t.Errorf("period days = %d, want default 30", stats.Trends.PeriodDays)
		}
	})

	t.Run("activity trends", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/v1/dashboard/activity-trends?period=week", librarian, nil)
		expectStatus(t, w, http.StatusOK)
		trends := decode[[]services.ActivityTrendResponse](t, w)
		if len(trends) != 7 || trends[6].Reservations != 1 {
			t.Errorf("trends = %+v", trends)
		}

		expectStatus(t, s.do(http.MethodGet, "/api/v1/dashboard/activity-trends?period=decade", librarian, nil), http.StatusUnprocessableEntity)
	})

	t.Run("recent activities", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/v1/dashboard/recent-activities?limit=1", librarian, nil)
		expectStatus(t, w, http.StatusOK)
		activities := decode[[]services.RecentActivityResponse](t, w)
		if len(activities) != 1 || activities[0].Action != services.ActionReservationApproved {
			t.Errorf("activities = %+v", activities)
		}
	})

	t.Run("category distribution", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/v1/dashboard/category-distribution", librarian, nil)
		expectStatus(t, w, http.StatusOK)
		if got := decode[[]services.CategoryDistributionResponse](t, w); len(got) != 0 {
			t.Errorf("distribution = %+v, want empty", got)
		}
	})
}
