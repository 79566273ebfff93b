package services

import (
	"errors"
	"testing"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
)

func TestRatingService_Upsert(t *testing.T) {
	env := newTestEnv(t)
	svc := NewRatingService(env.repo, env.logger, env.validator)

	reader := env.seedUser(t, models.RoleReader)
	other := env.seedUser(t, models.RoleReader)
	book := env.seedBook(t, "Rated", 1)

	first, err := svc.Rate(env.ctx, reader.ID, book.ID, &RateBookRequest{Rating: floatPtr(3)})
	if err != nil {
		t.Fatalf("Failed to rate: %v", err)
	}
	second, err := svc.Rate(env.ctx, reader.ID, book.ID, &RateBookRequest{Rating: floatPtr(5), Review: strPtr("Better on reread")})
	if err != nil {
		t.Fatalf("Failed to re-rate: %v", err)
	}

	if second.Rating.ID != first.Rating.ID {
		t.Errorf("re-rating created a new record: %d != %d", second.Rating.ID, first.Rating.ID)
	}
	if second.RatingsCount != 1 || second.AverageRating != 5 {
		t.Errorf("count=%d average=%v, want 1 and 5", second.RatingsCount, second.AverageRating)
	}

	third, err := svc.Rate(env.ctx, other.ID, book.ID, &RateBookRequest{Rating: floatPtr(2)})
	if err != nil {
		t.Fatalf("Failed to rate as second reader: %v", err)
	}
	if third.RatingsCount != 2 || third.AverageRating != 3.5 {
		t.Errorf("count=%d average=%v, want 2 and 3.5", third.RatingsCount, third.AverageRating)
	}

	list, err := svc.List(env.ctx, book.ID, repositories.RatingFilters{})
	if err != nil {
		t.Fatalf("Failed to list ratings: %v", err)
	}
	if list.Total != 2 || list.AverageRating != 3.5 {
		t.Errorf("total=%d average=%v", list.Total, list.AverageRating)
	}
	for _, r := range list.Ratings {
		if r.User == nil {
			t.Error("rater not materialized")
		}
	}
}

func TestRatingService_Validation(t *testing.T) {
	env := newTestEnv(t)
	svc := NewRatingService(env.repo, env.logger, env.validator)
	reader := env.seedUser(t, models.RoleReader)
	book := env.seedBook(t, "Strict", 1)

	tests := []struct {
		name   string
		rating *float64
		valid  bool
	}{
		{"zero", floatPtr(0), true},
		{"five", floatPtr(5), true},
		{"one decimal", floatPtr(4.5), true},
		{"above range", floatPtr(5.5), false},
		{"negative", floatPtr(-1), false},
		{"two decimals", floatPtr(3.25), true},
		{"missing", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Rate(env.ctx, reader.ID, book.ID, &RateBookRequest{Rating: tt.rating})
			if tt.valid {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("error = %v, want ValidationErrors", err)
			}
		})
	}

	t.Run("rounds to one decimal", func(t *testing.T) {
		result, err := svc.Rate(env.ctx, reader.ID, book.ID, &RateBookRequest{Rating: floatPtr(4.25)})
		if err != nil {
			t.Fatalf("Failed to rate: %v", err)
		}
		if result.Rating.Rating != 4.3 || result.AverageRating != 4.3 || result.RatingsCount != 1 {
			t.Errorf("rating=%v average=%v count=%d, want 4.3, 4.3 and 1", result.Rating.Rating, result.AverageRating, result.RatingsCount)
		}
	})

	t.Run("missing book", func(t *testing.T) {
		_, err := svc.Rate(env.ctx, reader.ID, 999, &RateBookRequest{Rating: floatPtr(4)})
		if !errors.Is(err, ErrBookNotFound) {
			t.Fatalf("error = %v, want ErrBookNotFound", err)
		}
	})
}

func TestRatingService_Delete(t *testing.T) {
	env := newTestEnv(t)
	svc := NewRatingService(env.repo, env.logger, env.validator)

	owner := env.seedUser(t, models.RoleReader)
	other := env.seedUser(t, models.RoleReader)
	book := env.seedBook(t, "Deletable", 1)

	rated, err := svc.Rate(env.ctx, owner.ID, book.ID, &RateBookRequest{Rating: floatPtr(4)})
	if err != nil {
		t.Fatalf("Failed to rate: %v", err)
	}

	t.Run("not owner", func(t *testing.T) {
		_, err := svc.DeleteByID(env.ctx, other.ID, rated.Rating.ID)
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Fatalf("error = %v, want PermissionError", err)
		}
	})

	t.Run("other reader has no rating", func(t *testing.T) {
		if _, err := svc.Delete(env.ctx, other.ID, book.ID); !errors.Is(err, ErrRatingNotFound) {
			t.Fatalf("error = %v, want ErrRatingNotFound", err)
		}
	})

	t.Run("owner deletes", func(t *testing.T) {
		summary, err := svc.DeleteByID(env.ctx, owner.ID, rated.Rating.ID)
		if err != nil {
			t.Fatalf("Failed to delete rating: %v", err)
		}
		if summary.RatingsCount != 0 || summary.AverageRating != 0 {
			t.Errorf("summary = %+v", summary)
		}
	})

	t.Run("already deleted", func(t *testing.T) {
		if _, err := svc.DeleteByID(env.ctx, owner.ID, rated.Rating.ID); !errors.Is(err, ErrRatingNotFound) {
			t.Fatalf("error = %v, want ErrRatingNotFound", err)
		}
	})
}
