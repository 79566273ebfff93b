package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SAP-F-2025/library-service/internal/events"
	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories/memory"
	"github.com/SAP-F-2025/library-service/internal/validator"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var fixedNow = time.Date(2025, 11, 15, 10, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	ctx       context.Context
	repo      *memory.Repository
	publisher *events.MockEventPublisher
	validator *validator.Validator
	logger    *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := testLogger()
	return &testEnv{
		ctx:       context.Background(),
		repo:      memory.NewRepository(),
		publisher: events.NewMockEventPublisher(logger),
		validator: validator.New(),
		logger:    logger,
	}
}

func (e *testEnv) reservationService() *reservationService {
	svc := NewReservationService(e.repo, e.publisher, e.logger, e.validator, 14).(*reservationService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func (e *testEnv) seedUser(t *testing.T, role models.UserRole) *models.User {
	t.Helper()
	id := uuid.New().String()
	user := &models.User{
		ID:    id,
		Name:  string(role) + " " + id[:4],
		Email: id[:8] + "@example.com",
		Role:  role,
	}
	if err := e.repo.User().Create(e.ctx, user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (e *testEnv) seedUserWithPassword(t *testing.T, role models.UserRole, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		ID:           uuid.New().String(),
		Name:         "Seeded",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := e.repo.User().Create(e.ctx, user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (e *testEnv) seedBook(t *testing.T, title string, copies int) *models.Book {
	t.Helper()
	book := &models.Book{
		Title:           title,
		Author:          "Author of " + title,
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
	if err := e.repo.Book().Create(e.ctx, book); err != nil {
		t.Fatalf("seed book: %v", err)
	}
	return book
}

func (e *testEnv) available(t *testing.T, bookID uint) int {
	t.Helper()
	book, err := e.repo.Book().GetByID(e.ctx, bookID)
	if err != nil {
		t.Fatalf("get book %d: %v", bookID, err)
	}
	return book.AvailableCopies
}

// assertCopyAccounting checks 0 <= available <= total and
// available == total - active reservations
func (e *testEnv) assertCopyAccounting(t *testing.T, bookID uint) {
	t.Helper()
	counts, err := e.repo.Book().CopyCounts(e.ctx, bookID)
	if err != nil {
		t.Fatalf("copy counts: %v", err)
	}
	if counts.AvailableCopies < 0 || counts.AvailableCopies > counts.TotalCopies {
		t.Errorf("available_copies %d outside [0, %d]", counts.AvailableCopies, counts.TotalCopies)
	}
	if want := int64(counts.TotalCopies) - counts.ActiveReservations; int64(counts.AvailableCopies) != want {
		t.Errorf("available_copies = %d, want total %d - active %d = %d",
			counts.AvailableCopies, counts.TotalCopies, counts.ActiveReservations, want)
	}
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }
