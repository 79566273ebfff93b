package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SAP-F-2025/library-service/internal/events"
	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories/memory"
	"github.com/SAP-F-2025/library-service/internal/services"
	"github.com/SAP-F-2025/library-service/internal/storage"
	"github.com/SAP-F-2025/library-service/internal/utils"
	"github.com/SAP-F-2025/library-service/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t       *testing.T
	ctx     context.Context
	router  *gin.Engine
	repo    *memory.Repository
	tokens  *services.TokenManager
	manager services.ServiceManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	logger := utils.NewSlogLogger(slogger)

	blobs, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create blob store: %v", err)
	}

	repo := memory.NewRepository()
	tokens := services.NewTokenManager("test-secret", time.Hour, "library-service")
	manager := services.NewDefaultServiceManager(services.ServiceDependencies{
		Repo:      repo,
		Publisher: events.NewMockEventPublisher(slogger),
		Blobs:     blobs,
		Tokens:    tokens,
		Logger:    slogger,
		Validator: validator.New(),
	})
	if err := manager.Initialize(context.Background()); err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}

	router := gin.New()
	SetupMiddleware(router, logger, []string{"*"})
	NewHandlerManager(manager, logger).SetupRoutes(router)

	return &testServer{
		t:       t,
		ctx:     context.Background(),
		router:  router,
		repo:    repo,
		tokens:  tokens,
		manager: manager,
	}
}

// seedUser stores a user and returns it with a valid bearer token
func (s *testServer) seedUser(role models.UserRole) (*models.User, string) {
	s.t.Helper()
	id := uuid.New().String()
	user := &models.User{
		ID:    id,
		Name:  string(role) + " " + id[:4],
		Email: id[:8] + "@example.com",
		Role:  role,
	}
	if err := s.repo.User().Create(s.ctx, user); err != nil {
		s.t.Fatalf("seed user: %v", err)
	}
	token, _, err := s.tokens.Issue(user)
	if err != nil {
		s.t.Fatalf("issue token: %v", err)
	}
	return user, token
}

func (s *testServer) seedBook(title string, copies int) *models.Book {
	s.t.Helper()
	book := &models.Book{
		Title:           title,
		Author:          "Author of " + title,
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
	if err := s.repo.Book().Create(s.ctx, book); err != nil {
		s.t.Fatalf("seed book: %v", err)
	}
	return book
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			s.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(req, token)
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func (s *testServer) send(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, want, w.Body.String())
	}
}

type idBody struct {
	ID     uint   `json:"id"`
	Status string `json:"status"`
}
