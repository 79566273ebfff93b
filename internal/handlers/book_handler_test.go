package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/SAP-F-2025/library-service/internal/models"
)

type bookBody struct {
	ID              uint   `json:"id"`
	Title           string `json:"title"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
	IsAvailable     bool   `json:"is_available"`
	CoverURL        string `json:"cover_url"`
}

func TestBookEndpoints(t *testing.T) {
	s := newTestServer(t)
	_, admin := s.seedUser(models.RoleAdmin)

	w := s.do(http.MethodPost, "/api/v1/categories", admin, map[string]string{"name": "Science Fiction"})
	expectStatus(t, w, http.StatusCreated)
	category := decode[idBody](t, w)

	w = s.do(http.MethodPost, "/api/v1/books", admin, map[string]interface{}{
		"title":        "Dune",
		"author":       "Frank Herbert",
		"isbn":         "978-0-441-17271-9",
		"total_copies": 2,
		"category_ids": []uint{category.ID},
	})
	expectStatus(t, w, http.StatusCreated)
	book := decode[bookBody](t, w)
	if book.AvailableCopies != 2 || !book.IsAvailable {
		t.Fatalf("book = %+v", book)
	}
	bookPath := fmt.Sprintf("/api/v1/books/%d", book.ID)

	t.Run("create validation", func(t *testing.T) {
		tests := []struct {
			name string
			body map[string]interface{}
			want int
		}{
			{"blank title", map[string]interface{}{"title": " ", "author": "A"}, http.StatusUnprocessableEntity},
			{"negative copies", map[string]interface{}{"title": "T", "author": "A", "total_copies": -1}, http.StatusUnprocessableEntity},
			{"bad isbn", map[string]interface{}{"title": "T", "author": "A", "isbn": "123"}, http.StatusUnprocessableEntity},
			{"unknown category", map[string]interface{}{"title": "T", "author": "A", "category_ids": []uint{404}}, http.StatusNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				expectStatus(t, s.do(http.MethodPost, "/api/v1/books", admin, tt.body), tt.want)
			})
		}
	})

	t.Run("get", func(t *testing.T) {
		w := s.do(http.MethodGet, bookPath, "", nil)
		expectStatus(t, w, http.StatusOK)
		if got := decode[bookBody](t, w); got.Title != "Dune" {
			t.Errorf("title = %q", got.Title)
		}
		expectStatus(t, s.do(http.MethodGet, "/api/v1/books/999", "", nil), http.StatusNotFound)
		expectStatus(t, s.do(http.MethodGet, "/api/v1/books/abc", "", nil), http.StatusBadRequest)
	})

	t.Run("list filters", func(t *testing.T) {
		s.seedBook("Foundation", 1)

		tests := []struct {
			name  string
			query string
			want  int64
		}{
			{"all", "", 2},
			{"search", "?search=dune", 1},
			{"author", "?author=herbert", 1},
			{"category", fmt.Sprintf("?category=%d", category.ID), 1},
			{"category_id alias", fmt.Sprintf("?category_id=%d", category.ID), 1},
			{"page size", "?size=1&page=2", 2},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := s.do(http.MethodGet, "/api/v1/books"+tt.query, "", nil)
				expectStatus(t, w, http.StatusOK)
				if total := decode[struct {
					Total int64 `json:"total"`
				}](t, w).Total; total != tt.want {
					t.Errorf("total = %d, want %d", total, tt.want)
				}
			})
		}

		expectStatus(t, s.do(http.MethodGet, "/api/v1/books?sort=price", "", nil), http.StatusUnprocessableEntity)
		expectStatus(t, s.do(http.MethodGet, "/api/v1/books?category=x", "", nil), http.StatusUnprocessableEntity)
		expectStatus(t, s.do(http.MethodGet, "/api/v1/books?category_id=0", "", nil), http.StatusUnprocessableEntity)
	})

	t.Run("popular and new", func(t *testing.T) {
		expectStatus(t, s.do(http.MethodGet, "/api/v1/books/popular", "", nil), http.StatusOK)
		w := s.do(http.MethodGet, "/api/v1/books/new", "", nil)
		expectStatus(t, w, http.StatusOK)
		if books := decode[[]bookBody](t, w); len(books) == 0 {
			t.Error("no new books")
		}
	})

	t.Run("update copies below active reservations", func(t *testing.T) {
		_, reader := s.seedUser(models.RoleReader)
		_, other := s.seedUser(models.RoleReader)
		for _, token := range []string{reader, other} {
			expectStatus(t, s.do(http.MethodPost, "/api/v1/reservations", token, map[string]uint{"book_id": book.ID}), http.StatusCreated)
		}

		expectStatus(t, s.do(http.MethodPut, bookPath, admin, map[string]int{"total_copies": 1}), http.StatusConflict)

		w := s.do(http.MethodPut, bookPath, admin, map[string]int{"total_copies": 4})
		expectStatus(t, w, http.StatusOK)
		if got := decode[bookBody](t, w); got.TotalCopies != 4 || got.AvailableCopies != 2 {
			t.Errorf("copies = %d/%d, want 2/4", got.AvailableCopies, got.TotalCopies)
		}

		expectStatus(t, s.do(http.MethodDelete, bookPath, admin, nil), http.StatusConflict)
	})

	t.Run("delete", func(t *testing.T) {
		other := s.seedBook("Disposable", 1)
		path := fmt.Sprintf("/api/v1/books/%d", other.ID)
		expectStatus(t, s.do(http.MethodDelete, path, admin, nil), http.StatusOK)
		expectStatus(t, s.do(http.MethodGet, path, "", nil), http.StatusNotFound)
	})
}
