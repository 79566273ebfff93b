package repositories

import (
	"time"

	"github.com/SAP-F-2025/library-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type BookFilters struct {
	Search     string `json:"search"`      // title, author, description or isbn
	Author     string `json:"author"`      // partial match on author
	CategoryID *uint  `json:"category_id"` // books linked to this category
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
	SortBy     string `json:"sort_by"`    // see BookSortColumns
	SortOrder  string `json:"sort_order"` // "asc", "desc"
}

// BookSortColumns is the whitelist of sortable catalog columns
var BookSortColumns = map[string]bool{
	"title":            true,
	"author":           true,
	"created_at":       true,
	"updated_at":       true,
	"available_copies": true,
	"total_copies":     true,
	"average_rating":   true,
	"ratings_count":    true,
	"id":               true,
}

type ReservationFilters struct {
	Status    *models.ReservationStatus `json:"status"`
	UserID    *string                   `json:"user_id"`
	BookID    *uint                     `json:"book_id"`
	DueBefore *time.Time                `json:"due_before"`
	Limit     int                       `json:"limit"`
	Offset    int                       `json:"offset"`
}

type RatingFilters struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type UserFilters struct {
	Query  string           `json:"query"` // name or email
	Role   *models.UserRole `json:"role"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// ===== READ MODELS =====

// ReservationDetail is a reservation with its user, book and handler materialized
type ReservationDetail struct {
	models.Reservation
	User    *models.UserSummary `json:"user,omitempty"`
	Book    *models.Book        `json:"book,omitempty"`
	Handler *models.UserSummary `json:"handler,omitempty"`
}

// RatingWithUser is a rating with the rater's public profile
type RatingWithUser struct {
	models.Rating
	User *models.UserSummary `json:"user,omitempty"`
}

// CopyCounts is the raw input of the copy accounting check
type CopyCounts struct {
	BookID             uint  `json:"book_id"`
	TotalCopies        int   `json:"total_copies"`
	AvailableCopies    int   `json:"available_copies"`
	ActiveReservations int64 `json:"active_reservations"`
}
