package services

import (
	"context"
	"io"
	"time"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
)

// ===== AUTH DTOs =====

type RegisterRequest struct {
	Name                 string `json:"name" validate:"required,not_blank,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=6,max=72"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// ===== USER DTOs =====

type UpdateProfileRequest struct {
	Name     *string `json:"name" validate:"omitnil,not_blank,max=255"`
	Email    *string `json:"email" validate:"omitnil,email,max=255"`
	Password *string `json:"password" validate:"omitnil,min=6,max=72"`
}

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,not_blank,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"required,user_role"`
}

type AdminUpdateUserRequest struct {
	Name  *string `json:"name" validate:"omitnil,not_blank,max=255"`
	Email *string `json:"email" validate:"omitnil,email,max=255"`
}

type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,user_role"`
}

type UserListResponse struct {
	Users []*models.User `json:"users"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

// ===== CATALOG DTOs =====

type CreateBookRequest struct {
	Title       string  `json:"title" validate:"required,not_blank,max=255"`
	Author      string  `json:"author" validate:"required,not_blank,max=255"`
	Description string  `json:"description" validate:"max=5000"`
	ISBN        *string `json:"isbn" validate:"omitempty,isbn"`
	TotalCopies int     `json:"total_copies" validate:"gte=0,lte=100000"`
	CategoryIDs []uint  `json:"category_ids" validate:"omitempty,dive,gt=0"`
}

// UpdateBookRequest is a partial update; nil fields are left untouched and
// an empty isbn clears it
type UpdateBookRequest struct {
	Title       *string `json:"title" validate:"omitnil,not_blank,max=255"`
	Author      *string `json:"author" validate:"omitnil,not_blank,max=255"`
	Description *string `json:"description" validate:"omitnil,max=5000"`
	ISBN        *string `json:"isbn" validate:"omitempty,isbn"`
	TotalCopies *int    `json:"total_copies" validate:"omitnil,gte=0,lte=100000"`
	CategoryIDs *[]uint `json:"category_ids" validate:"omitnil,dive,gt=0"`
}

type BookResponse struct {
	*models.BookWithStats
	IsAvailable bool   `json:"is_available"`
	CoverURL    string `json:"cover_url,omitempty"`
}

type BookListResponse struct {
	Books []*BookResponse `json:"books"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
}

// AvailabilityReport compares stored copy counts with the active reservations
type AvailabilityReport struct {
	BookID             uint  `json:"book_id"`
	TotalCopies        int   `json:"total_copies"`
	AvailableCopies    int   `json:"available_copies"`
	ActiveReservations int64 `json:"active_reservations"`
	ExpectedAvailable  int64 `json:"expected_available"`
	Consistent         bool  `json:"consistent"`
}

type CategoryRequest struct {
	Name string `json:"name" validate:"required,not_blank,max=100"`
}

// ===== FILE DTOs =====

type FileResponse struct {
	*models.File
	URL string `json:"url"`
}

// FileContent is an open blob; callers must close Reader
type FileContent struct {
	File   *models.File
	Reader io.ReadCloser
}

// ===== RATING DTOs =====

type RateBookRequest struct {
	Rating *float64 `json:"rating" validate:"required,rating_value"`
	Review *string  `json:"review" validate:"omitempty,max=1000"`
}

type RatingResult struct {
	Rating        *models.Rating `json:"rating"`
	AverageRating float64        `json:"average_rating"`
	RatingsCount  int64          `json:"ratings_count"`
}

type RatingListResponse struct {
	Ratings       []*repositories.RatingWithUser `json:"ratings"`
	AverageRating float64                        `json:"average_rating"`
	Total         int64                          `json:"total"`
	Page          int                            `json:"page"`
	Size          int                            `json:"size"`
}

// ===== RESERVATION DTOs =====

type CreateReservationRequest struct {
	BookID uint `json:"book_id" validate:"required,gt=0"`
}

type UpdateReservationStatusRequest struct {
	Status  string  `json:"status" validate:"required,reservation_status"`
	DueDate *string `json:"due_date" validate:"omitempty,due_date"`
}

type ReservationResponse struct {
	*repositories.ReservationDetail
	CanCancel bool `json:"can_cancel"`
}

type ReservationListResponse struct {
	Reservations []*ReservationResponse `json:"reservations"`
	Total        int64                  `json:"total"`
	Page         int                    `json:"page"`
	Size         int                    `json:"size"`
}

// ===== SERVICE INTERFACES =====

type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	Logout(ctx context.Context, userID string) error

	// Authenticate resolves a bearer token to its user
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

type UserService interface {
	// Self service
	Profile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*models.User, error)

	// Administration
	List(ctx context.Context, filters repositories.UserFilters) (*UserListResponse, error)
	Get(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, req *CreateUserRequest) (*models.User, error)
	Update(ctx context.Context, actor *models.User, id string, req *AdminUpdateUserRequest) (*models.User, error)
	Delete(ctx context.Context, actor *models.User, id string) error
	ChangeRole(ctx context.Context, actor *models.User, id string, req *ChangeRoleRequest) (*models.User, error)
}

type BookService interface {
	List(ctx context.Context, filters repositories.BookFilters) (*BookListResponse, error)
	Get(ctx context.Context, id uint) (*BookResponse, error)
	Popular(ctx context.Context) ([]*BookResponse, error)
	Newest(ctx context.Context) ([]*BookResponse, error)

	Create(ctx context.Context, req *CreateBookRequest) (*BookResponse, error)
	Update(ctx context.Context, id uint, req *UpdateBookRequest) (*BookResponse, error)
	Delete(ctx context.Context, id uint) error

	// CheckAvailability recomputes total minus active reservations
	CheckAvailability(ctx context.Context, id uint) (*AvailabilityReport, error)
}

type CategoryService interface {
	List(ctx context.Context) ([]*models.Category, error)
	Get(ctx context.Context, id uint) (*models.Category, error)
	Create(ctx context.Context, req *CategoryRequest) (*models.Category, error)
	Update(ctx context.Context, id uint, req *CategoryRequest) (*models.Category, error)
	Delete(ctx context.Context, id uint) error
}

type FileService interface {
	UploadCover(ctx context.Context, bookID uint, filename string, size int64, r io.Reader) (*FileResponse, error)
	UploadPDF(ctx context.Context, bookID uint, filename string, size int64, r io.Reader) (*FileResponse, error)
	OpenCover(ctx context.Context, bookID uint) (*FileContent, error)
	OpenPDF(ctx context.Context, bookID uint) (*FileContent, error)
	Delete(ctx context.Context, fileID uint) error
}

type RatingService interface {
	Rate(ctx context.Context, userID string, bookID uint, req *RateBookRequest) (*RatingResult, error)
	Delete(ctx context.Context, userID string, bookID uint) (*models.RatingSummary, error)
	DeleteByID(ctx context.Context, userID string, ratingID uint) (*models.RatingSummary, error)
	List(ctx context.Context, bookID uint, filters repositories.RatingFilters) (*RatingListResponse, error)
}

type ReservationService interface {
	// Lifecycle
	Create(ctx context.Context, userID string, req *CreateReservationRequest) (*ReservationResponse, error)
	UpdateStatus(ctx context.Context, id uint, staffID string, req *UpdateReservationStatusRequest) (*ReservationResponse, error)
	Cancel(ctx context.Context, id uint, userID string) (*ReservationResponse, error)

	// Reads
	ListMine(ctx context.Context, userID string) ([]*ReservationResponse, error)
	List(ctx context.Context, filters repositories.ReservationFilters) (*ReservationListResponse, error)
	Get(ctx context.Context, id uint) (*ReservationResponse, error)
	Events(ctx context.Context, id uint) ([]*models.ReservationEvent, error)

	// Administration
	Delete(ctx context.Context, id uint) error
	Export(ctx context.Context, filters repositories.ReservationFilters, w io.Writer) error

	// CheckOverdue publishes an overdue event per approved reservation past
	// its due date and returns how many were found
	CheckOverdue(ctx context.Context, now time.Time) (int, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	// Core service getters
	Auth() AuthService
	User() UserService
	Book() BookService
	Category() CategoryService
	File() FileService
	Rating() RatingService
	Reservation() ReservationService
	Dashboard() DashboardService
	Guard() *Guard

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
