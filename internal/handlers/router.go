package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/library-service/internal/services"
	"github.com/SAP-F-2025/library-service/internal/utils"
)

const healthCheckTimeout = 5 * time.Second

type HandlerManager struct {
	authHandler        *AuthHandler
	userHandler        *UserHandler
	bookHandler        *BookHandler
	categoryHandler    *CategoryHandler
	fileHandler        *FileHandler
	ratingHandler      *RatingHandler
	reservationHandler *ReservationHandler
	dashboardHandler   *DashboardHandler
	authMiddleware     *JWTAuthMiddleware

	serviceManager services.ServiceManager
	logger         utils.Logger
}

func NewHandlerManager(serviceManager services.ServiceManager, logger utils.Logger) *HandlerManager {
	return &HandlerManager{
		authHandler:        NewAuthHandler(serviceManager.Auth(), serviceManager.User(), logger),
		userHandler:        NewUserHandler(serviceManager.User(), logger),
		bookHandler:        NewBookHandler(serviceManager.Book(), logger),
		categoryHandler:    NewCategoryHandler(serviceManager.Category(), logger),
		fileHandler:        NewFileHandler(serviceManager.File(), logger),
		ratingHandler:      NewRatingHandler(serviceManager.Rating(), logger),
		reservationHandler: NewReservationHandler(serviceManager.Reservation(), logger),
		dashboardHandler:   NewDashboardHandler(serviceManager.Dashboard(), logger),
		authMiddleware:     NewJWTAuthMiddleware(serviceManager.Auth(), serviceManager.Guard(), logger),
		serviceManager:     serviceManager,
		logger:             logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.HealthCheck)

	v1 := router.Group("/api/v1")

	// Public routes
	{
		v1.POST("/auth/register", hm.authHandler.Register)
		v1.POST("/auth/login", hm.authHandler.Login)

		v1.GET("/books", hm.bookHandler.ListBooks)
		v1.GET("/books/popular", hm.bookHandler.PopularBooks)
		v1.GET("/books/new", hm.bookHandler.NewBooks)
		v1.GET("/books/:id", hm.bookHandler.GetBook)
		v1.GET("/books/:id/cover", hm.fileHandler.GetCover)
		v1.GET("/books/:id/ratings", hm.ratingHandler.ListRatings)

		v1.GET("/categories", hm.categoryHandler.ListCategories)
		v1.GET("/categories/:id", hm.categoryHandler.GetCategory)
	}

	authed := v1.Group("")
	authed.Use(hm.authMiddleware.AuthMiddleware())
	{
		authed.POST("/auth/logout", hm.authHandler.Logout)
		authed.GET("/profile", hm.authHandler.GetProfile)
		authed.PUT("/profile", hm.authHandler.UpdateProfile)
	}

	// Readers and above; visitors are read-only
	member := authed.Group("")
	member.Use(hm.authMiddleware.RequireRoleMiddleware(services.MemberRoles...))
	{
		member.GET("/reservations/my", hm.reservationHandler.MyReservations)
		member.POST("/reservations", hm.reservationHandler.CreateReservation)
		member.PUT("/reservations/:id/cancel", hm.reservationHandler.CancelReservation)

		member.POST("/books/:id/ratings", hm.ratingHandler.RateBook)
		member.DELETE("/books/:id/ratings", hm.ratingHandler.DeleteMyRating)
		member.DELETE("/ratings/:id", hm.ratingHandler.DeleteRating)

		member.GET("/books/:id/download-pdf", hm.fileHandler.DownloadPDF)
	}

	// Librarians and admins
	staff := authed.Group("")
	staff.Use(hm.authMiddleware.RequireRoleMiddleware(services.StaffRoles...))
	{
		staff.GET("/reservations", hm.reservationHandler.ListReservations)
		staff.GET("/reservations/export", hm.reservationHandler.ExportReservations)
		staff.GET("/reservations/:id", hm.reservationHandler.GetReservation)
		staff.GET("/reservations/:id/events", hm.reservationHandler.ReservationEvents)
		staff.PUT("/reservations/:id/status", hm.reservationHandler.UpdateReservationStatus)

		staff.GET("/dashboard/stats", hm.dashboardHandler.GetDashboardStats)
		staff.GET("/dashboard/activity-trends", hm.dashboardHandler.GetActivityTrends)
		staff.GET("/dashboard/recent-activities", hm.dashboardHandler.GetRecentActivities)
		staff.GET("/dashboard/category-distribution", hm.dashboardHandler.GetCategoryDistribution)
	}

	admin := authed.Group("")
	admin.Use(hm.authMiddleware.RequireRoleMiddleware(services.AdminRoles...))
	{
		admin.POST("/books", hm.bookHandler.CreateBook)
		admin.PUT("/books/:id", hm.bookHandler.UpdateBook)
		admin.DELETE("/books/:id", hm.bookHandler.DeleteBook)
		admin.GET("/books/:id/availability", hm.bookHandler.CheckAvailability)

		admin.POST("/books/:id/cover", hm.fileHandler.UploadCover)
		admin.POST("/books/:id/pdf", hm.fileHandler.UploadPDF)
		admin.DELETE("/files/:id", hm.fileHandler.DeleteFile)

		admin.POST("/categories", hm.categoryHandler.CreateCategory)
		admin.PUT("/categories/:id", hm.categoryHandler.UpdateCategory)
		admin.DELETE("/categories/:id", hm.categoryHandler.DeleteCategory)

		admin.GET("/users", hm.userHandler.ListUsers)
		admin.POST("/users", hm.userHandler.CreateUser)
		admin.GET("/users/:id", hm.userHandler.GetUser)
		admin.PUT("/users/:id", hm.userHandler.UpdateUser)
		admin.DELETE("/users/:id", hm.userHandler.DeleteUser)
		admin.PUT("/users/:id/role", hm.userHandler.ChangeRole)

		admin.DELETE("/reservations/:id", hm.reservationHandler.DeleteReservation)
	}
}

// HealthCheck endpoint
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	response := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "library-service",
	}

	if err := hm.serviceManager.HealthCheck(ctx); err != nil {
		utils.GetLogger(c, hm.logger).Warn("Health check failed", "error", err)
		response["status"] = "unhealthy"
		response["error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	c.JSON(http.StatusOK, response)
}
