package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/SAP-F-2025/library-service/internal/services"
	"github.com/SAP-F-2025/library-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 12
	maxPageSize     = 100
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse wraps payloads of mutating endpoints
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs an incoming request with the request scoped logger
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	args = append(args, "method", c.Request.Method, "path", c.FullPath())
	if userID := GetUserIDFromContext(c); userID != "" {
		args = append(args, "user_id", userID)
	}
	utils.GetLogger(c, h.logger).Debug(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string) {
	utils.GetLogger(c, h.logger).Error(msg, "error", err, "path", c.FullPath())
}

// bindJSON decodes the body and answers 422 on failure
func (h *BaseHandler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return false
	}
	return true
}

// parseIDParam reads a numeric path parameter and answers 400 when malformed
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
		})
		return 0, false
	}
	return uint(id), true
}

// parsePagination converts page and size query values into limit and offset.
// A missing size leaves the limit at zero so services apply their default.
func (h *BaseHandler) parsePagination(c *gin.Context) (limit, offset int) {
	page := 1
	if pageStr := c.Query("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	if sizeStr := c.Query("size"); sizeStr != "" {
		if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 {
			limit = min(s, maxPageSize)
		}
	}

	size := limit
	if size == 0 {
		size = defaultPageSize
	}
	return limit, (page - 1) * size
}

// rejectQuery answers 422 for a malformed query parameter
func (h *BaseHandler) rejectQuery(c *gin.Context, field, message string, value interface{}, rule string) {
	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Message: "Validation failed",
		Details: services.ValidationErrors{{Field: field, Message: message, Value: value, Rule: rule}},
	})
}

// requireUser returns the authenticated user or answers 401
func (h *BaseHandler) requireUser(c *gin.Context) (string, bool) {
	userID := GetUserIDFromContext(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", false
	}
	return userID, true
}

// handleServiceError maps service errors onto HTTP responses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{
				"rule":    businessRuleError.Rule,
				"context": businessRuleError.Context,
			},
		})
		return
	}

	var transitionError *services.TransitionError
	if errors.As(err, &transitionError) {
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Invalid reservation status transition",
			Details: transitionError.Detail,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	switch {
	// Not found
	case errors.Is(err, services.ErrBookNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Book not found"})
	case errors.Is(err, services.ErrReservationNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Reservation not found"})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "User not found"})
	case errors.Is(err, services.ErrCategoryNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Category not found"})
	case errors.Is(err, services.ErrFileNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "File not found"})
	case errors.Is(err, services.ErrRatingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Rating not found"})

	// Validation
	case errors.Is(err, services.ErrValidationFailed):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
	case errors.Is(err, services.ErrInvalidFile):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Invalid file",
			Details: err.Error(),
		})
	case errors.Is(err, services.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Message: "File too large",
			Details: err.Error(),
		})

	// Authorization
	case errors.Is(err, services.ErrSelfModification):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "You cannot modify your own account"})
	case errors.Is(err, services.ErrAdminDemotion):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Admin accounts cannot be demoted"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Access denied"})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Invalid email or password"})
	case errors.Is(err, services.ErrInvalidToken), errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Unauthorized access"})

	// Availability
	case errors.Is(err, services.ErrBookNotAvailable):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Book is not available"})
	case errors.Is(err, services.ErrDuplicateReservation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "You already have an active reservation for this book"})

	// State conflicts
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Invalid reservation status transition",
			Details: err.Error(),
		})
	case errors.Is(err, services.ErrReservationNotPending):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Only pending reservations can be cancelled"})
	case errors.Is(err, services.ErrActiveReservations):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Active reservations exist"})
	case errors.Is(err, services.ErrEmailTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Email already registered"})
	case errors.Is(err, services.ErrCategoryTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Category name already exists"})

	default:
		h.LogError(c, err, "Unhandled service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
