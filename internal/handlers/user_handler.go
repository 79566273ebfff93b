package handlers

import (
	"net/http"
	"strings"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/repositories"
	"github.com/SAP-F-2025/library-service/internal/services"
	"github.com/SAP-F-2025/library-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	BaseHandler
	userService services.UserService
}

func NewUserHandler(userService services.UserService, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		userService: userService,
	}
}

// ListUsers lists users with optional filtering
// @Summary List users
// @Tags users
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 12, max: 100)"
// @Param q query string false "Search query (name or email)"
// @Param role query string false "Filter by role (visitor, reader, librarian, admin)"
// @Success 200 {object} services.UserListResponse
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 422 {object} ErrorResponse "Unknown role"
// @Router /users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	h.LogRequest(c, "Listing users")

	filters := repositories.UserFilters{Query: strings.TrimSpace(c.Query("q"))}
	filters.Limit, filters.Offset = h.parsePagination(c)

	if roleStr := c.Query("role"); roleStr != "" {
		role, ok := models.ParseRole(roleStr)
		if !ok {
			h.rejectQuery(c, "role", "role must be one of visitor, reader, librarian, admin", roleStr, "user_role")
			return
		}
		filters.Role = &role
	}

	resp, err := h.userService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetUser retrieves a user by ID
// @Summary Get user by ID
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// CreateUser
// @Summary Create user
// @Description Creates an account with any non-admin role
// @Tags users
// @Accept json
// @Produce json
// @Param request body services.CreateUserRequest true "User data"
// @Success 201 {object} models.User
// @Failure 409 {object} ErrorResponse "Email already registered"
// @Failure 422 {object} ErrorResponse "Validation failed"
// @Router /users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req services.CreateUserRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating user", "email", req.Email, "role", req.Role)

	user, err := h.userService.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// UpdateUser
// @Summary Update user
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body services.AdminUpdateUserRequest true "User changes"
// @Success 200 {object} models.User
// @Failure 403 {object} ErrorResponse "Cannot modify own account"
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req services.AdminUpdateUserRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Updating user", "target_id", c.Param("id"))

	user, err := h.userService.Update(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser
// @Summary Delete user
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse "Cannot delete own account"
// @Failure 409 {object} ErrorResponse "User has active reservations"
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting user", "target_id", c.Param("id"))

	if err := h.userService.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "User deleted"})
}

// ChangeRole
// @Summary Change user role
// @Description Admins cannot change their own role, demote other admins or promote to admin
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body services.ChangeRoleRequest true "New role"
// @Success 200 {object} models.User
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 422 {object} ErrorResponse "Unknown role"
// @Router /users/{id}/role [put]
func (h *UserHandler) ChangeRole(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req services.ChangeRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Changing user role", "target_id", c.Param("id"), "role", req.Role)

	user, err := h.userService.ChangeRole(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) actor(c *gin.Context) (*models.User, bool) {
	user, ok := GetUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return nil, false
	}
	return user, true
}
