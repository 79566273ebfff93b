package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/library-service/internal/services"
	"github.com/SAP-F-2025/library-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	BaseHandler
	authService services.AuthService
	userService services.UserService
}

func NewAuthHandler(authService services.AuthService, userService services.UserService, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		authService: authService,
		userService: userService,
	}
}

// Register creates a reader account and signs it in
// @Summary Register
// @Description Creates a reader account and returns a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.RegisterRequest true "Registration data"
// @Success 201 {object} services.AuthResponse
// @Failure 409 {object} ErrorResponse "Email already registered"
// @Failure 422 {object} ErrorResponse "Validation failed"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Registering user", "email", req.Email)

	resp, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login exchanges credentials for a bearer token
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.LoginRequest true "Credentials"
// @Success 200 {object} services.AuthResponse
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Failure 422 {object} ErrorResponse "Validation failed"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "User login", "email", req.Email)

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Logout revokes every token issued to the caller
// @Summary Logout
// @Tags auth
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	if err := h.authService.Logout(c.Request.Context(), userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Logged out"})
}

// GetProfile
// @Summary Get current user
// @Tags profile
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	user, err := h.userService.Profile(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfile changes the caller's name, email or password
// @Summary Update current user
// @Tags profile
// @Accept json
// @Produce json
// @Param request body services.UpdateProfileRequest true "Profile changes"
// @Success 200 {object} models.User
// @Failure 409 {object} ErrorResponse "Email already registered"
// @Failure 422 {object} ErrorResponse "Validation failed"
// @Router /profile [put]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	var req services.UpdateProfileRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Updating profile")

	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
