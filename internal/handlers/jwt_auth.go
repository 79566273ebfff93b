package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/SAP-F-2025/library-service/internal/services"
	"github.com/SAP-F-2025/library-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// JWTAuthMiddleware resolves bearer tokens issued by the auth service
type JWTAuthMiddleware struct {
	authService services.AuthService
	guard       *services.Guard
	logger      utils.Logger
}

func NewJWTAuthMiddleware(authService services.AuthService, guard *services.Guard, logger utils.Logger) *JWTAuthMiddleware {
	return &JWTAuthMiddleware{
		authService: authService,
		guard:       guard,
		logger:      logger,
	}
}

func (m *JWTAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Authorization header missing",
			})
			return
		}

		tokenParts := strings.Fields(authHeader)
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid authorization header format",
			})
			return
		}

		user, err := m.authService.Authenticate(c.Request.Context(), tokenParts[1])
		if err != nil {
			if !errors.Is(err, services.ErrInvalidToken) {
				utils.GetLogger(c, m.logger).Error("Failed to authenticate request", "error", err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid or expired token",
			})
			return
		}

		c.Set("user_id", user.ID)
		c.Set("user", user)
		c.Set("user_role", user.Role)
		c.Set("user_email", user.Email)

		c.Next()
	}
}

// RequireRoleMiddleware lets admins and the listed roles through
func (m *JWTAuthMiddleware) RequireRoleMiddleware(requiredRoles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetUserRoleFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "User role not found in context",
			})
			return
		}

		if err := m.guard.Authorize(role, requiredRoles...); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "Insufficient permissions",
				Details: map[string]interface{}{
					"role":     role,
					"required": requiredRoles,
				},
			})
			return
		}

		c.Next()
	}
}

func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}

func GetUserIDFromContext(c *gin.Context) string {
	return c.GetString("user_id")
}

func GetUserRoleFromContext(c *gin.Context) (models.UserRole, bool) {
	value, exists := c.Get("user_role")
	if !exists {
		return "", false
	}
	role, ok := value.(models.UserRole)
	return role, ok
}
