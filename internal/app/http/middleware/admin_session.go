package middleware

import (
	"context"
	"errors"
	"net/http"

	"qtro-isp/internal/api/httpx"
	"qtro-isp/internal/domain/admins"
	"qtro-isp/internal/usecase/adminauth"

	"github.com/gin-gonic/gin"
)

// SessionVerifier resolves an admin bearer token.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (*admins.AdminUser, error)
}

// RequireAdminSession guards payout and tenant management routes.
func RequireAdminSession(v SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			return
		}

		admin, err := v.Verify(c.Request.Context(), token)
		switch {
		case errors.Is(err, adminauth.ErrSessionExpired), errors.Is(err, adminauth.ErrAccountDisabled):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		case err != nil:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify session"})
			return
		}

		c.Set(httpx.KeyAdmin, admin)
		c.Set(httpx.KeyToken, token)
		c.Set(httpx.KeyRole, admin.Role)
		c.Next()
	}
}

func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(httpx.KeyRole)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Role not found"})
			c.Abort()
			return
		}
		if value != role {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			c.Abort()
			return
		}
		c.Next()
	}
}
