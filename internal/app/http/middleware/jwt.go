package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"qtro-isp/internal/api/httpx"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthMiddleware validates the tenant's bearer JWT and stores its claims on the context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	jwtKey := []byte(secret)
	return func(c *gin.Context) {
		if len(jwtKey) == 0 {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "JWT secret not configured"})
			c.Abort()
			return
		}
		tokenString, ok := bearerToken(c)
		if !ok {
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return jwtKey, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}
		raw, _ := claims["tenant_id"].(string)
		tenantID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		c.Set(httpx.KeyTenantID, tenantID)
		if email, ok := claims["email"].(string); ok {
			c.Set(httpx.KeyEmail, email)
		}
		if role, ok := claims["role"].(string); ok {
			c.Set(httpx.KeyRole, role)
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing"})
		c.Abort()
		return "", false
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if tokenString == authHeader || tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Bearer token malformed"})
		c.Abort()
		return "", false
	}
	return tokenString, true
}
