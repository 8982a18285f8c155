package httpx

import (
	"net/http"

	"qtro-isp/internal/domain/admins"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	KeyTenantID = "tenant_id"
	KeyEmail    = "email"
	KeyRole     = "role"
	KeyAdmin    = "admin"
	KeyToken    = "admin_token"
)

// TenantID returns the authenticated tenant, writing a 401 when it is missing.
func TenantID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(KeyTenantID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	if !ok || id == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid tenant ID"})
		return uuid.Nil, false
	}
	return id, true
}

func Admin(c *gin.Context) *admins.AdminUser {
	v, ok := c.Get(KeyAdmin)
	if !ok {
		return nil
	}
	a, _ := v.(*admins.AdminUser)
	return a
}

// ParamUUID parses a path parameter, writing a 400 on failure.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
