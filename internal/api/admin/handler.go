package admin

import (
	"errors"
	"net/http"

	"qtro-isp/internal/api/httpx"
	"qtro-isp/internal/usecase/adminauth"
	"qtro-isp/internal/usecase/payouts"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Handler struct {
	db      *gorm.DB
	auth    *adminauth.Service
	payouts *payouts.Service
	logger  *zap.Logger
}

func NewHandler(db *gorm.DB, auth *adminauth.Service, svc *payouts.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{db: db, auth: auth, payouts: svc, logger: logger}
}

// POST /api/admin/auth/login
func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	session, err := h.auth.Login(c.Request.Context(), input.Email, input.Password, c.ClientIP(), c.Request.UserAgent())
	switch {
	case errors.Is(err, adminauth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	case errors.Is(err, adminauth.ErrAccountDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
		return
	case err != nil:
		h.logger.Error("admin login", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"admin":      session.Admin,
	})
}

// GET /api/admin/auth/verify
func (h *Handler) Verify(c *gin.Context) {
	admin := httpx.Admin(c)
	if admin == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"admin": admin})
}

// POST /api/admin/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	token := c.GetString(httpx.KeyToken)
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		h.logger.Error("admin logout", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
