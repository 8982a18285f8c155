package auth

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"qtro-isp/config"
	"qtro-isp/internal/api/httpx"
	"qtro-isp/internal/domain/tenants"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tokenTTL = 24 * time.Hour

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

type Handler struct {
	db     *gorm.DB
	cfg    *config.Config
	logger *zap.Logger
	now    func() time.Time
}

func NewHandler(db *gorm.DB, cfg *config.Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{db: db, cfg: cfg, logger: logger, now: time.Now}
}

func isPasswordStrong(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, c := range password {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
			hasLetter = true
		case '0' <= c && c <= '9':
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

func isEmailValid(email string) bool {
	return emailPattern.MatchString(email)
}

// POST /auth/register
func (h *Handler) Register(c *gin.Context) {
	var input struct {
		BusinessName string `json:"business_name" binding:"required"`
		PhoneNumber  string `json:"phone_number" binding:"required"`
		Email        string `json:"email" binding:"required,email"`
		Password     string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !isPasswordStrong(input.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters long and contain both letters and numbers"})
		return
	}
	if !isEmailValid(email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	hashed := string(hashedPassword)

	tenant := tenants.Tenant{
		Email:           email,
		Password:        &hashed,
		AuthProvider:    tenants.ProviderLocal,
		BusinessName:    strings.TrimSpace(input.BusinessName),
		PhoneNumber:     strings.TrimSpace(input.PhoneNumber),
		CommissionRate:  h.cfg.DefaultCommissionRate,
		PayoutFrequency: tenants.PayoutMonthly,
		MinimumPayout:   h.cfg.DefaultMinimumPayout,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}
		_, err := tenants.EnsurePortalSlug(tx, &tenant)
		return err
	})
	if err != nil {
		h.logger.Warn("tenant registration failed", zap.String("email", email), zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": "Email may already exist"})
		return
	}

	token, err := h.issueToken(&tenant)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	h.logger.Info("tenant registered", zap.String("tenant_id", tenant.ID.String()))
	c.JSON(http.StatusCreated, gin.H{
		"token":      token,
		"tenant":     tenant,
		"portal_url": tenants.PortalURL(h.cfg.AppURL, *tenant.PortalSlug),
	})
}

// POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var tenant tenants.Tenant
	err := h.db.Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&tenant).Error
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if tenant.Password == nil || *tenant.Password == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "This account uses Google sign-in"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*tenant.Password), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.issueToken(&tenant)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// POST /change-password
func (h *Handler) ChangePassword(c *gin.Context) {
	tenantID, ok := httpx.TenantID(c)
	if !ok {
		return
	}

	var body struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if !isPasswordStrong(body.NewPassword) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "New password must be at least 8 characters with letters and numbers"})
		return
	}

	var tenant tenants.Tenant
	if err := h.db.Where("id = ?", tenantID).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load account"})
		return
	}

	if tenant.Password == nil || *tenant.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "This account does not have a password. Sign in with Google or set a password first.",
		})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*tenant.Password), []byte(body.OldPassword)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Old password is incorrect"})
		return
	}

	hashedNew, err := bcrypt.GenerateFromPassword([]byte(body.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	if err := h.db.Model(&tenant).Update("password", string(hashedNew)).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

func (h *Handler) issueToken(tenant *tenants.Tenant) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"tenant_id": tenant.ID.String(),
		"email":     tenant.Email,
		"role":      "tenant",
		"exp":       h.now().Add(tokenTTL).Unix(),
	})
	return t.SignedString([]byte(h.cfg.JWTSecret))
}
