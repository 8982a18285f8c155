package account

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"qtro-isp/internal/api/httpx"
	"qtro-isp/internal/domain/payouts"
	"qtro-isp/internal/domain/tenants"
	"qtro-isp/internal/infra/mpesa"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Handler struct {
	db     *gorm.DB
	appURL string
	now    func() time.Time
}

func NewHandler(db *gorm.DB, appURL string) *Handler {
	return &Handler{db: db, appURL: appURL, now: time.Now}
}

func (h *Handler) loadTenant(c *gin.Context) (*tenants.Tenant, bool) {
	tenantID, ok := httpx.TenantID(c)
	if !ok {
		return nil, false
	}
	var tenant tenants.Tenant
	if err := h.db.Where("id = ?", tenantID).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load account"})
		return nil, false
	}
	return &tenant, true
}

func (h *Handler) buildMe(tenant *tenants.Tenant) MeResponse {
	slug, _ := tenants.EnsurePortalSlug(h.db, tenant)
	return MeResponse{
		Tenant: TenantDTO{
			ID:           tenant.ID,
			Email:        tenant.Email,
			BusinessName: tenant.BusinessName,
			PhoneNumber:  tenant.PhoneNumber,
			AuthProvider: tenant.AuthProvider,
			CreatedAt:    tenant.CreatedAt,
		},
		Payout: PayoutSettingDTO{
			CommissionRate:    tenant.CommissionRate,
			PayoutFrequency:   tenant.PayoutFrequency,
			MinimumPayout:     tenant.MinimumPayout,
			PayoutPhoneNumber: tenant.PayoutPhoneNumber,
			Destination:       tenant.PayoutDestination(),
			NextPayoutDate:    payouts.NextPayoutDate(h.now(), tenant.PayoutFrequency),
		},
		Portal: PortalDTO{
			Slug: slug,
			URL:  tenants.PortalURL(h.appURL, slug),
		},
	}
}

// GET /me
func (h *Handler) Me(c *gin.Context) {
	tenant, ok := h.loadTenant(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.buildMe(tenant))
}

// PUT /settings
// The commission rate is not editable here; only admins change it.
func (h *Handler) UpdateSettings(c *gin.Context) {
	tenant, ok := h.loadTenant(c)
	if !ok {
		return
	}

	var input struct {
		BusinessName      *string          `json:"business_name"`
		PhoneNumber       *string          `json:"phone_number"`
		PayoutFrequency   *string          `json:"payout_frequency"`
		MinimumPayout     *decimal.Decimal `json:"minimum_payout"`
		PayoutPhoneNumber *string          `json:"payout_phone_number"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if input.BusinessName != nil {
		name := strings.TrimSpace(*input.BusinessName)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Business name cannot be empty"})
			return
		}
		updates["business_name"] = name
	}
	if input.PhoneNumber != nil {
		updates["phone_number"] = strings.TrimSpace(*input.PhoneNumber)
	}
	if input.PayoutFrequency != nil {
		if !tenants.ValidFrequency(*input.PayoutFrequency) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Payout frequency must be weekly or monthly"})
			return
		}
		updates["payout_frequency"] = *input.PayoutFrequency
	}
	if input.MinimumPayout != nil {
		if input.MinimumPayout.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Minimum payout cannot be negative"})
			return
		}
		updates["minimum_payout"] = *input.MinimumPayout
	}
	if input.PayoutPhoneNumber != nil {
		phone := strings.TrimSpace(*input.PayoutPhoneNumber)
		if phone == "" {
			updates["payout_phone_number"] = nil
		} else {
			normalized, err := mpesa.NormalizePhone(phone)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Payout phone must be a valid M-Pesa number"})
				return
			}
			updates["payout_phone_number"] = normalized
		}
	}

	if len(updates) > 0 {
		if err := h.db.Model(&tenants.Tenant{}).Where("id = ?", tenant.ID).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update settings"})
			return
		}
		var fresh tenants.Tenant
		if err := h.db.Where("id = ?", tenant.ID).First(&fresh).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load account"})
			return
		}
		tenant = &fresh
	}

	c.JSON(http.StatusOK, h.buildMe(tenant))
}
