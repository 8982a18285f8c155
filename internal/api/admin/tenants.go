package admin

import (
	"errors"
	"net/http"
	"strings"

	"qtro-isp/internal/api/httpx"
	"qtro-isp/internal/domain/billing"
	"qtro-isp/internal/domain/tenants"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type TenantRow struct {
	tenants.Tenant
	TotalSales      int64           `json:"total_sales"`
	GrossAmount     decimal.Decimal `json:"gross_amount"`
	CommissionTotal decimal.Decimal `json:"commission_total"`
}

type tenantTotals struct {
	TenantID   string
	Sales      int64
	Gross      decimal.NullDecimal
	Commission decimal.NullDecimal
}

// GET /api/admin/tenants?search=&page=&pageSize=
func (h *Handler) ListTenants(c *gin.Context) {
	q := h.db.Model(&tenants.Tenant{})
	if s := strings.TrimSpace(c.Query("search")); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(business_name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count tenants"})
		return
	}
	var list []tenants.Tenant
	if err := q.Scopes(httpx.Paginate(c)).Order("created_at DESC").Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load tenants"})
		return
	}

	ids := make([]string, 0, len(list))
	for _, t := range list {
		ids = append(ids, t.ID.String())
	}
	byTenant := map[string]tenantTotals{}
	if len(ids) > 0 {
		var totals []tenantTotals
		if err := h.db.Model(&billing.Transaction{}).
			Select("tenant_id, COUNT(*) AS sales, SUM(amount) AS gross, SUM(commission_amount) AS commission").
			Where("status = ? AND tenant_id IN ?", billing.StatusCompleted, ids).
			Group("tenant_id").
			Scan(&totals).Error; err != nil {
			h.logger.Error("tenant totals", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load tenant totals"})
			return
		}
		for _, t := range totals {
			byTenant[t.TenantID] = t
		}
	}

	out := make([]TenantRow, 0, len(list))
	for _, t := range list {
		tt := byTenant[t.ID.String()]
		out = append(out, TenantRow{
			Tenant:          t,
			TotalSales:      tt.Sales,
			GrossAmount:     tt.Gross.Decimal,
			CommissionTotal: tt.Commission.Decimal,
		})
	}
	c.JSON(http.StatusOK, httpx.NewPaginatedResponse(c, out, total))
}

// PUT /api/admin/tenants/:id/commission
// The new rate applies to sales completed from now on; settled sales keep theirs.
func (h *Handler) UpdateCommission(c *gin.Context) {
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}
	var input struct {
		CommissionRate *decimal.Decimal `json:"commission_rate" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.CommissionRate == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "commission_rate is required"})
		return
	}
	rate := input.CommissionRate.Round(2)
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "commission_rate must be between 0 and 100"})
		return
	}

	var tenant tenants.Tenant
	if err := h.db.Where("id = ?", id).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load tenant"})
		return
	}
	if err := h.db.Model(&tenant).Update("commission_rate", rate).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update commission rate"})
		return
	}

	actor := ""
	if a := httpx.Admin(c); a != nil {
		actor = a.Email
	}
	h.logger.Info("commission rate changed",
		zap.String("tenant_id", id.String()),
		zap.String("rate", rate.String()),
		zap.String("admin", actor))
	c.JSON(http.StatusOK, tenant)
}
