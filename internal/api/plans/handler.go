package plans

import (
	"errors"
	"net/http"
	"strings"

	"qtro-isp/internal/api/httpx"
	"qtro-isp/internal/domain/billing"
	"qtro-isp/internal/domain/plans"
	"qtro-isp/internal/domain/vouchers"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

type planInput struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	DataLimit   *string          `json:"data_limit"`
	Speed       *string          `json:"speed"`
	Price       *decimal.Decimal `json:"price"`
	Duration    *string          `json:"duration"`
	IsActive    *bool            `json:"is_active"`
}

type PlanDTO struct {
	plans.Plan
	AvailableVouchers int64 `json:"available_vouchers"`
}

// GET /plans
func (h *Handler) List(c *gin.Context) {
	tenantID, ok := httpx.TenantID(c)
	if !ok {
		return
	}

	var list []plans.Plan
	if err := h.db.Where("tenant_id = ?", tenantID).Order("price ASC").Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plans"})
		return
	}
	counts, err := vouchers.CountAvailable(h.db, tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count vouchers"})
		return
	}

	out := make([]PlanDTO, 0, len(list))
	for _, p := range list {
		out = append(out, PlanDTO{Plan: p, AvailableVouchers: counts[p.ID]})
	}
	c.JSON(http.StatusOK, out)
}

// POST /plans
func (h *Handler) Create(c *gin.Context) {
	tenantID, ok := httpx.TenantID(c)
	if !ok {
		return
	}

	var in planInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" || in.Price == nil || in.Duration == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, price and duration are required"})
		return
	}

	plan := plans.Plan{TenantID: tenantID, IsActive: true}
	if msg := apply(&plan, &in); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	if err := h.db.Create(&plan).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create plan"})
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// PUT /plans/:id
func (h *Handler) Update(c *gin.Context) {
	plan, ok := h.ownedPlan(c)
	if !ok {
		return
	}

	var in planInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := apply(plan, &in); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	if err := h.db.Model(plan).Select("name", "description", "data_limit", "speed", "price", "duration", "is_active").
		Updates(plan).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update plan"})
		return
	}
	c.JSON(http.StatusOK, plan)
}

// DELETE /plans/:id
// Plans with sales history are deactivated instead of deleted.
func (h *Handler) Delete(c *gin.Context) {
	plan, ok := h.ownedPlan(c)
	if !ok {
		return
	}

	var sales int64
	if err := h.db.Model(&billing.Transaction{}).Where("plan_id = ?", plan.ID).Count(&sales).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check plan usage"})
		return
	}
	if sales > 0 {
		if err := h.db.Model(plan).Update("is_active", false).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate plan"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Plan has sales and was deactivated"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("plan_id = ? AND status = ?", plan.ID, vouchers.StatusAvailable).
			Delete(&vouchers.Voucher{}).Error; err != nil {
			return err
		}
		return tx.Delete(plan).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete plan"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Plan deleted"})
}

func (h *Handler) ownedPlan(c *gin.Context) (*plans.Plan, bool) {
	tenantID, ok := httpx.TenantID(c)
	if !ok {
		return nil, false
	}
	planID, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return nil, false
	}

	var plan plans.Plan
	if err := h.db.Where("id = ? AND tenant_id = ?", planID, tenantID).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plan"})
		return nil, false
	}
	return &plan, true
}

// apply copies set fields onto p and returns a validation message, if any.
func apply(p *plans.Plan, in *planInput) string {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return "name cannot be empty"
		}
		p.Name = name
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.DataLimit != nil {
		p.DataLimit = strings.TrimSpace(*in.DataLimit)
	}
	if in.Speed != nil {
		p.Speed = strings.TrimSpace(*in.Speed)
	}
	if in.Price != nil {
		if !in.Price.IsPositive() {
			return "price must be greater than zero"
		}
		p.Price = in.Price.Round(2)
	}
	if in.Duration != nil {
		d := plans.NormalizeDuration(*in.Duration)
		if d == "" {
			return "duration must be daily, weekly or monthly"
		}
		p.Duration = d
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	return ""
}
