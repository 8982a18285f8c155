package vouchers

import (
	"errors"
	"net/http"
	"strings"

	"qtro-isp/internal/api/httpx"
	"qtro-isp/internal/domain/plans"
	"qtro-isp/internal/domain/vouchers"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) ownedPlan(c *gin.Context, tenantID uuid.UUID, raw string) (*plans.Plan, bool) {
	planID, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plan_id"})
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

// POST /vouchers/generate
func (h *Handler) Generate(c *gin.Context) {
	tenantID, ok := httpx.TenantID(c)
	if !ok {
		return
	}

	var input struct {
		PlanID string `json:"plan_id" binding:"required"`
		Count  int    `json:"count" binding:"required"`
		Prefix string `json:"prefix"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	plan, ok := h.ownedPlan(c, tenantID, input.PlanID)
	if !ok {
		return
	}

	codes, err := vouchers.GenerateCodes(input.Prefix, input.Count)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := vouchers.Insert(h.db, tenantID, plan.ID, codes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create vouchers"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"created": created, "requested": input.Count})
}

// POST /vouchers/bulk
func (h *Handler) BulkCreate(c *gin.Context) {
	tenantID, ok := httpx.TenantID(c)
	if !ok {
		return
	}

	var input struct {
		PlanID string   `json:"plan_id" binding:"required"`
		Codes  []string `json:"codes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	plan, ok := h.ownedPlan(c, tenantID, input.PlanID)
	if !ok {
		return
	}

	codes := vouchers.NormalizeCodes(input.Codes)
	if len(codes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No voucher codes provided"})
		return
	}
	if len(codes) > vouchers.MaxBatch {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Too many codes in one batch"})
		return
	}

	created, err := vouchers.Insert(h.db, tenantID, plan.ID, codes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create vouchers"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"created": created,
		"skipped": int64(len(codes)) - created,
	})
}

// GET /vouchers?status=&plan_id=&search=&page=&pageSize=
func (h *Handler) List(c *gin.Context) {
	tenantID, ok := httpx.TenantID(c)
	if !ok {
		return
	}

	q := h.db.Model(&vouchers.Voucher{}).Where("tenant_id = ?", tenantID)
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if raw := c.Query("plan_id"); raw != "" {
		planID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plan_id"})
			return
		}
		q = q.Where("plan_id = ?", planID)
	}
	if search := strings.ToUpper(strings.TrimSpace(c.Query("search"))); search != "" {
		q = q.Where("voucher_code LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count vouchers"})
		return
	}

	var list []vouchers.Voucher
	if err := q.Scopes(httpx.Paginate(c)).Order("created_at DESC").Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load vouchers"})
		return
	}
	c.JSON(http.StatusOK, httpx.NewPaginatedResponse(c, list, total))
}

// DELETE /vouchers/:id
// Sold vouchers are part of a sale record and cannot be removed.
func (h *Handler) Delete(c *gin.Context) {
	tenantID, ok := httpx.TenantID(c)
	if !ok {
		return
	}
	id, ok := httpx.ParamUUID(c, "id")
	if !ok {
		return
	}

	res := h.db.Where("id = ? AND tenant_id = ? AND status = ?", id, tenantID, vouchers.StatusAvailable).
		Delete(&vouchers.Voucher{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete voucher"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Only available vouchers can be deleted"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Voucher deleted"})
}
