package portalapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"qtro-isp/internal/domain/plans"
	"qtro-isp/internal/domain/tenants"
	"qtro-isp/internal/domain/vouchers"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// GET /portal/:slug
// Sold-out plans stay listed with a zero count so the portal can grey them out.
func (h *Handler) Get(c *gin.Context) {
	slug := strings.ToLower(strings.TrimSpace(c.Param("slug")))
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing portal slug"})
		return
	}

	var tenant tenants.Tenant
	if err := tenantBySlugQuery(h.db, slug).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Portal not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load portal"})
		return
	}

	var list []plans.Plan
	if err := activePlansQuery(h.db, tenant.ID).Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plans"})
		return
	}
	counts, err := vouchers.CountAvailable(h.db, tenant.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count vouchers"})
		return
	}

	resp := PortalResponse{
		BusinessName: tenant.BusinessName,
		SupportPhone: tenant.PhoneNumber,
		Slug:         slug,
		Plans:        make([]PlanDTO, 0, len(list)),
	}
	for i := range list {
		p := &list[i]
		resp.Plans = append(resp.Plans, PlanDTO{
			ID:                p.ID.String(),
			Name:              p.Name,
			Description:       p.Description,
			DataLimit:         p.DataLimit,
			Speed:             p.Speed,
			Price:             p.Price,
			Duration:          p.Duration,
			AccessHours:       int64(plans.AccessPeriod(p) / time.Hour),
			AvailableVouchers: counts[p.ID],
		})
	}
	c.JSON(http.StatusOK, resp)
}
