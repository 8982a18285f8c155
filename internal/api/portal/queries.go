package portalapi

import (
	"qtro-isp/internal/domain/plans"
	"qtro-isp/internal/domain/tenants"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func tenantBySlugQuery(db *gorm.DB, slug string) *gorm.DB {
	return db.Model(&tenants.Tenant{}).
		Select("id", "business_name", "phone_number", "portal_slug").
		Where("portal_slug = ?", slug)
}

func activePlansQuery(db *gorm.DB, tenantID uuid.UUID) *gorm.DB {
	return db.Model(&plans.Plan{}).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("price ASC")
}
