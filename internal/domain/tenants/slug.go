package tenants

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/*
	Portal slug helpers
	-------------------
	- generating slugs from the business name
	- persisting them
	- building public portal URLs
*/

var (
	nonSlug   = regexp.MustCompile(`[^a-z0-9\-]+`)
	multiDash = regexp.MustCompile(`-+`)
)

// MakeSlug generates a URL-safe base slug from a business name.
// Example: "Kamau Net Ltd" -> "kamau-net-ltd"
func MakeSlug(businessName string) string {
	base := strings.ToLower(strings.TrimSpace(businessName))
	base = strings.ReplaceAll(base, " ", "-")
	base = nonSlug.ReplaceAllString(base, "")
	base = multiDash.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")

	if base == "" {
		base = "portal"
	}
	return base
}

// EnsurePortalSlug ensures tenant.PortalSlug exists and is persisted.
// Must be called after the tenant has an ID.
func EnsurePortalSlug(db *gorm.DB, tenant *Tenant) (string, error) {
	if tenant == nil {
		return "", fmt.Errorf("tenant is nil")
	}
	if db == nil {
		return "", fmt.Errorf("db is nil")
	}

	if tenant.PortalSlug != nil && strings.TrimSpace(*tenant.PortalSlug) != "" {
		return strings.TrimSpace(*tenant.PortalSlug), nil
	}

	if tenant.ID == uuid.Nil {
		return "", fmt.Errorf("tenant ID missing (call EnsurePortalSlug after Create)")
	}

	// first uuid block keeps slugs short and unique enough per business name
	slug := fmt.Sprintf("%s-%s", MakeSlug(tenant.BusinessName), tenant.ID.String()[:8])
	tenant.PortalSlug = &slug

	if err := db.
		Model(&Tenant{}).
		Where("id = ?", tenant.ID).
		Update("portal_slug", slug).Error; err != nil {
		return "", err
	}

	return slug, nil
}

// PortalURL builds the public purchase page URL for a slug.
func PortalURL(appURL, slug string) string {
	return strings.TrimRight(appURL, "/") + "/portal/" + slug
}
