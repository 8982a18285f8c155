package tenants

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	PayoutWeekly  = "weekly"
	PayoutMonthly = "monthly"
)

const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// Tenant is a reseller profile. Everything sold through the platform is owned by one.
type Tenant struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"not null;uniqueIndex:idx_tenants_email" json:"email"`
	Password     *string   `json:"-"`
	AuthProvider string    `gorm:"type:varchar(20);not null;default:'local'" json:"auth_provider"`
	GoogleSub    *string   `gorm:"uniqueIndex:idx_tenants_google_sub" json:"-"`

	BusinessName string  `gorm:"not null" json:"business_name"`
	PhoneNumber  string  `json:"phone_number"`
	PortalSlug   *string `gorm:"column:portal_slug;uniqueIndex:idx_tenants_portal_slug" json:"portal_slug"`

	CommissionRate    decimal.Decimal `gorm:"type:decimal(5,2);not null;default:8" json:"commission_rate"`
	PayoutFrequency   string          `gorm:"type:varchar(10);not null;default:'monthly'" json:"payout_frequency"`
	MinimumPayout     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:1000" json:"minimum_payout"`
	PayoutPhoneNumber *string         `json:"payout_phone_number"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.AuthProvider == "" {
		t.AuthProvider = ProviderLocal
	}
	if t.PayoutFrequency == "" {
		t.PayoutFrequency = PayoutMonthly
	}
	return nil
}

// PayoutDestination is where settlements are sent: the payout phone when set,
// otherwise the business phone.
func (t *Tenant) PayoutDestination() string {
	if t.PayoutPhoneNumber != nil && *t.PayoutPhoneNumber != "" {
		return *t.PayoutPhoneNumber
	}
	return t.PhoneNumber
}

func ValidFrequency(f string) bool {
	return f == PayoutWeekly || f == PayoutMonthly
}
