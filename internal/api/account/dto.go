package account

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MeResponse struct {
	Tenant TenantDTO        `json:"tenant"`
	Payout PayoutSettingDTO `json:"payout"`
	Portal PortalDTO        `json:"portal"`
}

type TenantDTO struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	BusinessName string    `json:"business_name"`
	PhoneNumber  string    `json:"phone_number"`
	AuthProvider string    `json:"auth_provider"`
	CreatedAt    time.Time `json:"created_at"`
}

type PayoutSettingDTO struct {
	CommissionRate    decimal.Decimal `json:"commission_rate"`
	PayoutFrequency   string          `json:"payout_frequency"`
	MinimumPayout     decimal.Decimal `json:"minimum_payout"`
	PayoutPhoneNumber *string         `json:"payout_phone_number"`
	Destination       string          `json:"destination"`
	NextPayoutDate    time.Time       `json:"next_payout_date"`
}

type PortalDTO struct {
	Slug string `json:"slug"`
	URL  string `json:"url"`
}
