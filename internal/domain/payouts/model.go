package payouts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	StatusPending = "pending"
	StatusPaid    = "paid"
)

// Payout is a batch of a tenant's completed, unpaid sales over a period.
type Payout struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	PeriodStart        time.Time       `gorm:"not null" json:"period_start"`
	PeriodEnd          time.Time       `gorm:"not null;index" json:"period_end"`
	TotalTransactions  int             `gorm:"not null" json:"total_transactions"`
	GrossAmount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"gross_amount"`
	CommissionAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"commission_amount"`
	NetAmount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"net_amount"`
	Status             string          `gorm:"type:varchar(10);not null;default:'pending';index" json:"status"`
	AdminNotes         *string         `json:"admin_notes"`
	PaymentPhoneNumber string          `json:"payment_phone_number"`
	MpesaTransactionID *string         `json:"mpesa_transaction_id"`
	PaidAt             *time.Time      `json:"paid_at"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (p *Payout) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	return nil
}
