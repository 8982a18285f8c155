package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const (
	PayoutPending = "pending"
	PayoutPaid    = "paid"
)

// Transaction is one purchase attempt, keyed by the gateway checkout reference.
// Payment status moves pending -> completed|failed exactly once; payout status moves
// pending -> paid independently.
type Transaction struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	PlanID            uuid.UUID       `gorm:"type:uuid;not null;index" json:"plan_id"`
	VoucherID         *uuid.UUID      `gorm:"type:uuid" json:"voucher_id"`
	PhoneNumber       string          `gorm:"not null" json:"phone_number"`
	Amount            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	CheckoutRequestID string          `gorm:"column:checkout_request_id;not null;uniqueIndex:idx_transactions_checkout" json:"checkout_request_id"`
	MerchantRequestID string          `json:"merchant_request_id,omitempty"`
	Status            string          `gorm:"type:varchar(10);not null;default:'pending';index" json:"status"`

	CommissionRate   decimal.NullDecimal `gorm:"type:decimal(5,2)" json:"commission_rate"`
	CommissionAmount decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"commission_amount"`
	NetAmount        decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"net_amount"`

	MpesaReceiptNumber *string        `json:"mpesa_receipt_number"`
	ResultCode         *string        `json:"result_code,omitempty"`
	ResultDesc         *string        `json:"result_desc,omitempty"`
	CallbackPayload    datatypes.JSON `json:"-"`

	PayoutStatus string     `gorm:"type:varchar(10);not null;default:'pending';index" json:"payout_status"`
	PayoutID     *uuid.UUID `gorm:"type:uuid;index" json:"payout_id,omitempty"`
	PayoutDate   *time.Time `json:"payout_date"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.PayoutStatus == "" {
		t.PayoutStatus = PayoutPending
	}
	return nil
}

// IsTerminal reports whether the payment status can no longer change.
func (t *Transaction) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}
