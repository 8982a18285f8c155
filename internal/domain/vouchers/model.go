package vouchers

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusAvailable = "available"
	StatusSold      = "sold"
	StatusUsed      = "used"
)

// Voucher is a single-use access code. Once sold it never returns to available.
type Voucher struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_vouchers_tenant_code;index:idx_vouchers_pick,priority:1" json:"tenant_id"`
	PlanID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_vouchers_pick,priority:2" json:"plan_id"`
	Code          string     `gorm:"column:voucher_code;not null;uniqueIndex:idx_vouchers_tenant_code" json:"voucher_code"`
	Status        string     `gorm:"type:varchar(10);not null;default:'available';index:idx_vouchers_pick,priority:3" json:"status"`
	SoldToPhone   *string    `json:"sold_to_phone"`
	SoldAt        *time.Time `json:"sold_at"`
	TransactionID *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_vouchers_transaction" json:"transaction_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (v *Voucher) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.Status == "" {
		v.Status = StatusAvailable
	}
	return nil
}
