package plans

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Plan is a saleable offering owned by one tenant.
type Plan struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Name        string          `gorm:"not null" json:"name"`
	Description string          `json:"description"`
	DataLimit   string          `json:"data_limit"`
	Speed       string          `json:"speed"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Duration    string          `gorm:"type:varchar(10);not null" json:"duration"` // "daily" | "weekly" | "monthly"
	IsActive    bool            `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
