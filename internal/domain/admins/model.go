package admins

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AdminUser struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string     `gorm:"not null;uniqueIndex:idx_admin_users_email" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	FullName     string     `json:"full_name"`
	Role         string     `gorm:"not null;default:'admin'" json:"role"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (a *AdminUser) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Role == "" {
		a.Role = "admin"
	}
	return nil
}

// AdminSession is an opaque bearer token with a fixed expiry.
type AdminSession struct {
	ID           uint      `gorm:"primaryKey"`
	AdminUserID  uuid.UUID `gorm:"type:uuid;not null;index"`
	AdminUser    AdminUser `gorm:"constraint:OnDelete:CASCADE"`
	SessionToken string    `gorm:"not null;uniqueIndex"`
	ExpiresAt    time.Time `gorm:"not null;index"`
	IPAddress    string
	UserAgent    string
	CreatedAt    time.Time
}
