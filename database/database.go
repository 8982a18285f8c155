package database

import (
	"fmt"

	"qtro-isp/internal/domain/admins"
	"qtro-isp/internal/domain/billing"
	"qtro-isp/internal/domain/payouts"
	"qtro-isp/internal/domain/plans"
	"qtro-isp/internal/domain/tenants"
	"qtro-isp/internal/domain/vouchers"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres.
func Open(dsn string, debug bool) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DB_URL not set")
	}

	cfg := &gorm.Config{}
	if !debug {
		cfg.Logger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Models lists every table the service owns, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&tenants.Tenant{},
		&plans.Plan{},
		&vouchers.Voucher{},
		&billing.Transaction{},
		&payouts.Payout{},
		&admins.AdminUser{},
		&admins.AdminSession{},
	}
}

// Migrate creates or updates every table in Models.
func Migrate(db *gorm.DB) error {
	if db.Dialector.Name() == "postgres" {
		// REQUIRED for UUID generation
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
			return fmt.Errorf("failed to enable pgcrypto extension: %w", err)
		}
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
