package payouts

import (
	"context"
	"errors"
	"time"

	"qtro-isp/internal/domain/billing"
	domain "qtro-isp/internal/domain/payouts"
	"qtro-isp/internal/domain/tenants"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Earnings is the tenant's own view of money owed and paid.
type Earnings struct {
	PendingEarnings   decimal.Decimal `json:"pending_earnings"`
	PendingCommission decimal.Decimal `json:"pending_commission"`
	PendingCount      int             `json:"pending_count"`
	TotalEarnings     decimal.Decimal `json:"total_earnings"`
	TotalCommission   decimal.Decimal `json:"total_commission"`
	TotalPaidOut      decimal.Decimal `json:"total_paid_out"`
	MinimumPayout     decimal.Decimal `json:"minimum_payout"`
	ThresholdMet      bool            `json:"threshold_met"`
	CommissionRate    decimal.Decimal `json:"commission_rate"`
	PayoutFrequency   string          `json:"payout_frequency"`
	NextPayoutDate    time.Time       `json:"next_payout_date"`
	Payouts           []domain.Payout `json:"payouts"`
}

func (s *Service) Earnings(ctx context.Context, tenantID uuid.UUID) (*Earnings, error) {
	db := s.db.WithContext(ctx)

	var tenant tenants.Tenant
	if err := db.Where("id = ?", tenantID).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}

	var completed []billing.Transaction
	if err := db.Where("tenant_id = ? AND status = ?", tenantID, billing.StatusCompleted).
		Find(&completed).Error; err != nil {
		return nil, err
	}

	out := &Earnings{
		TotalEarnings:   decimal.Zero,
		TotalCommission: decimal.Zero,
		TotalPaidOut:    decimal.Zero,
		CommissionRate:  tenant.CommissionRate,
		PayoutFrequency: tenant.PayoutFrequency,
		NextPayoutDate:  domain.NextPayoutDate(s.now(), tenant.PayoutFrequency),
	}
	for _, t := range completed {
		out.TotalEarnings = out.TotalEarnings.Add(t.NetAmount.Decimal)
		out.TotalCommission = out.TotalCommission.Add(t.CommissionAmount.Decimal)
		if t.PayoutStatus == billing.PayoutPaid {
			out.TotalPaidOut = out.TotalPaidOut.Add(t.NetAmount.Decimal)
		}
	}

	pending := domain.Aggregate(tenantID, tenant.MinimumPayout, completed)
	out.PendingEarnings = pending.NetAmount
	out.PendingCommission = pending.CommissionAmount
	out.PendingCount = pending.TransactionCount
	out.MinimumPayout = pending.MinimumPayout
	out.ThresholdMet = pending.ThresholdMet

	if err := db.Where("tenant_id = ?", tenantID).Order("created_at DESC").Limit(12).
		Find(&out.Payouts).Error; err != nil {
		return nil, err
	}
	return out, nil
}
