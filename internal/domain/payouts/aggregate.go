package payouts

import (
	"time"

	"qtro-isp/internal/domain/billing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Summary is the aggregate of one tenant's unpaid sales.
type Summary struct {
	TenantID          uuid.UUID       `json:"tenant_id"`
	TransactionCount  int             `json:"transaction_count"`
	GrossAmount       decimal.Decimal `json:"gross_amount"`
	CommissionAmount  decimal.Decimal `json:"commission_amount"`
	NetAmount         decimal.Decimal `json:"net_amount"`
	MinimumPayout     decimal.Decimal `json:"minimum_payout"`
	ThresholdMet      bool            `json:"threshold_met"`
	EarliestCreatedAt *time.Time      `json:"earliest_created_at,omitempty"`
}

// Aggregate sums completed, payout-pending transactions. Rows in any other state are
// skipped so callers can pass a loosely filtered slice.
func Aggregate(tenantID uuid.UUID, minimum decimal.Decimal, txns []billing.Transaction) Summary {
	s := Summary{
		TenantID:         tenantID,
		GrossAmount:      decimal.Zero,
		CommissionAmount: decimal.Zero,
		NetAmount:        decimal.Zero,
		MinimumPayout:    minimum,
	}

	for i := range txns {
		t := &txns[i]
		if t.TenantID != tenantID || t.Status != billing.StatusCompleted || t.PayoutStatus != billing.PayoutPending {
			continue
		}
		s.TransactionCount++
		s.GrossAmount = s.GrossAmount.Add(t.Amount)
		s.CommissionAmount = s.CommissionAmount.Add(t.CommissionAmount.Decimal)
		s.NetAmount = s.NetAmount.Add(t.NetAmount.Decimal)

		if s.EarliestCreatedAt == nil || t.CreatedAt.Before(*s.EarliestCreatedAt) {
			created := t.CreatedAt
			s.EarliestCreatedAt = &created
		}
	}

	s.ThresholdMet = s.NetAmount.GreaterThanOrEqual(minimum)
	return s
}

// GroupByTenant buckets transactions per tenant, keeping first-seen order.
func GroupByTenant(txns []billing.Transaction) (order []uuid.UUID, groups map[uuid.UUID][]billing.Transaction) {
	groups = make(map[uuid.UUID][]billing.Transaction)
	for _, t := range txns {
		if _, ok := groups[t.TenantID]; !ok {
			order = append(order, t.TenantID)
		}
		groups[t.TenantID] = append(groups[t.TenantID], t)
	}
	return order, groups
}
