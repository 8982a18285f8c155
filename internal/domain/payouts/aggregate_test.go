package payouts

import (
	"testing"
	"time"

	"qtro-isp/internal/domain/billing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func completedTxn(tenant uuid.UUID, amount, commission, net string, created time.Time) billing.Transaction {
	return billing.Transaction{
		ID:               uuid.New(),
		TenantID:         tenant,
		Amount:           decimal.RequireFromString(amount),
		Status:           billing.StatusCompleted,
		PayoutStatus:     billing.PayoutPending,
		CommissionAmount: decimal.NewNullDecimal(decimal.RequireFromString(commission)),
		NetAmount:        decimal.NewNullDecimal(decimal.RequireFromString(net)),
		CreatedAt:        created,
	}
}

func TestAggregate(t *testing.T) {
	tenant := uuid.New()
	other := uuid.New()
	day := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	paid := completedTxn(tenant, "100", "8", "92", day.AddDate(0, 0, -5))
	paid.PayoutStatus = billing.PayoutPaid
	failed := completedTxn(tenant, "100", "8", "92", day.AddDate(0, 0, -4))
	failed.Status = billing.StatusFailed

	txns := []billing.Transaction{
		completedTxn(tenant, "100", "8", "92", day),
		completedTxn(tenant, "50.50", "4.04", "46.46", day.AddDate(0, 0, -2)),
		completedTxn(tenant, "0.10", "0.01", "0.09", day.AddDate(0, 0, 1)),
		completedTxn(other, "999", "79.92", "919.08", day.AddDate(0, 0, -9)),
		paid,
		failed,
	}

	s := Aggregate(tenant, decimal.NewFromInt(100), txns)

	if s.TransactionCount != 3 {
		t.Errorf("count = %d, want 3", s.TransactionCount)
	}
	if !s.GrossAmount.Equal(decimal.RequireFromString("150.60")) {
		t.Errorf("gross = %s, want 150.60", s.GrossAmount)
	}
	if !s.CommissionAmount.Equal(decimal.RequireFromString("12.05")) {
		t.Errorf("commission = %s, want 12.05", s.CommissionAmount)
	}
	if !s.NetAmount.Equal(decimal.RequireFromString("138.55")) {
		t.Errorf("net = %s, want 138.55", s.NetAmount)
	}
	if !s.ThresholdMet {
		t.Error("threshold should be met for 138.55 >= 100")
	}
	if s.EarliestCreatedAt == nil || !s.EarliestCreatedAt.Equal(day.AddDate(0, 0, -2)) {
		t.Errorf("earliest = %v, want %v", s.EarliestCreatedAt, day.AddDate(0, 0, -2))
	}
}

func TestAggregateThresholdBoundary(t *testing.T) {
	tenant := uuid.New()
	now := time.Now()
	txns := []billing.Transaction{completedTxn(tenant, "1086.96", "86.96", "1000", now)}

	if s := Aggregate(tenant, decimal.NewFromInt(1000), txns); !s.ThresholdMet {
		t.Error("net equal to minimum should meet threshold")
	}
	if s := Aggregate(tenant, decimal.RequireFromString("1000.01"), txns); s.ThresholdMet {
		t.Error("net below minimum should not meet threshold")
	}
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(uuid.New(), decimal.NewFromInt(1000), nil)
	if s.TransactionCount != 0 || !s.NetAmount.IsZero() || s.ThresholdMet || s.EarliestCreatedAt != nil {
		t.Errorf("unexpected summary for empty input: %+v", s)
	}
}

func TestGroupByTenant(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	now := time.Now()
	order, groups := GroupByTenant([]billing.Transaction{
		completedTxn(a, "1", "0", "1", now),
		completedTxn(b, "1", "0", "1", now),
		completedTxn(a, "1", "0", "1", now),
	})

	if len(order) != 2 || order[0] != a || order[1] != b {
		t.Fatalf("order = %v", order)
	}
	if len(groups[a]) != 2 || len(groups[b]) != 1 {
		t.Errorf("group sizes = %d/%d", len(groups[a]), len(groups[b]))
	}
}
