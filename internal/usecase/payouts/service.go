package payouts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"qtro-isp/internal/domain/billing"
	domain "qtro-isp/internal/domain/payouts"
	"qtro-isp/internal/domain/tenants"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrTenantNotFound  = errors.New("tenant not found")
	ErrPayoutNotFound  = errors.New("payout not found")
	ErrAlreadyPaid     = errors.New("payout already marked as paid")
	ErrNothingToPay    = errors.New("no unpaid transactions for tenant")
	ErrFiguresMismatch = errors.New("payout figures do not match pending transactions")
	ErrMissingRef      = errors.New("settlement reference is required")
)

type Service struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// TenantSummary is a Summary plus the tenant details the admin view shows.
type TenantSummary struct {
	domain.Summary
	BusinessName    string `json:"business_name"`
	PayoutPhone     string `json:"payout_phone"`
	PayoutFrequency string `json:"payout_frequency"`
}

// Expected carries the figures the caller saw when it decided to pay. When present
// they must match what the server recomputes.
type Expected struct {
	TransactionCount *int
	GrossAmount      *decimal.Decimal
	CommissionAmount *decimal.Decimal
	NetAmount        *decimal.Decimal
}

type CreateRequest struct {
	TenantID uuid.UUID
	Expected Expected
	Notes    string
}

func eligible(db *gorm.DB) *gorm.DB {
	return db.Where("status = ? AND payout_status = ? AND payout_id IS NULL",
		billing.StatusCompleted, billing.PayoutPending)
}

// PendingSummaries aggregates every tenant's uncaptured, unpaid sales.
func (s *Service) PendingSummaries(ctx context.Context) ([]TenantSummary, error) {
	db := s.db.WithContext(ctx)

	var txns []billing.Transaction
	if err := eligible(db.Model(&billing.Transaction{})).Order("created_at ASC").Find(&txns).Error; err != nil {
		return nil, err
	}
	order, groups := domain.GroupByTenant(txns)
	if len(order) == 0 {
		return []TenantSummary{}, nil
	}

	var ts []tenants.Tenant
	if err := db.Where("id IN ?", order).Find(&ts).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]tenants.Tenant, len(ts))
	for _, t := range ts {
		byID[t.ID] = t
	}

	out := make([]TenantSummary, 0, len(order))
	for _, id := range order {
		t := byID[id]
		out = append(out, TenantSummary{
			Summary:         domain.Aggregate(id, t.MinimumPayout, groups[id]),
			BusinessName:    t.BusinessName,
			PayoutPhone:     t.PayoutDestination(),
			PayoutFrequency: t.PayoutFrequency,
		})
	}
	return out, nil
}

// Create opens a pending payout for a tenant and captures the transactions it covers.
// The window starts the day after the last paid payout (or at the earliest unpaid
// sale) and ends now. Sales that completed after an earlier batch was cut are swept
// in as well, and the start widened to include them.
// The batch is the set stamped with payout_id here; MarkPaid settles that set, not a date range.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.Payout, error) {
	now := s.now()
	var payout domain.Payout

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenant tenants.Tenant
		if err := tx.Where("id = ?", req.TenantID).First(&tenant).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTenantNotFound
			}
			return err
		}

		var earliest billing.Transaction
		err := eligible(tx.Model(&billing.Transaction{})).
			Where("tenant_id = ? AND created_at <= ?", tenant.ID, now).
			Order("created_at ASC").
			First(&earliest).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNothingToPay
		}
		if err != nil {
			return err
		}

		var lastPaid *time.Time
		var prev domain.Payout
		err = tx.Where("tenant_id = ? AND status = ?", tenant.ID, domain.StatusPaid).
			Order("period_end DESC").
			First(&prev).Error
		switch {
		case err == nil:
			lastPaid = &prev.PeriodEnd
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		start := domain.PeriodStart(lastPaid, earliest.CreatedAt)
		if earliest.CreatedAt.Before(start) {
			start = domain.StartOfDay(earliest.CreatedAt)
		}

		payout = domain.Payout{
			TenantID:           tenant.ID,
			PeriodStart:        start,
			PeriodEnd:          now,
			Status:             domain.StatusPending,
			PaymentPhoneNumber: tenant.PayoutDestination(),
			GrossAmount:        decimal.Zero,
			CommissionAmount:   decimal.Zero,
			NetAmount:          decimal.Zero,
		}
		if notes := strings.TrimSpace(req.Notes); notes != "" {
			payout.AdminNotes = &notes
		}
		if err := tx.Create(&payout).Error; err != nil {
			return err
		}

		res := eligible(tx.Model(&billing.Transaction{})).
			Where("tenant_id = ? AND created_at >= ? AND created_at <= ?", tenant.ID, start, now).
			Update("payout_id", payout.ID)
		if res.Error != nil {
			return res.Error
		}

		var captured []billing.Transaction
		if err := tx.Where("payout_id = ?", payout.ID).Find(&captured).Error; err != nil {
			return err
		}
		sum := domain.Aggregate(tenant.ID, tenant.MinimumPayout, captured)
		if sum.TransactionCount == 0 {
			return ErrNothingToPay
		}
		if err := req.Expected.check(sum); err != nil {
			return err
		}

		payout.TotalTransactions = sum.TransactionCount
		payout.GrossAmount = sum.GrossAmount
		payout.CommissionAmount = sum.CommissionAmount
		payout.NetAmount = sum.NetAmount
		return tx.Model(&payout).Updates(map[string]interface{}{
			"total_transactions": payout.TotalTransactions,
			"gross_amount":       payout.GrossAmount,
			"commission_amount":  payout.CommissionAmount,
			"net_amount":         payout.NetAmount,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payout created",
		zap.String("payout_id", payout.ID.String()),
		zap.String("tenant_id", payout.TenantID.String()),
		zap.Int("transactions", payout.TotalTransactions),
		zap.String("net_amount", payout.NetAmount.StringFixed(2)))
	return &payout, nil
}

func (e Expected) check(sum domain.Summary) error {
	mismatch := func(field string, want, got decimal.Decimal) error {
		return fmt.Errorf("%w: %s expected %s, pending %s", ErrFiguresMismatch, field, want.StringFixed(2), got.StringFixed(2))
	}
	if e.TransactionCount != nil && *e.TransactionCount != sum.TransactionCount {
		return fmt.Errorf("%w: transaction count expected %d, pending %d", ErrFiguresMismatch, *e.TransactionCount, sum.TransactionCount)
	}
	if e.GrossAmount != nil && !e.GrossAmount.Equal(sum.GrossAmount) {
		return mismatch("gross amount", *e.GrossAmount, sum.GrossAmount)
	}
	if e.CommissionAmount != nil && !e.CommissionAmount.Equal(sum.CommissionAmount) {
		return mismatch("commission amount", *e.CommissionAmount, sum.CommissionAmount)
	}
	if e.NetAmount != nil && !e.NetAmount.Equal(sum.NetAmount) {
		return mismatch("net amount", *e.NetAmount, sum.NetAmount)
	}
	return nil
}

// MarkPaid records a manual settlement and flips exactly the captured transactions
// that are still payout-pending.
func (s *Service) MarkPaid(ctx context.Context, payoutID uuid.UUID, settlementRef string) (*domain.Payout, int64, error) {
	settlementRef = strings.TrimSpace(settlementRef)
	if settlementRef == "" {
		return nil, 0, ErrMissingRef
	}
	now := s.now()

	var (
		payout  domain.Payout
		flipped int64
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", payoutID).First(&payout).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPayoutNotFound
			}
			return err
		}

		res := tx.Model(&domain.Payout{}).
			Where("id = ? AND status = ?", payoutID, domain.StatusPending).
			Updates(map[string]interface{}{
				"status":               domain.StatusPaid,
				"mpesa_transaction_id": settlementRef,
				"paid_at":              now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyPaid
		}

		res = tx.Model(&billing.Transaction{}).
			Where("payout_id = ? AND payout_status = ?", payoutID, billing.PayoutPending).
			Updates(map[string]interface{}{
				"payout_status": billing.PayoutPaid,
				"payout_date":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		flipped = res.RowsAffected

		return tx.Where("id = ?", payoutID).First(&payout).Error
	})
	if err != nil {
		return nil, 0, err
	}

	s.logger.Info("payout marked paid",
		zap.String("payout_id", payoutID.String()),
		zap.Int64("transactions", flipped))
	return &payout, flipped, nil
}

// List returns payouts newest first, optionally for one tenant.
func (s *Service) List(ctx context.Context, tenantID *uuid.UUID, status string) ([]domain.Payout, error) {
	q := s.db.WithContext(ctx).Model(&domain.Payout{})
	if tenantID != nil {
		q = q.Where("tenant_id = ?", *tenantID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []domain.Payout
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
