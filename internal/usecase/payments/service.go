package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"qtro-isp/internal/domain/billing"
	"qtro-isp/internal/domain/plans"
	"qtro-isp/internal/domain/tenants"
	"qtro-isp/internal/domain/vouchers"
	"qtro-isp/internal/infra/mpesa"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	transactionDesc  = "WiFi Voucher Purchase"
	maxClaimAttempts = 5
)

// Gateway is the part of the M-Pesa client the reconciler needs.
type Gateway interface {
	STKPush(ctx context.Context, phone string, amount decimal.Decimal, accountRef, desc string) (*mpesa.STKPushResponse, error)
	QuerySTKStatus(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error)
}

type Service struct {
	db      *gorm.DB
	gateway Gateway
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(db *gorm.DB, gateway Gateway, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, gateway: gateway, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

type InitiateRequest struct {
	PhoneNumber string
	Amount      decimal.Decimal
	PlanID      string
	PortalSlug  string
}

type InitiateResult struct {
	TransactionID     uuid.UUID `json:"transaction_id"`
	CheckoutRequestID string    `json:"checkout_request_id"`
	MerchantRequestID string    `json:"merchant_request_id"`
	CustomerMessage   string    `json:"customer_message"`
}

// Result describes what a reconciliation call did to a transaction.
type Result struct {
	TransactionID  uuid.UUID
	Status         string
	AlreadySettled bool
	VoucherCode    string
}

// settlement is the gateway's verdict on a push, from either the callback or a query.
type settlement struct {
	receipt    string
	resultCode string
	resultDesc string
	payload    []byte
}

// Initiate validates the purchase, asks the gateway to prompt the payer and records
// a pending transaction under the returned checkout reference. No voucher is held.
func (s *Service) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if strings.TrimSpace(req.PhoneNumber) == "" || req.PlanID == "" || req.PortalSlug == "" {
		return nil, fmt.Errorf("%w: phone number, plan and portal are required", ErrInvalidRequest)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidRequest)
	}
	phone, err := mpesa.NormalizePhone(req.PhoneNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	planID, err := uuid.Parse(req.PlanID)
	if err != nil {
		return nil, ErrPlanNotFound
	}

	db := s.db.WithContext(ctx)

	var tenant tenants.Tenant
	if err := db.Where("portal_slug = ?", req.PortalSlug).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPortalNotFound
		}
		return nil, err
	}

	var plan plans.Plan
	if err := db.Where("id = ? AND tenant_id = ?", planID, tenant.ID).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if !plan.IsActive {
		return nil, ErrPlanInactive
	}
	// the gateway only takes whole shillings; record what is actually charged
	amount := req.Amount.Ceil()
	if amount.LessThan(plan.Price) {
		return nil, fmt.Errorf("%w: amount %s is below the plan price %s", ErrInvalidRequest, amount, plan.Price)
	}

	var available int64
	if err := db.Model(&vouchers.Voucher{}).
		Where("tenant_id = ? AND plan_id = ? AND status = ?", tenant.ID, plan.ID, vouchers.StatusAvailable).
		Count(&available).Error; err != nil {
		return nil, err
	}
	if available == 0 {
		return nil, ErrNoVoucherAvailable
	}

	accountRef := "VOUCHER-" + plan.ID.String()[:8]
	resp, err := s.gateway.STKPush(ctx, phone, amount, accountRef, transactionDesc)
	if err != nil {
		s.logger.Warn("stk push rejected",
			zap.String("tenant_id", tenant.ID.String()),
			zap.String("plan_id", plan.ID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	txn := billing.Transaction{
		TenantID:          tenant.ID,
		PlanID:            plan.ID,
		PhoneNumber:       phone,
		Amount:            amount,
		CheckoutRequestID: resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
		Status:            billing.StatusPending,
		PayoutStatus:      billing.PayoutPending,
	}
	if err := db.Create(&txn).Error; err != nil {
		// the payer has a prompt on their phone; this reference must be findable in logs
		s.logger.Error("failed to record transaction after stk push",
			zap.String("checkout_request_id", resp.CheckoutRequestID),
			zap.String("tenant_id", tenant.ID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	s.logger.Info("payment initiated",
		zap.String("checkout_request_id", txn.CheckoutRequestID),
		zap.String("transaction_id", txn.ID.String()),
		zap.String("tenant_id", tenant.ID.String()))

	return &InitiateResult{
		TransactionID:     txn.ID,
		CheckoutRequestID: resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
		CustomerMessage:   resp.CustomerMessage,
	}, nil
}

// HandleCallback applies an asynchronous gateway notification.
func (s *Service) HandleCallback(ctx context.Context, payload []byte) (*Result, error) {
	cb, err := mpesa.ParseSTKCallback(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCallback, err)
	}

	log := s.logger.With(zap.String("checkout_request_id", cb.CheckoutRequestID))
	log.Info("stk callback received",
		zap.String("result_code", cb.ResultCode),
		zap.String("result_desc", cb.ResultDesc))

	txn, err := s.findByCheckout(ctx, cb.CheckoutRequestID)
	if err != nil {
		return nil, err
	}
	if txn.IsTerminal() {
		log.Info("callback for settled transaction ignored", zap.String("status", txn.Status))
		return &Result{TransactionID: txn.ID, Status: txn.Status, AlreadySettled: true}, nil
	}

	st := settlement{
		receipt:    cb.ReceiptNumber,
		resultCode: cb.ResultCode,
		resultDesc: cb.ResultDesc,
		payload:    payload,
	}
	if mpesa.ClassifyCallback(cb) == mpesa.OutcomeSuccess {
		return s.complete(ctx, txn, st)
	}
	return s.fail(ctx, txn, st)
}

// CheckStatus is the poll path. Settled transactions are answered from the store;
// pending ones are queried at the gateway and reconciled conservatively. Gateway
// errors leave the stored status untouched.
func (s *Service) CheckStatus(ctx context.Context, checkoutRequestID string) (*StatusView, error) {
	if checkoutRequestID == "" {
		return nil, fmt.Errorf("%w: checkout request id is required", ErrInvalidRequest)
	}
	txn, err := s.findByCheckout(ctx, checkoutRequestID)
	if err != nil {
		return nil, err
	}

	if !txn.IsTerminal() {
		s.reconcileFromQuery(ctx, txn)
		if txn, err = s.findByCheckout(ctx, checkoutRequestID); err != nil {
			return nil, err
		}
	}
	return s.buildStatusView(ctx, txn)
}

func (s *Service) reconcileFromQuery(ctx context.Context, txn *billing.Transaction) {
	log := s.logger.With(zap.String("checkout_request_id", txn.CheckoutRequestID))

	resp, err := s.gateway.QuerySTKStatus(ctx, txn.CheckoutRequestID)
	if err != nil {
		log.Warn("stk status query failed, keeping stored status", zap.Error(err))
		return
	}

	st := settlement{
		receipt:    resp.MpesaReceiptNumber,
		resultCode: resp.Code(),
		resultDesc: resp.ResultDesc,
	}
	switch mpesa.ClassifyQueryResult(resp.Code(), resp.ResultDesc) {
	case mpesa.OutcomeSuccess:
		if _, err := s.complete(ctx, txn, st); err != nil {
			log.Warn("completion from status query failed", zap.Error(err))
		}
	case mpesa.OutcomeFailed:
		if _, err := s.fail(ctx, txn, st); err != nil {
			log.Warn("failing from status query failed", zap.Error(err))
		}
	default:
		log.Debug("transaction still pending", zap.String("result_code", resp.Code()))
	}
}

// complete settles a successful payment in one database transaction: the pending row
// is claimed first with a conditional update, then a voucher is claimed with a
// compare-and-swap. Losing either race rolls everything back.
func (s *Service) complete(ctx context.Context, txn *billing.Transaction, st settlement) (*Result, error) {
	log := s.logger.With(zap.String("checkout_request_id", txn.CheckoutRequestID))
	now := s.now()

	var (
		voucher *vouchers.Voucher
		settled bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenant tenants.Tenant
		if err := tx.Select("id", "commission_rate").Where("id = ?", txn.TenantID).First(&tenant).Error; err != nil {
			return fmt.Errorf("load tenant: %w", err)
		}
		commission, net := billing.ComputeCommission(txn.Amount, tenant.CommissionRate)

		updates := map[string]interface{}{
			"status":            billing.StatusCompleted,
			"commission_rate":   decimal.NewNullDecimal(tenant.CommissionRate),
			"commission_amount": decimal.NewNullDecimal(commission),
			"net_amount":        decimal.NewNullDecimal(net),
			"result_code":       st.resultCode,
			"result_desc":       st.resultDesc,
			"completed_at":      now,
			"updated_at":        now,
		}
		if st.receipt != "" {
			updates["mpesa_receipt_number"] = st.receipt
		}
		if len(st.payload) > 0 {
			updates["callback_payload"] = datatypes.JSON(st.payload)
		}

		res := tx.Model(&billing.Transaction{}).
			Where("id = ? AND status = ?", txn.ID, billing.StatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			settled = true
			return nil
		}

		v, err := claimVoucher(tx, txn, now)
		if err != nil {
			return err
		}
		if err := tx.Model(&billing.Transaction{}).Where("id = ?", txn.ID).
			Update("voucher_id", v.ID).Error; err != nil {
			return err
		}
		voucher = v
		return nil
	})

	switch {
	case errors.Is(err, ErrNoVoucherAvailable):
		log.Error("payment succeeded but no voucher is left", zap.String("plan_id", txn.PlanID.String()))
		st.resultDesc = "Payment received but no vouchers available"
		if _, ferr := s.fail(ctx, txn, st); ferr != nil {
			log.Error("failed to mark transaction failed", zap.Error(ferr))
		}
		return nil, ErrNoVoucherAvailable
	case err != nil:
		log.Error("completion failed", zap.Error(err))
		return nil, err
	case settled:
		current, ferr := s.findByCheckout(ctx, txn.CheckoutRequestID)
		if ferr != nil {
			return nil, ferr
		}
		log.Info("transaction already settled", zap.String("status", current.Status))
		return &Result{TransactionID: txn.ID, Status: current.Status, AlreadySettled: true}, nil
	}

	log.Info("transaction completed",
		zap.String("transaction_id", txn.ID.String()),
		zap.String("voucher_id", voucher.ID.String()))
	return &Result{TransactionID: txn.ID, Status: billing.StatusCompleted, VoucherCode: voucher.Code}, nil
}

// claimVoucher marks one available voucher of the transaction's tenant and plan as
// sold to it. The update re-checks status so two claimers can never both win.
func claimVoucher(tx *gorm.DB, txn *billing.Transaction, now time.Time) (*vouchers.Voucher, error) {
	for attempt := 0; attempt < maxClaimAttempts; attempt++ {
		var candidate vouchers.Voucher
		err := tx.Select("id").
			Where("tenant_id = ? AND plan_id = ? AND status = ?", txn.TenantID, txn.PlanID, vouchers.StatusAvailable).
			Order("created_at ASC").
			First(&candidate).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoVoucherAvailable
		}
		if err != nil {
			return nil, err
		}

		res := tx.Model(&vouchers.Voucher{}).
			Where("id = ? AND status = ?", candidate.ID, vouchers.StatusAvailable).
			Updates(map[string]interface{}{
				"status":         vouchers.StatusSold,
				"sold_to_phone":  txn.PhoneNumber,
				"sold_at":        now,
				"transaction_id": txn.ID,
				"updated_at":     now,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			var v vouchers.Voucher
			if err := tx.Where("id = ?", candidate.ID).First(&v).Error; err != nil {
				return nil, err
			}
			return &v, nil
		}
	}
	return nil, ErrNoVoucherAvailable
}

func (s *Service) fail(ctx context.Context, txn *billing.Transaction, st settlement) (*Result, error) {
	updates := map[string]interface{}{
		"status":      billing.StatusFailed,
		"result_code": st.resultCode,
		"result_desc": st.resultDesc,
		"updated_at":  s.now(),
	}
	if len(st.payload) > 0 {
		updates["callback_payload"] = datatypes.JSON(st.payload)
	}

	res := s.db.WithContext(ctx).Model(&billing.Transaction{}).
		Where("id = ? AND status = ?", txn.ID, billing.StatusPending).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		current, err := s.findByCheckout(ctx, txn.CheckoutRequestID)
		if err != nil {
			return nil, err
		}
		return &Result{TransactionID: txn.ID, Status: current.Status, AlreadySettled: true}, nil
	}

	s.logger.Info("transaction failed",
		zap.String("checkout_request_id", txn.CheckoutRequestID),
		zap.String("result_code", st.resultCode),
		zap.String("result_desc", st.resultDesc))
	return &Result{TransactionID: txn.ID, Status: billing.StatusFailed}, nil
}

func (s *Service) findByCheckout(ctx context.Context, checkoutRequestID string) (*billing.Transaction, error) {
	var txn billing.Transaction
	err := s.db.WithContext(ctx).Where("checkout_request_id = ?", checkoutRequestID).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
