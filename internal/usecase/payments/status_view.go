package payments

import (
	"context"

	"qtro-isp/internal/domain/billing"
	"qtro-isp/internal/domain/plans"
	"qtro-isp/internal/domain/tenants"
	"qtro-isp/internal/domain/vouchers"

	"github.com/shopspring/decimal"
)

// StatusView is what the portal shows while it polls.
type StatusView struct {
	CheckoutRequestID string          `json:"checkout_request_id"`
	Status            string          `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	ReceiptNumber     string          `json:"mpesa_receipt_number,omitempty"`
	ResultDesc        string          `json:"result_desc,omitempty"`
	Voucher           *VoucherView    `json:"voucher,omitempty"`
	SupportPhone      string          `json:"support_phone,omitempty"`
	BusinessName      string          `json:"business_name,omitempty"`
}

type VoucherView struct {
	Code      string `json:"voucher_code"`
	PlanName  string `json:"plan_name"`
	Duration  string `json:"duration"`
	DataLimit string `json:"data_limit,omitempty"`
	Speed     string `json:"speed,omitempty"`
}

func (s *Service) buildStatusView(ctx context.Context, txn *billing.Transaction) (*StatusView, error) {
	db := s.db.WithContext(ctx)
	view := &StatusView{
		CheckoutRequestID: txn.CheckoutRequestID,
		Status:            txn.Status,
		Amount:            txn.Amount,
	}
	if txn.MpesaReceiptNumber != nil {
		view.ReceiptNumber = *txn.MpesaReceiptNumber
	}
	if txn.ResultDesc != nil && txn.Status == billing.StatusFailed {
		view.ResultDesc = *txn.ResultDesc
	}

	var tenant tenants.Tenant
	if err := db.Select("id", "business_name", "phone_number").Where("id = ?", txn.TenantID).First(&tenant).Error; err == nil {
		view.SupportPhone = tenant.PhoneNumber
		view.BusinessName = tenant.BusinessName
	}

	if txn.Status != billing.StatusCompleted || txn.VoucherID == nil {
		return view, nil
	}

	var v vouchers.Voucher
	if err := db.Where("id = ?", *txn.VoucherID).First(&v).Error; err != nil {
		return nil, err
	}
	vv := &VoucherView{Code: v.Code}

	var plan plans.Plan
	if err := db.Where("id = ?", txn.PlanID).First(&plan).Error; err == nil {
		vv.PlanName = plan.Name
		vv.Duration = plan.Duration
		vv.DataLimit = plan.DataLimit
		vv.Speed = plan.Speed
	}
	view.Voucher = vv
	return view, nil
}
