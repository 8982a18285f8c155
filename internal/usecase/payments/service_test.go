package payments

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"qtro-isp/internal/domain/billing"
	"qtro-isp/internal/domain/plans"
	"qtro-isp/internal/domain/tenants"
	"qtro-isp/internal/domain/vouchers"
	"qtro-isp/internal/infra/mpesa"
	"qtro-isp/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// fakeGateway implements Gateway with overridable behaviour.
type fakeGateway struct {
	pushCalls  atomic.Int32
	queryCalls atomic.Int32

	PushFunc  func(ctx context.Context, phone string, amount decimal.Decimal, ref, desc string) (*mpesa.STKPushResponse, error)
	QueryFunc func(ctx context.Context, checkoutID string) (*mpesa.STKQueryResponse, error)
}

func (f *fakeGateway) STKPush(ctx context.Context, phone string, amount decimal.Decimal, ref, desc string) (*mpesa.STKPushResponse, error) {
	n := f.pushCalls.Add(1)
	if f.PushFunc != nil {
		return f.PushFunc(ctx, phone, amount, ref, desc)
	}
	return &mpesa.STKPushResponse{
		MerchantRequestID: fmt.Sprintf("mr-%d", n),
		CheckoutRequestID: fmt.Sprintf("ws_CO_%d", n),
		ResponseCode:      "0",
		CustomerMessage:   "Success. Request accepted for processing",
	}, nil
}

func (f *fakeGateway) QuerySTKStatus(ctx context.Context, checkoutID string) (*mpesa.STKQueryResponse, error) {
	f.queryCalls.Add(1)
	if f.QueryFunc != nil {
		return f.QueryFunc(ctx, checkoutID)
	}
	return &mpesa.STKQueryResponse{ResultCode: "4999", ResultDesc: "The transaction is still under processing"}, nil
}

type fixture struct {
	db      *gorm.DB
	gw      *fakeGateway
	svc     *Service
	tenant  tenants.Tenant
	plan    plans.Plan
	voucher []vouchers.Voucher
}

func newFixture(t *testing.T, voucherCount int) *fixture {
	t.Helper()
	db := testutil.NewDB(t)

	slug := "kamau-net-1a2b3c4d"
	tenant := tenants.Tenant{
		Email:           "kamau@example.com",
		BusinessName:    "Kamau Net",
		PhoneNumber:     "0722000111",
		PortalSlug:      &slug,
		CommissionRate:  decimal.NewFromInt(8),
		PayoutFrequency: tenants.PayoutMonthly,
		MinimumPayout:   decimal.NewFromInt(1000),
	}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	plan := plans.Plan{
		TenantID: tenant.ID,
		Name:     "Daily 1GB",
		Price:    decimal.NewFromInt(100),
		Duration: plans.DurationDaily,
		IsActive: true,
	}
	if err := db.Create(&plan).Error; err != nil {
		t.Fatalf("create plan: %v", err)
	}

	var vs []vouchers.Voucher
	for i := 0; i < voucherCount; i++ {
		v := vouchers.Voucher{
			TenantID:  tenant.ID,
			PlanID:    plan.ID,
			Code:      fmt.Sprintf("WIFI-TEST%04d", i),
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		if err := db.Create(&v).Error; err != nil {
			t.Fatalf("create voucher: %v", err)
		}
		vs = append(vs, v)
	}

	gw := &fakeGateway{}
	return &fixture{
		db:      db,
		gw:      gw,
		svc:     NewService(db, gw, nil),
		tenant:  tenant,
		plan:    plan,
		voucher: vs,
	}
}

func (f *fixture) initiate(t *testing.T, amount int64) *InitiateResult {
	t.Helper()
	res, err := f.svc.Initiate(context.Background(), InitiateRequest{
		PhoneNumber: "0712345678",
		Amount:      decimal.NewFromInt(amount),
		PlanID:      f.plan.ID.String(),
		PortalSlug:  *f.tenant.PortalSlug,
	})
	if err != nil {
		t.Fatalf("Initiate() error = %v", err)
	}
	return res
}

func (f *fixture) transaction(t *testing.T, checkoutID string) billing.Transaction {
	t.Helper()
	var txn billing.Transaction
	if err := f.db.Where("checkout_request_id = ?", checkoutID).First(&txn).Error; err != nil {
		t.Fatalf("load transaction: %v", err)
	}
	return txn
}

func (f *fixture) soldCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&vouchers.Voucher{}).Where("status = ?", vouchers.StatusSold).Count(&n).Error; err != nil {
		t.Fatalf("count sold: %v", err)
	}
	return n
}

func successCallback(checkoutID, receipt string) []byte {
	return []byte(fmt.Sprintf(`{"Body":{"stkCallback":{"MerchantRequestID":"mr-1","CheckoutRequestID":%q,
	  "ResultCode":0,"ResultDesc":"The service request is processed successfully.",
	  "CallbackMetadata":{"Item":[{"Name":"Amount","Value":100},{"Name":"MpesaReceiptNumber","Value":%q},
	  {"Name":"PhoneNumber","Value":254712345678}]}}}}`, checkoutID, receipt))
}

func failedCallback(checkoutID string) []byte {
	return []byte(fmt.Sprintf(`{"Body":{"stkCallback":{"MerchantRequestID":"mr-1","CheckoutRequestID":%q,
	  "ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`, checkoutID))
}

func TestInitiate_CreatesPendingTransaction(t *testing.T) {
	f := newFixture(t, 2)

	var gotPhone, gotRef string
	f.gw.PushFunc = func(_ context.Context, phone string, _ decimal.Decimal, ref, _ string) (*mpesa.STKPushResponse, error) {
		gotPhone, gotRef = phone, ref
		return &mpesa.STKPushResponse{CheckoutRequestID: "ws_CO_abc", MerchantRequestID: "mr-abc", ResponseCode: "0"}, nil
	}

	res := f.initiate(t, 100)
	if res.CheckoutRequestID != "ws_CO_abc" {
		t.Fatalf("CheckoutRequestID = %q", res.CheckoutRequestID)
	}
	if gotPhone != "254712345678" {
		t.Errorf("gateway phone = %q", gotPhone)
	}
	if gotRef != "VOUCHER-"+f.plan.ID.String()[:8] {
		t.Errorf("account reference = %q", gotRef)
	}

	txn := f.transaction(t, "ws_CO_abc")
	if txn.Status != billing.StatusPending || txn.PayoutStatus != billing.PayoutPending {
		t.Errorf("status = %s/%s", txn.Status, txn.PayoutStatus)
	}
	if !txn.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("amount = %s", txn.Amount)
	}
	if txn.VoucherID != nil || txn.CommissionAmount.Valid {
		t.Error("nothing should be allocated before completion")
	}
	if n := f.soldCount(t); n != 0 {
		t.Errorf("sold vouchers = %d, want 0", n)
	}
}

func TestInitiate_NoVouchersSkipsGateway(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.svc.Initiate(context.Background(), InitiateRequest{
		PhoneNumber: "0712345678",
		Amount:      decimal.NewFromInt(100),
		PlanID:      f.plan.ID.String(),
		PortalSlug:  *f.tenant.PortalSlug,
	})
	if !errors.Is(err, ErrNoVoucherAvailable) {
		t.Fatalf("expected ErrNoVoucherAvailable, got %v", err)
	}
	if f.gw.pushCalls.Load() != 0 {
		t.Error("gateway must not be called when no voucher is available")
	}
}

func TestInitiate_Validation(t *testing.T) {
	f := newFixture(t, 1)
	otherPlan := uuid.New().String()

	tests := []struct {
		name string
		req  InitiateRequest
		want error
	}{
		{"missing phone", InitiateRequest{Amount: decimal.NewFromInt(50), PlanID: f.plan.ID.String(), PortalSlug: *f.tenant.PortalSlug}, ErrInvalidRequest},
		{"zero amount", InitiateRequest{PhoneNumber: "0712345678", Amount: decimal.Zero, PlanID: f.plan.ID.String(), PortalSlug: *f.tenant.PortalSlug}, ErrInvalidRequest},
		{"bad phone", InitiateRequest{PhoneNumber: "12", Amount: decimal.NewFromInt(50), PlanID: f.plan.ID.String(), PortalSlug: *f.tenant.PortalSlug}, ErrInvalidRequest},
		{"unknown portal", InitiateRequest{PhoneNumber: "0712345678", Amount: decimal.NewFromInt(50), PlanID: f.plan.ID.String(), PortalSlug: "nope"}, ErrPortalNotFound},
		{"foreign plan", InitiateRequest{PhoneNumber: "0712345678", Amount: decimal.NewFromInt(50), PlanID: otherPlan, PortalSlug: *f.tenant.PortalSlug}, ErrPlanNotFound},
		{"below plan price", InitiateRequest{PhoneNumber: "0712345678", Amount: decimal.NewFromInt(99), PlanID: f.plan.ID.String(), PortalSlug: *f.tenant.PortalSlug}, ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Initiate(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("Initiate() error = %v, want %v", err, tt.want)
			}
		})
	}
	if f.gw.pushCalls.Load() != 0 {
		t.Error("gateway must not be called for rejected requests")
	}
}

func TestInitiate_RecordsChargedAmount(t *testing.T) {
	f := newFixture(t, 1)
	var pushed decimal.Decimal
	f.gw.PushFunc = func(_ context.Context, _ string, amount decimal.Decimal, _, _ string) (*mpesa.STKPushResponse, error) {
		pushed = amount
		return &mpesa.STKPushResponse{CheckoutRequestID: "ws_CO_frac", MerchantRequestID: "mr-frac", ResponseCode: "0"}, nil
	}

	// 99.40 rounds up to the 100 the payer is actually prompted for
	if _, err := f.svc.Initiate(context.Background(), InitiateRequest{
		PhoneNumber: "0712345678", Amount: decimal.RequireFromString("99.40"),
		PlanID: f.plan.ID.String(), PortalSlug: *f.tenant.PortalSlug,
	}); err != nil {
		t.Fatalf("Initiate() error = %v", err)
	}
	if !pushed.Equal(decimal.NewFromInt(100)) {
		t.Errorf("pushed amount = %s, want 100", pushed)
	}
	if txn := f.transaction(t, "ws_CO_frac"); !txn.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("recorded amount = %s, want 100", txn.Amount)
	}
}

func TestInitiate_InactivePlan(t *testing.T) {
	f := newFixture(t, 1)
	if err := f.db.Model(&plans.Plan{}).Where("id = ?", f.plan.ID).Update("is_active", false).Error; err != nil {
		t.Fatal(err)
	}
	_, err := f.svc.Initiate(context.Background(), InitiateRequest{
		PhoneNumber: "0712345678", Amount: decimal.NewFromInt(50),
		PlanID: f.plan.ID.String(), PortalSlug: *f.tenant.PortalSlug,
	})
	if !errors.Is(err, ErrPlanInactive) {
		t.Fatalf("expected ErrPlanInactive, got %v", err)
	}
}

func TestInitiate_GatewayRejection(t *testing.T) {
	f := newFixture(t, 1)
	f.gw.PushFunc = func(context.Context, string, decimal.Decimal, string, string) (*mpesa.STKPushResponse, error) {
		return nil, &mpesa.APIError{StatusCode: 400, Code: "400.002.02", Message: "Bad Request - Invalid PhoneNumber"}
	}

	_, err := f.svc.Initiate(context.Background(), InitiateRequest{
		PhoneNumber: "0712345678", Amount: decimal.NewFromInt(100),
		PlanID: f.plan.ID.String(), PortalSlug: *f.tenant.PortalSlug,
	})
	if !errors.Is(err, ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}
	if got := mpesa.Description(err, ""); got != "Bad Request - Invalid PhoneNumber" {
		t.Errorf("gateway description lost: %q", got)
	}

	var n int64
	f.db.Model(&billing.Transaction{}).Count(&n)
	if n != 0 {
		t.Errorf("transactions = %d, want 0", n)
	}
}

func TestHandleCallback_SuccessComputesCommission(t *testing.T) {
	f := newFixture(t, 2)
	started := f.initiate(t, 100)

	res, err := f.svc.HandleCallback(context.Background(), successCallback(started.CheckoutRequestID, "NLJ7RT61SV"))
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if res.Status != billing.StatusCompleted || res.AlreadySettled {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.VoucherCode != "WIFI-TEST0000" {
		t.Errorf("VoucherCode = %q, want oldest voucher", res.VoucherCode)
	}

	txn := f.transaction(t, started.CheckoutRequestID)
	if txn.Status != billing.StatusCompleted {
		t.Fatalf("status = %s", txn.Status)
	}
	if !txn.CommissionRate.Decimal.Equal(decimal.NewFromInt(8)) {
		t.Errorf("commission rate = %s", txn.CommissionRate.Decimal)
	}
	if !txn.CommissionAmount.Decimal.Equal(decimal.NewFromInt(8)) {
		t.Errorf("commission = %s, want 8", txn.CommissionAmount.Decimal)
	}
	if !txn.NetAmount.Decimal.Equal(decimal.NewFromInt(92)) {
		t.Errorf("net = %s, want 92", txn.NetAmount.Decimal)
	}
	if txn.MpesaReceiptNumber == nil || *txn.MpesaReceiptNumber != "NLJ7RT61SV" {
		t.Errorf("receipt = %v", txn.MpesaReceiptNumber)
	}
	if txn.VoucherID == nil {
		t.Fatal("voucher not linked")
	}

	var v vouchers.Voucher
	f.db.First(&v, "id = ?", *txn.VoucherID)
	if v.Status != vouchers.StatusSold || v.TransactionID == nil || *v.TransactionID != txn.ID {
		t.Errorf("voucher not sold to transaction: %+v", v)
	}
	if v.SoldToPhone == nil || *v.SoldToPhone != "254712345678" {
		t.Errorf("sold_to_phone = %v", v.SoldToPhone)
	}
	if v.TenantID != txn.TenantID || v.PlanID != txn.PlanID {
		t.Error("voucher must belong to the transaction's tenant and plan")
	}
}

func TestHandleCallback_DuplicateIsIdempotent(t *testing.T) {
	f := newFixture(t, 3)
	started := f.initiate(t, 100)
	payload := successCallback(started.CheckoutRequestID, "NLJ7RT61SV")

	if _, err := f.svc.HandleCallback(context.Background(), payload); err != nil {
		t.Fatalf("first callback: %v", err)
	}
	first := f.transaction(t, started.CheckoutRequestID)

	res, err := f.svc.HandleCallback(context.Background(), payload)
	if err != nil {
		t.Fatalf("second callback: %v", err)
	}
	if !res.AlreadySettled || res.Status != billing.StatusCompleted {
		t.Errorf("second callback result = %+v", res)
	}

	if n := f.soldCount(t); n != 1 {
		t.Errorf("sold vouchers = %d, want 1", n)
	}
	second := f.transaction(t, started.CheckoutRequestID)
	if *second.VoucherID != *first.VoucherID || !second.CompletedAt.Equal(*first.CompletedAt) {
		t.Error("completed transaction was rewritten")
	}
}

func TestHandleCallback_FailureThenLateSuccessIgnored(t *testing.T) {
	f := newFixture(t, 1)
	started := f.initiate(t, 100)

	res, err := f.svc.HandleCallback(context.Background(), failedCallback(started.CheckoutRequestID))
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if res.Status != billing.StatusFailed {
		t.Fatalf("status = %s", res.Status)
	}

	res, err = f.svc.HandleCallback(context.Background(), successCallback(started.CheckoutRequestID, "LATE123"))
	if err != nil {
		t.Fatalf("late callback: %v", err)
	}
	if !res.AlreadySettled || res.Status != billing.StatusFailed {
		t.Errorf("terminal status overwritten: %+v", res)
	}
	if n := f.soldCount(t); n != 0 {
		t.Errorf("sold vouchers = %d, want 0", n)
	}
}

func TestHandleCallback_NoVoucherLeftFailsTransaction(t *testing.T) {
	f := newFixture(t, 1)
	a := f.initiate(t, 100)
	b := f.initiate(t, 100)

	if _, err := f.svc.HandleCallback(context.Background(), successCallback(a.CheckoutRequestID, "R1")); err != nil {
		t.Fatalf("first callback: %v", err)
	}
	_, err := f.svc.HandleCallback(context.Background(), successCallback(b.CheckoutRequestID, "R2"))
	if !errors.Is(err, ErrNoVoucherAvailable) {
		t.Fatalf("expected ErrNoVoucherAvailable, got %v", err)
	}

	txn := f.transaction(t, b.CheckoutRequestID)
	if txn.Status != billing.StatusFailed {
		t.Errorf("status = %s, want failed", txn.Status)
	}
	if txn.CommissionAmount.Valid || txn.VoucherID != nil {
		t.Error("failed transaction must not carry commission or voucher")
	}
	if n := f.soldCount(t); n != 1 {
		t.Errorf("sold vouchers = %d, want 1", n)
	}
}

func TestHandleCallback_UnknownReference(t *testing.T) {
	f := newFixture(t, 1)
	_, err := f.svc.HandleCallback(context.Background(), successCallback("ws_CO_missing", "R"))
	if !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
	_, err = f.svc.HandleCallback(context.Background(), []byte(`garbage`))
	if !errors.Is(err, ErrInvalidCallback) {
		t.Fatalf("expected ErrInvalidCallback, got %v", err)
	}
}

func TestCommissionUsesRateAtCompletion(t *testing.T) {
	f := newFixture(t, 2)
	a := f.initiate(t, 100)
	if _, err := f.svc.HandleCallback(context.Background(), successCallback(a.CheckoutRequestID, "R1")); err != nil {
		t.Fatal(err)
	}

	if err := f.db.Model(&tenants.Tenant{}).Where("id = ?", f.tenant.ID).
		Update("commission_rate", decimal.NewFromInt(10)).Error; err != nil {
		t.Fatal(err)
	}
	b := f.initiate(t, 100)
	if _, err := f.svc.HandleCallback(context.Background(), successCallback(b.CheckoutRequestID, "R2")); err != nil {
		t.Fatal(err)
	}

	first := f.transaction(t, a.CheckoutRequestID)
	second := f.transaction(t, b.CheckoutRequestID)
	if !first.CommissionAmount.Decimal.Equal(decimal.NewFromInt(8)) {
		t.Errorf("first commission = %s, want 8", first.CommissionAmount.Decimal)
	}
	if !second.CommissionAmount.Decimal.Equal(decimal.NewFromInt(10)) {
		t.Errorf("second commission = %s, want 10", second.CommissionAmount.Decimal)
	}
}

func TestCheckStatus_PollPath(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		desc       string
		wantStatus string
	}{
		{"success completes", "0", "The service request is processed successfully.", billing.StatusCompleted},
		{"expired fails", "1019", "Transaction has expired", billing.StatusFailed},
		{"cancelled stays pending", "1032", "Request cancelled by user", billing.StatusPending},
		{"processing stays pending", "1029", "still processing", billing.StatusPending},
		{"unknown stays pending", "500.001.1001", "The transaction is being processed", billing.StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 1)
			started := f.initiate(t, 100)
			f.gw.QueryFunc = func(context.Context, string) (*mpesa.STKQueryResponse, error) {
				return &mpesa.STKQueryResponse{ResponseCode: "0", ResultCode: mpesa.FlexString(tt.code), ResultDesc: tt.desc}, nil
			}

			view, err := f.svc.CheckStatus(context.Background(), started.CheckoutRequestID)
			if err != nil {
				t.Fatalf("CheckStatus() error = %v", err)
			}
			if view.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", view.Status, tt.wantStatus)
			}
			if tt.wantStatus == billing.StatusCompleted {
				if view.Voucher == nil || view.Voucher.Code != "WIFI-TEST0000" || view.Voucher.PlanName != "Daily 1GB" {
					t.Errorf("voucher view = %+v", view.Voucher)
				}
			} else if view.Voucher != nil {
				t.Error("voucher must only be shown for completed payments")
			}
			if view.SupportPhone != "0722000111" {
				t.Errorf("support phone = %q", view.SupportPhone)
			}
		})
	}
}

func TestCheckStatus_SettledSkipsGateway(t *testing.T) {
	f := newFixture(t, 1)
	started := f.initiate(t, 100)
	if _, err := f.svc.HandleCallback(context.Background(), successCallback(started.CheckoutRequestID, "R1")); err != nil {
		t.Fatal(err)
	}

	view, err := f.svc.CheckStatus(context.Background(), started.CheckoutRequestID)
	if err != nil {
		t.Fatalf("CheckStatus() error = %v", err)
	}
	if view.Status != billing.StatusCompleted || view.ReceiptNumber != "R1" {
		t.Errorf("view = %+v", view)
	}
	if f.gw.queryCalls.Load() != 0 {
		t.Error("gateway queried for a settled transaction")
	}
}

func TestCheckStatus_GatewayErrorSwallowed(t *testing.T) {
	f := newFixture(t, 1)
	started := f.initiate(t, 100)
	f.gw.QueryFunc = func(context.Context, string) (*mpesa.STKQueryResponse, error) {
		return nil, errors.New("dial tcp: i/o timeout")
	}

	view, err := f.svc.CheckStatus(context.Background(), started.CheckoutRequestID)
	if err != nil {
		t.Fatalf("CheckStatus() error = %v", err)
	}
	if view.Status != billing.StatusPending {
		t.Errorf("status = %s, want pending", view.Status)
	}
}

func TestCallbackAndPollRace(t *testing.T) {
	f := newFixture(t, 2)
	started := f.initiate(t, 100)
	f.gw.QueryFunc = func(context.Context, string) (*mpesa.STKQueryResponse, error) {
		return &mpesa.STKQueryResponse{ResultCode: "0", ResultDesc: "ok", MpesaReceiptNumber: "R1"}, nil
	}

	done := make(chan struct{}, 2)
	go func() {
		_, _ = f.svc.HandleCallback(context.Background(), successCallback(started.CheckoutRequestID, "R1"))
		done <- struct{}{}
	}()
	go func() {
		_, _ = f.svc.CheckStatus(context.Background(), started.CheckoutRequestID)
		done <- struct{}{}
	}()
	<-done
	<-done

	if n := f.soldCount(t); n != 1 {
		t.Errorf("sold vouchers = %d, want exactly 1", n)
	}
	if txn := f.transaction(t, started.CheckoutRequestID); txn.Status != billing.StatusCompleted {
		t.Errorf("status = %s", txn.Status)
	}
}
