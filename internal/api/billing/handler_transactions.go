package billing

import (
	"errors"
	"net/http"

	"qtro-isp/internal/api/httpx"
	"qtro-isp/internal/domain/billing"
	"qtro-isp/internal/usecase/payouts"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Handler struct {
	db      *gorm.DB
	payouts *payouts.Service
	logger  *zap.Logger
}

func NewHandler(db *gorm.DB, svc *payouts.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{db: db, payouts: svc, logger: logger}
}

// TransactionDTO is a sale as the dashboard lists it.
type TransactionDTO struct {
	billing.Transaction
	PlanName    string `json:"plan_name"`
	VoucherCode string `json:"voucher_code,omitempty"`
}

type transactionRow struct {
	billing.Transaction
	PlanName    string
	VoucherCode *string
}

// GET /transactions?status=&payout_status=&page=&pageSize=
func (h *Handler) ListTransactions(c *gin.Context) {
	tenantID, ok := httpx.TenantID(c)
	if !ok {
		return
	}

	q := h.db.Model(&billing.Transaction{}).Where("transactions.tenant_id = ?", tenantID)
	if status := c.Query("status"); status != "" {
		q = q.Where("transactions.status = ?", status)
	}
	if ps := c.Query("payout_status"); ps != "" {
		q = q.Where("transactions.payout_status = ?", ps)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count transactions"})
		return
	}

	var rows []transactionRow
	if err := q.Scopes(httpx.Paginate(c)).
		Select("transactions.*, plans.name AS plan_name, vouchers.voucher_code AS voucher_code").
		Joins("LEFT JOIN plans ON plans.id = transactions.plan_id").
		Joins("LEFT JOIN vouchers ON vouchers.id = transactions.voucher_id").
		Order("transactions.created_at DESC").
		Scan(&rows).Error; err != nil {
		h.logger.Error("list transactions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transactions"})
		return
	}

	out := make([]TransactionDTO, 0, len(rows))
	for _, r := range rows {
		dto := TransactionDTO{Transaction: r.Transaction, PlanName: r.PlanName}
		if r.VoucherCode != nil {
			dto.VoucherCode = *r.VoucherCode
		}
		out = append(out, dto)
	}
	c.JSON(http.StatusOK, httpx.NewPaginatedResponse(c, out, total))
}

// GET /earnings
func (h *Handler) Earnings(c *gin.Context) {
	tenantID, ok := httpx.TenantID(c)
	if !ok {
		return
	}

	e, err := h.payouts.Earnings(c.Request.Context(), tenantID)
	if err != nil {
		if errors.Is(err, payouts.ErrTenantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		}
		h.logger.Error("earnings", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load earnings"})
		return
	}
	c.JSON(http.StatusOK, e)
}
