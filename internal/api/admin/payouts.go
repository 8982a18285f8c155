package admin

import (
	"errors"
	"net/http"

	"qtro-isp/internal/usecase/payouts"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GET /api/admin/payouts/pending
func (h *Handler) PendingPayouts(c *gin.Context) {
	list, err := h.payouts.PendingSummaries(c.Request.Context())
	if err != nil {
		h.logger.Error("pending payouts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load pending payouts"})
		return
	}
	c.JSON(http.StatusOK, list)
}

type createPayoutInput struct {
	TenantID          string           `json:"tenant_id" binding:"required"`
	TotalTransactions *int             `json:"total_transactions"`
	GrossAmount       *decimal.Decimal `json:"gross_amount"`
	CommissionAmount  *decimal.Decimal `json:"commission_amount"`
	NetAmount         *decimal.Decimal `json:"net_amount"`
	Notes             string           `json:"notes"`
}

// POST /api/admin/payouts/create
func (h *Handler) CreatePayout(c *gin.Context) {
	var input createPayoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required"})
		return
	}
	tenantID, err := uuid.Parse(input.TenantID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tenant_id"})
		return
	}

	payout, err := h.payouts.Create(c.Request.Context(), payouts.CreateRequest{
		TenantID: tenantID,
		Expected: payouts.Expected{
			TransactionCount: input.TotalTransactions,
			GrossAmount:      input.GrossAmount,
			CommissionAmount: input.CommissionAmount,
			NetAmount:        input.NetAmount,
		},
		Notes: input.Notes,
	})
	switch {
	case errors.Is(err, payouts.ErrTenantNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
		return
	case errors.Is(err, payouts.ErrNothingToPay):
		c.JSON(http.StatusConflict, gin.H{"error": "No unpaid transactions for this tenant"})
		return
	case errors.Is(err, payouts.ErrFiguresMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("create payout", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payout"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "payout": payout})
}

// POST /api/admin/payouts/mark-paid
func (h *Handler) MarkPaid(c *gin.Context) {
	var input struct {
		PayoutID           string `json:"payout_id" binding:"required"`
		MpesaTransactionID string `json:"mpesa_transaction_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payout_id is required"})
		return
	}
	payoutID, err := uuid.Parse(input.PayoutID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payout_id"})
		return
	}

	payout, flipped, err := h.payouts.MarkPaid(c.Request.Context(), payoutID, input.MpesaTransactionID)
	switch {
	case errors.Is(err, payouts.ErrMissingRef):
		c.JSON(http.StatusBadRequest, gin.H{"error": "mpesa_transaction_id is required"})
		return
	case errors.Is(err, payouts.ErrPayoutNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Payout not found"})
		return
	case errors.Is(err, payouts.ErrAlreadyPaid):
		c.JSON(http.StatusConflict, gin.H{"error": "Payout already marked as paid"})
		return
	case err != nil:
		h.logger.Error("mark payout paid", zap.String("payout_id", payoutID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark payout as paid"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "payout": payout, "transactions_updated": flipped})
}

// GET /api/admin/payouts?tenant_id=&status=
func (h *Handler) ListPayouts(c *gin.Context) {
	var tenantID *uuid.UUID
	if raw := c.Query("tenant_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tenant_id"})
			return
		}
		tenantID = &id
	}

	list, err := h.payouts.List(c.Request.Context(), tenantID, c.Query("status"))
	if err != nil {
		h.logger.Error("list payouts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payouts"})
		return
	}
	c.JSON(http.StatusOK, list)
}
