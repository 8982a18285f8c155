package mpesaapi

import (
	"errors"
	"io"
	"net/http"

	"qtro-isp/internal/infra/mpesa"
	"qtro-isp/internal/usecase/payments"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxCallbackBytes = 65536

type Handler struct {
	payments *payments.Service
	logger   *zap.Logger
}

func NewHandler(svc *payments.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{payments: svc, logger: logger}
}

type initiateInput struct {
	PhoneNumber string          `json:"phoneNumber"`
	Amount      decimal.Decimal `json:"amount"`
	PlanID      string          `json:"planId"`
	PortalSlug  string          `json:"portalSlug"`
}

// POST /api/mpesa/initiate
func (h *Handler) Initiate(c *gin.Context) {
	var input initiateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	res, err := h.payments.Initiate(c.Request.Context(), payments.InitiateRequest{
		PhoneNumber: input.PhoneNumber,
		Amount:      input.Amount,
		PlanID:      input.PlanID,
		PortalSlug:  input.PortalSlug,
	})
	if err != nil {
		status, msg := initiateError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("payment initiation failed", zap.Error(err))
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"checkoutRequestId": res.CheckoutRequestID,
		"message":           res.CustomerMessage,
	})
}

func initiateError(err error) (int, string) {
	switch {
	case errors.Is(err, payments.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, payments.ErrPortalNotFound):
		return http.StatusNotFound, "Portal not found"
	case errors.Is(err, payments.ErrPlanNotFound), errors.Is(err, payments.ErrPlanInactive):
		return http.StatusNotFound, "Plan not found or inactive"
	case errors.Is(err, payments.ErrNoVoucherAvailable):
		return http.StatusConflict, "No vouchers available for this plan"
	case errors.Is(err, payments.ErrGateway):
		return http.StatusBadGateway, mpesa.Description(err, "Failed to initiate payment")
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// POST /api/mpesa/callback
// The gateway retries anything but a 200, so every outcome is acknowledged and the
// reason is only logged.
func (h *Handler) Callback(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxCallbackBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Warn("unreadable stk callback body", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"ResultCode": 1, "ResultDesc": "Invalid payload"})
		return
	}

	res, err := h.payments.HandleCallback(c.Request.Context(), payload)
	switch {
	case errors.Is(err, payments.ErrInvalidCallback):
		h.logger.Warn("malformed stk callback", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"ResultCode": 1, "ResultDesc": "Invalid payload"})
	case errors.Is(err, payments.ErrTransactionNotFound):
		h.logger.Warn("stk callback for unknown transaction")
		c.JSON(http.StatusOK, gin.H{"ResultCode": 1, "ResultDesc": "Transaction not found"})
	case errors.Is(err, payments.ErrNoVoucherAvailable):
		// the payer was charged; the transaction is failed and needs manual follow-up
		c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
	case err != nil:
		h.logger.Error("stk callback processing failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"ResultCode": 1, "ResultDesc": "Processing error"})
	default:
		h.logger.Debug("stk callback processed",
			zap.String("status", res.Status),
			zap.Bool("already_settled", res.AlreadySettled))
		c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Success"})
	}
}

// GET /api/mpesa/callback
func (h *Handler) CallbackProbe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "M-Pesa callback endpoint is active"})
}

// GET /api/mpesa/status?checkoutRequestId=
func (h *Handler) Status(c *gin.Context) {
	id := c.Query("checkoutRequestId")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing checkoutRequestId"})
		return
	}

	view, err := h.payments.CheckStatus(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, payments.ErrTransactionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
			return
		}
		h.logger.Error("status check failed", zap.String("checkout_request_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check status"})
		return
	}
	c.JSON(http.StatusOK, view)
}
