package admin

import (
	"net/http"
	"time"

	"qtro-isp/internal/domain/billing"
	"qtro-isp/internal/domain/payouts"
	"qtro-isp/internal/domain/tenants"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Report struct {
	From               *time.Time      `json:"from,omitempty"`
	To                 *time.Time      `json:"to,omitempty"`
	Tenants            int64           `json:"tenants"`
	CompletedSales     int64           `json:"completed_sales"`
	FailedSales        int64           `json:"failed_sales"`
	PendingSales       int64           `json:"pending_sales"`
	GrossAmount        decimal.Decimal `json:"gross_amount"`
	CommissionAmount   decimal.Decimal `json:"commission_amount"`
	NetAmount          decimal.Decimal `json:"net_amount"`
	PaidOut            decimal.Decimal `json:"paid_out"`
	AwaitingSettlement decimal.Decimal `json:"awaiting_settlement"`
}

type sums struct {
	Gross      decimal.NullDecimal
	Commission decimal.NullDecimal
	Net        decimal.NullDecimal
}

const reportDateLayout = "2006-01-02"

// GET /api/admin/reports?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) Reports(c *gin.Context) {
	var rep Report
	window := func(db *gorm.DB) *gorm.DB { return db }

	if raw := c.Query("from"); raw != "" {
		from, err := time.ParseInLocation(reportDateLayout, raw, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
			return
		}
		rep.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.ParseInLocation(reportDateLayout, raw, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
			return
		}
		rep.To = &to
	}
	if rep.From != nil || rep.To != nil {
		from, to := rep.From, rep.To
		window = func(db *gorm.DB) *gorm.DB {
			if from != nil {
				db = db.Where("created_at >= ?", *from)
			}
			if to != nil {
				db = db.Where("created_at < ?", to.AddDate(0, 0, 1))
			}
			return db
		}
	}

	if err := h.db.Model(&tenants.Tenant{}).Count(&rep.Tenants).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
		return
	}

	counts := []struct {
		status string
		dst    *int64
	}{
		{billing.StatusCompleted, &rep.CompletedSales},
		{billing.StatusFailed, &rep.FailedSales},
		{billing.StatusPending, &rep.PendingSales},
	}
	for _, cnt := range counts {
		if err := h.db.Model(&billing.Transaction{}).Scopes(window).
			Where("status = ?", cnt.status).Count(cnt.dst).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
			return
		}
	}

	var s sums
	if err := h.db.Model(&billing.Transaction{}).Scopes(window).
		Select("SUM(amount) AS gross, SUM(commission_amount) AS commission, SUM(net_amount) AS net").
		Where("status = ?", billing.StatusCompleted).
		Scan(&s).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
		return
	}
	rep.GrossAmount = s.Gross.Decimal
	rep.CommissionAmount = s.Commission.Decimal
	rep.NetAmount = s.Net.Decimal

	paid := []struct {
		status string
		dst    *decimal.Decimal
	}{
		{payouts.StatusPaid, &rep.PaidOut},
		{payouts.StatusPending, &rep.AwaitingSettlement},
	}
	for _, p := range paid {
		var total decimal.NullDecimal
		if err := h.db.Model(&payouts.Payout{}).Scopes(window).
			Select("SUM(net_amount)").
			Where("status = ?", p.status).
			Scan(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
			return
		}
		*p.dst = total.Decimal
	}

	c.JSON(http.StatusOK, rep)
}
