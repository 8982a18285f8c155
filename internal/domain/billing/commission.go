package billing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ComputeCommission splits a sale into the platform's cut and the tenant's net.
// The commission is rounded to the cent; net is always amount - commission exactly.
func ComputeCommission(amount, ratePercent decimal.Decimal) (commission, net decimal.Decimal) {
	commission = amount.Mul(ratePercent).Div(hundred).Round(2)
	net = amount.Sub(commission)
	return commission, net
}
