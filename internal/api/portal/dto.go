package portalapi

import "github.com/shopspring/decimal"

type PlanDTO struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	DataLimit         string          `json:"data_limit,omitempty"`
	Speed             string          `json:"speed,omitempty"`
	Price             decimal.Decimal `json:"price"`
	Duration          string          `json:"duration"`
	AccessHours       int64           `json:"access_hours"`
	AvailableVouchers int64           `json:"available_vouchers"`
}

type PortalResponse struct {
	BusinessName string    `json:"business_name"`
	SupportPhone string    `json:"support_phone"`
	Slug         string    `json:"slug"`
	Plans        []PlanDTO `json:"plans"`
}
