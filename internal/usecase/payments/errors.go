package payments

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid payment request")
	ErrPortalNotFound      = errors.New("portal not found")
	ErrPlanNotFound        = errors.New("plan not found")
	ErrPlanInactive        = errors.New("plan is not available")
	ErrNoVoucherAvailable  = errors.New("no vouchers available for this plan")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidCallback     = errors.New("invalid callback payload")
	ErrGateway             = errors.New("payment gateway error")
)
