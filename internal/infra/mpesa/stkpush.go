package mpesa

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrInvalidPhone = errors.New("invalid phone number")

var kenyanMSISDN = regexp.MustCompile(`^254[17][0-9]{8}$`)

// NormalizePhone converts local formats (07.., +2547.., 7..) to 2547XXXXXXXX.
func NormalizePhone(phone string) (string, error) {
	p := strings.Join(strings.Fields(phone), "")
	p = strings.ReplaceAll(p, "-", "")
	switch {
	case strings.HasPrefix(p, "+254"):
		p = p[1:]
	case strings.HasPrefix(p, "0"):
		p = "254" + p[1:]
	case !strings.HasPrefix(p, "254"):
		p = "254" + p
	}
	if !kenyanMSISDN.MatchString(p) {
		return "", ErrInvalidPhone
	}
	return p, nil
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type STKPushResponse struct {
	MerchantRequestID   string     `json:"MerchantRequestID"`
	CheckoutRequestID   string     `json:"CheckoutRequestID"`
	ResponseCode        FlexString `json:"ResponseCode"`
	ResponseDescription string     `json:"ResponseDescription"`
	CustomerMessage     string     `json:"CustomerMessage"`
}

// STKPush prompts the payer's handset to authorize amount. The amount is rounded up
// to whole shillings. A non-zero ResponseCode is returned as *APIError.
func (c *Client) STKPush(ctx context.Context, phone string, amount decimal.Decimal, accountRef, desc string) (*STKPushResponse, error) {
	msisdn, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	pw, ts := c.password()

	req := stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          pw,
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount.Ceil().IntPart(),
		PartyA:            msisdn,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       msisdn,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  accountRef,
		TransactionDesc:   desc,
	}

	c.logger.Info("sending stk push",
		zap.String("account_ref", accountRef),
		zap.Int64("amount", req.Amount))

	var resp STKPushResponse
	if err := c.postJSON(ctx, "/mpesa/stkpush/v1/processrequest", pushTimeout, req, &resp); err != nil {
		return nil, err
	}
	if string(resp.ResponseCode) != "0" {
		msg := resp.ResponseDescription
		if msg == "" {
			msg = "Payment initiation failed"
		}
		return nil, &APIError{StatusCode: 200, Code: string(resp.ResponseCode), Message: msg}
	}

	c.logger.Info("stk push accepted",
		zap.String("checkout_request_id", resp.CheckoutRequestID),
		zap.String("merchant_request_id", resp.MerchantRequestID))
	return &resp, nil
}

type stkQueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type STKQueryResponse struct {
	ResponseCode        FlexString `json:"ResponseCode"`
	ResponseDescription string     `json:"ResponseDescription"`
	MerchantRequestID   string     `json:"MerchantRequestID"`
	CheckoutRequestID   string     `json:"CheckoutRequestID"`
	ResultCode          FlexString `json:"ResultCode"`
	ResultDesc          string     `json:"ResultDesc"`
	MpesaReceiptNumber  string     `json:"MpesaReceiptNumber,omitempty"`
}

func (r *STKQueryResponse) Code() string { return string(r.ResultCode) }

// QuerySTKStatus asks Daraja for the current state of a push request.
func (c *Client) QuerySTKStatus(ctx context.Context, checkoutRequestID string) (*STKQueryResponse, error) {
	pw, ts := c.password()
	req := stkQueryRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          pw,
		Timestamp:         ts,
		CheckoutRequestID: checkoutRequestID,
	}

	var resp STKQueryResponse
	if err := c.postJSON(ctx, "/mpesa/stkpushquery/v1/query", queryTimeout, req, &resp); err != nil {
		return nil, err
	}
	c.logger.Debug("stk query result",
		zap.String("checkout_request_id", checkoutRequestID),
		zap.String("result_code", resp.Code()),
		zap.String("result_desc", resp.ResultDesc))
	return &resp, nil
}
