package mpesa

import (
	"encoding/json"
	"fmt"
	"strings"
)

type callbackItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

type stkCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string     `json:"MerchantRequestID"`
			CheckoutRequestID string     `json:"CheckoutRequestID"`
			ResultCode        FlexString `json:"ResultCode"`
			ResultDesc        string     `json:"ResultDesc"`
			CallbackMetadata  *struct {
				Item                 []callbackItem `json:"Item"`
				CallbackMetadataItem []callbackItem `json:"CallbackMetadataItem"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// CallbackResult is the parsed STK callback.
type CallbackResult struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        string
	ResultDesc        string
	Success           bool
	ReceiptNumber     string
	Amount            string
	PhoneNumber       string
}

// ParseSTKCallback decodes the asynchronous result Daraja posts to the callback URL.
func ParseSTKCallback(payload []byte) (*CallbackResult, error) {
	var env stkCallbackEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("failed to parse callback: %w", err)
	}
	cb := env.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return nil, fmt.Errorf("failed to parse callback: missing CheckoutRequestID")
	}

	res := &CallbackResult{
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        strings.TrimSpace(string(cb.ResultCode)),
		ResultDesc:        cb.ResultDesc,
	}
	res.Success = res.ResultCode == "0"

	if cb.CallbackMetadata != nil {
		items := cb.CallbackMetadata.Item
		if len(items) == 0 {
			items = cb.CallbackMetadata.CallbackMetadataItem
		}
		for _, it := range items {
			switch it.Name {
			case "MpesaReceiptNumber":
				res.ReceiptNumber = rawString(it.Value)
			case "Amount":
				res.Amount = rawString(it.Value)
			case "PhoneNumber":
				res.PhoneNumber = rawString(it.Value)
			}
		}
	}
	return res, nil
}

// rawString renders a metadata value as text without float rounding, so
// 254712345678 stays intact.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}
