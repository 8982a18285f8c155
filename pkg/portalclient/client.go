// Package portalclient drives a voucher purchase the way the captive portal does:
// start an STK push, then poll its status until it settles.
package portalclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultInterval             = 2 * time.Second
	DefaultMaxAttempts          = 90
	DefaultMaxConsecutiveErrors = 5

	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var (
	ErrTimeout        = errors.New("payment still pending after the last poll")
	ErrTooManyErrors  = errors.New("too many consecutive status errors")
	ErrNotFound       = errors.New("transaction not found")
	ErrMissingBaseURL = errors.New("base URL is required")
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	Interval             time.Duration
	MaxAttempts          int
	MaxConsecutiveErrors int
}

func New(baseURL string, logger *zap.Logger) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:              baseURL,
		httpClient:           &http.Client{Timeout: 20 * time.Second},
		logger:               logger,
		Interval:             DefaultInterval,
		MaxAttempts:          DefaultMaxAttempts,
		MaxConsecutiveErrors: DefaultMaxConsecutiveErrors,
	}, nil
}

type InitiateRequest struct {
	PhoneNumber string          `json:"phoneNumber"`
	Amount      decimal.Decimal `json:"amount"`
	PlanID      string          `json:"planId"`
	PortalSlug  string          `json:"portalSlug"`
}

type InitiateResponse struct {
	Success           bool   `json:"success"`
	CheckoutRequestID string `json:"checkoutRequestId"`
	Message           string `json:"message"`
}

type Voucher struct {
	Code      string `json:"voucher_code"`
	PlanName  string `json:"plan_name"`
	Duration  string `json:"duration"`
	DataLimit string `json:"data_limit,omitempty"`
	Speed     string `json:"speed,omitempty"`
}

type Status struct {
	CheckoutRequestID string          `json:"checkout_request_id"`
	Status            string          `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	ReceiptNumber     string          `json:"mpesa_receipt_number,omitempty"`
	ResultDesc        string          `json:"result_desc,omitempty"`
	Voucher           *Voucher        `json:"voucher,omitempty"`
	SupportPhone      string          `json:"support_phone,omitempty"`
	BusinessName      string          `json:"business_name,omitempty"`
}

func (s *Status) Settled() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// APIError is a non-2xx answer from the portal API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("portal api returned %d: %s", e.StatusCode, e.Message)
}

func (c *Client) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/mpesa/initiate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var out InitiateResponse
	if err := c.do(httpReq, &out); err != nil {
		return nil, err
	}
	c.logger.Info("payment initiated", zap.String("checkout_request_id", out.CheckoutRequestID))
	return &out, nil
}

func (c *Client) Status(ctx context.Context, checkoutRequestID string) (*Status, error) {
	u := c.baseURL + "/api/mpesa/status?checkoutRequestId=" + url.QueryEscape(checkoutRequestID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var out Status
	if err := c.do(httpReq, &out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

// WaitForCompletion polls until the payment settles. It gives up after MaxAttempts
// polls (ErrTimeout), after MaxConsecutiveErrors failed requests in a row
// (ErrTooManyErrors), or when ctx is done. The last status seen is returned with
// those errors so callers can still show the support phone. Non-positive limits fall
// back to the package defaults.
func (c *Client) WaitForCompletion(ctx context.Context, checkoutRequestID string) (*Status, error) {
	interval, maxAttempts, maxErrors := c.pollLimits()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		last        *Status
		consecutive int
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}

		st, err := c.Status(ctx, checkoutRequestID)
		if err != nil {
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			consecutive++
			c.logger.Warn("status poll failed",
				zap.String("checkout_request_id", checkoutRequestID),
				zap.Int("attempt", attempt),
				zap.Int("consecutive_errors", consecutive),
				zap.Error(err))
			if consecutive >= maxErrors {
				return last, fmt.Errorf("%w: %w", ErrTooManyErrors, err)
			}
			continue
		}

		consecutive = 0
		last = st
		if st.Settled() {
			return st, nil
		}
	}
	return last, ErrTimeout
}

func (c *Client) pollLimits() (time.Duration, int, int) {
	interval, attempts, errs := c.Interval, c.MaxAttempts, c.MaxConsecutiveErrors
	if interval <= 0 {
		interval = DefaultInterval
	}
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	if errs <= 0 {
		errs = DefaultMaxConsecutiveErrors
	}
	return interval, attempts, errs
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
