package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	sandboxURL    = "https://sandbox.safaricom.co.ke"
	productionURL = "https://api.safaricom.co.ke"

	tokenTimeout = 10 * time.Second
	pushTimeout  = 15 * time.Second
	queryTimeout = 10 * time.Second

	defaultTokenTTL = 3600 * time.Second
	tokenSafety     = 300 * time.Second
)

type Config struct {
	Environment    string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
}

// Client talks to the Daraja API for Lipa Na M-Pesa Online (STK push).
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	tokens     TokenCache
	now        func() time.Time
	logger     *zap.Logger
	refresh    singleflight.Group
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTokenCache(tc TokenCache) Option {
	return func(c *Client) { c.tokens = tc }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(cfg Config, opts ...Option) *Client {
	baseURL := sandboxURL
	if cfg.Environment == "production" {
		baseURL = productionURL
	}

	c := &Client{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: &http.Client{},
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokens == nil {
		c.tokens = NewMemoryTokenCache(c.now)
	}
	return c
}

// FlexString accepts both JSON strings and numbers; Daraja is inconsistent about
// which one it sends for codes and TTLs.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = FlexString(b)
	return nil
}

type tokenResponse struct {
	AccessToken string     `json:"access_token"`
	ExpiresIn   FlexString `json:"expires_in"`
}

// AccessToken returns a cached token or fetches a fresh one. Concurrent misses share
// a single upstream request.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if token, ok := c.tokens.Get(ctx); ok {
		return token, nil
	}

	v, err, _ := c.refresh.Do("token", func() (interface{}, error) {
		if token, ok := c.tokens.Get(ctx); ok {
			return token, nil
		}
		return c.fetchToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, tokenTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+auth)

	c.logger.Debug("fetching new mpesa access token")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.tokens.Invalidate(ctx)
		return "", fmt.Errorf("failed to get access token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.tokens.Invalidate(ctx)
		return "", fmt.Errorf("failed to get access token: %w", decodeAPIError(resp.StatusCode, body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("failed to get access token: empty token")
	}

	ttl := defaultTokenTTL
	if secs, err := strconv.Atoi(strings.TrimSpace(string(tr.ExpiresIn))); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}
	ttl -= tokenSafety
	if ttl < 0 {
		ttl = 0
	}
	c.tokens.Set(ctx, tr.AccessToken, c.now().Add(ttl))

	c.logger.Info("mpesa access token cached", zap.Duration("ttl", ttl))
	return tr.AccessToken, nil
}

// postJSON sends an authorized JSON request and decodes a 200 body into out.
// A 401 from any endpoint drops the cached token so the next call refreshes it.
func (c *Client) postJSON(ctx context.Context, path string, timeout time.Duration, payload, out interface{}) error {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mpesa request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("mpesa request %s: read body: %w", path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate(ctx)
		c.logger.Warn("mpesa rejected access token, cache cleared", zap.String("path", path))
		return decodeAPIError(resp.StatusCode, body)
	}
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

type errorBody struct {
	RequestID        string `json:"requestId"`
	ErrorCode        string `json:"errorCode"`
	ErrorMessage     string `json:"errorMessage"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		apiErr.Code = eb.ErrorCode
		switch {
		case eb.ErrorMessage != "":
			apiErr.Message = eb.ErrorMessage
		case eb.ErrorDescription != "":
			apiErr.Message = eb.ErrorDescription
		case eb.Error != "":
			apiErr.Message = eb.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// password builds the STK password and its timestamp.
func (c *Client) password() (string, string) {
	timestamp := c.now().Format("20060102150405")
	pw := base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.Passkey + timestamp))
	return pw, timestamp
}
