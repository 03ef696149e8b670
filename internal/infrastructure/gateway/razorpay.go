package gateway

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

	dompay "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
)

const (
	DefaultBaseURL = "https://api.razorpay.com"
	ordersPath     = "/v1/orders"
	maxBodyBytes   = 1 << 20
)

// Config is what the client needs to reach the gateway.
type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// Client talks to a Razorpay-compatible orders API with basic auth.
type Client struct {
	base   *url.URL
	keyID  string
	secret string
	http   *http.Client
}

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("gateway: http %d", e.StatusCode)
	}
	return fmt.Sprintf("gateway: http %d: %s: %s", e.StatusCode, e.Code, e.Description)
}

func New(cfg Config) (*Client, error) {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, errors.New("gateway: key id and secret are required")
	}
	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("gateway: base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base:   base,
		keyID:  cfg.KeyID,
		secret: cfg.KeySecret,
		http:   &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) KeyID() string { return c.keyID }

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

func (c *Client) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (dompay.RemoteOrder, error) {
	body, err := json.Marshal(createOrderRequest{Amount: amountMinor, Currency: currency, Receipt: receipt})
	if err != nil {
		return dompay.RemoteOrder{}, err
	}
	var out dompay.RemoteOrder
	if err := c.do(ctx, http.MethodPost, ordersPath, body, &out); err != nil {
		return dompay.RemoteOrder{}, err
	}
	return out, nil
}

func (c *Client) FetchOrder(ctx context.Context, id string) (dompay.RemoteOrder, error) {
	var out dompay.RemoteOrder
	if err := c.do(ctx, http.MethodGet, ordersPath+"/"+url.PathEscape(id), nil, &out); err != nil {
		return dompay.RemoteOrder{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, dst any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, rd)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.keyID, c.secret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("gateway: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var env struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		if json.Unmarshal(payload, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Description = env.Error.Description
		}
		return apiErr
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("gateway: decode response: %w", err)
	}
	return nil
}
