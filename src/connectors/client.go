// REST API client for the execution venue.
// Resty only, with internal retry for transient faults.
package connectors

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
)

const (
	// Default retry configuration for transient network faults.
	defaultRetryAttempts   = 4
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second
)

// APIResponse is the venue's response envelope.
type APIResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// VenueError is a venue-side business reject. Terminal: never retried.
type VenueError struct {
	Code int
	Msg  string
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("venue rejected: code=%d %s", e.Code, RejectReason(e.Code))
}

// Client is the authenticated low-level REST client for one venue.
type Client struct {
	apiKey    string
	apiSecret string
	baseURL   string
	http      *resty.Client
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	if r == nil {
		return false
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == 429 {
		return true
	}
	if code == 408 {
		return true
	}
	return false
}

// NewClient creates a signed REST client with bounded exponential backoff.
func NewClient(apiKey, apiSecret, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(defaultRetryAttempts - 1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &Client{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   baseURL,
		http:      httpClient,
	}
}

// signRequest builds the HMAC-SHA256 signature over path+query+expiry+body.
func signRequest(path, query, body string, expiry int64, secret string) string {
	base := path
	if query != "" {
		base += query
	}
	base += fmt.Sprintf("%d", expiry)
	if body != "" {
		base += body
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(base))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) doRequest(ctx context.Context, method, path, query string, body []byte) (*APIResponse, error) {
	expiry := time.Now().Add(1 * time.Minute).Unix()

	sig := signRequest(path, query, string(body), expiry, c.apiSecret)

	req := c.http.R().
		SetContext(ctx).
		SetHeader("x-venue-access-token", c.apiKey).
		SetHeader("x-venue-request-expiry", fmt.Sprintf("%d", expiry)).
		SetHeader("x-venue-request-signature", sig)

	if query != "" {
		req = req.SetQueryString(query)
	}
	if body != nil {
		req = req.SetBody(body).SetHeader("Content-Type", "application/json")
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, err
	}

	raw := resp.Body()

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode(), string(raw))
	}

	var apiResp APIResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return nil, err
	}

	if apiResp.Code != 0 {
		logger.WithFields(logger.Fields{
			"code": apiResp.Code,
			"msg":  apiResp.Msg,
		}).Warn("venue returned business error")
		return nil, &VenueError{Code: apiResp.Code, Msg: apiResp.Msg}
	}

	return &apiResp, nil
}

type placeOrderResponse struct {
	VenueOrderID string `json:"order_id"`
}

// PlaceOrder submits the order and returns the venue-assigned order ID.
func (c *Client) PlaceOrder(ctx context.Context, req SubmitRequest) (string, error) {
	body := map[string]interface{}{
		"clOrdID":     req.ClientOrderID,
		"symbol":      req.Symbol,
		"side":        req.Side,
		"ordType":     req.OrderType,
		"orderQty":    req.Quantity.String(),
		"timeInForce": req.TimeInForce,
	}
	if req.LimitPrice != nil {
		body["price"] = req.LimitPrice.String()
	}
	if req.StopPrice != nil {
		body["stopPrice"] = req.StopPrice.String()
	}

	b, _ := json.Marshal(body)
	resp, err := c.doRequest(ctx, "POST", "/v1/orders", "", b)
	if err != nil {
		return "", err
	}

	var parsed placeOrderResponse
	if err := json.Unmarshal(resp.Data, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal place order response: %w", err)
	}
	if parsed.VenueOrderID == "" {
		return "", fmt.Errorf("venue returned empty order id")
	}

	return parsed.VenueOrderID, nil
}

// CancelOrder requests cancellation of an open order.
func (c *Client) CancelOrder(ctx context.Context, venueOrderID string) error {
	_, err := c.doRequest(ctx, "DELETE", "/v1/orders", fmt.Sprintf("orderID=%s", venueOrderID), nil)
	return err
}

// QueryOrder fetches the venue-side state of an order, used by the
// reconciliation path when an ack never arrives.
func (c *Client) QueryOrder(ctx context.Context, venueOrderID string) (*VenueOrderStatus, error) {
	resp, err := c.doRequest(ctx, "GET", "/v1/orders/status", fmt.Sprintf("orderID=%s", venueOrderID), nil)
	if err != nil {
		return nil, err
	}

	var parsed VenueOrderStatus
	if err := json.Unmarshal(resp.Data, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal order status: %w", err)
	}

	return &parsed, nil
}
