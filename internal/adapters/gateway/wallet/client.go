// Package wallet is the wallet-payment gateway adapter. Payments are
// orders authorised by the payer on the gateway's site.
package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/DanielPopoola/car-rental-engine/internal/adapters/gateway"
	"github.com/DanielPopoola/car-rental-engine/internal/config"
	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/DanielPopoola/car-rental-engine/internal/core/ports"
)

const gatewayName = "wallet"

// Order statuses reported by the wallet gateway.
const (
	OrderApproved  = "APPROVED"
	OrderCompleted = "COMPLETED"
	OrderVoided    = "VOIDED"
)

type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	timeout      time.Duration
	retry        gateway.RetryPolicy
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(cfg config.WalletGatewayConfig, retry config.RetryConfig) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		timeout:      cfg.Timeout,
		retry: gateway.RetryPolicy{
			BaseDelay:  retry.BaseDelay,
			MaxRetries: retry.MaxRetries,
		},
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

var _ ports.PaymentGateway = (*Client)(nil)

// CreatePaymentSession creates a capture order tagged with the booking id.
func (c *Client) CreatePaymentSession(ctx context.Context, req domain.SessionRequest) (*domain.Session, error) {
	body := createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			CustomID:    req.BookingID,
			Description: req.Description,
			Amount: amount{
				CurrencyCode: strings.ToUpper(req.Currency),
				Value:        FormatAmount(req.Amount),
			},
		}},
		ApplicationContext: applicationContext{
			Locale:             req.Locale,
			ShippingPreference: "NO_SHIPPING",
			UserAction:         "PAY_NOW",
		},
	}

	o, err := call[order](c, ctx, http.MethodPost, "/v2/checkout/orders", body)
	if err != nil {
		return nil, err
	}

	session := &domain.Session{ID: o.ID}
	for _, l := range o.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			session.URL = l.Href
			break
		}
	}
	return session, nil
}

func (c *Client) RetrieveSessionStatus(ctx context.Context, orderID string) (*domain.SessionStatus, error) {
	o, err := call[order](c, ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, err
	}

	status := &domain.SessionStatus{
		ID:     o.ID,
		State:  orderState(o.Status),
		Status: o.Status,
	}
	if len(o.PurchaseUnits) > 0 {
		status.Reference = o.PurchaseUnits[0].CustomID
	}
	return status, nil
}

// orderState maps order statuses onto session states. CREATED, SAVED and
// PAYER_ACTION_REQUIRED are still in flight.
func orderState(status string) domain.SessionState {
	switch status {
	case OrderApproved, OrderCompleted:
		return domain.SessionPaid
	case OrderVoided:
		return domain.SessionFailed
	default:
		return domain.SessionOpen
	}
}

// FormatAmount renders minor units as a decimal string, e.g. 12345 -> "123.45".
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// token returns a cached OAuth access token, refreshing it a minute early.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	tok, err := gateway.Do[tokenResponse](c.httpClient, req, decodeError)
	if err != nil {
		return "", fmt.Errorf("fetch access token: %w", err)
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.accessToken, nil
}

// call bounds the whole operation, retries included, by the configured timeout.
func call[Resp any](c *Client, ctx context.Context, method, path string, reqBody any) (*Resp, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var payload []byte
	if reqBody != nil {
		var err error
		if payload, err = json.Marshal(reqBody); err != nil {
			return nil, fmt.Errorf("error marshalling json: %w", err)
		}
	}

	return gateway.Retry(ctx, c.retry, func(ctx context.Context) (*Resp, error) {
		accessToken, err := c.token(ctx)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		if reqBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		return gateway.Do[Resp](c.httpClient, req, decodeError)
	})
}

func decodeError(statusCode int, body []byte) error {
	gwErr := &gateway.Error{
		Gateway:    gatewayName,
		StatusCode: statusCode,
		Message:    http.StatusText(statusCode),
	}

	var errResp errorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Name != "" {
		gwErr.Code = errResp.Name
		gwErr.Message = errResp.Message
	}
	return gwErr
}
