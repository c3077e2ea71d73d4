// Package card is the card-payment gateway adapter: hosted checkout
// sessions and synchronous payment intents over a form-encoded REST API.
package card

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DanielPopoola/car-rental-engine/internal/adapters/gateway"
	"github.com/DanielPopoola/car-rental-engine/internal/config"
	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/DanielPopoola/car-rental-engine/internal/core/ports"
)

const gatewayName = "card"

// Session statuses reported by the card gateway.
const (
	sessionStatusExpired  = "expired"
	paymentStatusPaid     = "paid"
	paymentStatusNoCharge = "no_payment_required"
)

type Client struct {
	baseURL    string
	secretKey  string
	successURL string
	cancelURL  string
	timeout    time.Duration
	retry      gateway.RetryPolicy
	httpClient *http.Client
}

func NewClient(cfg config.CardGatewayConfig, retry config.RetryConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:  cfg.SecretKey,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		timeout:    cfg.Timeout,
		retry: gateway.RetryPolicy{
			BaseDelay:  retry.BaseDelay,
			MaxRetries: retry.MaxRetries,
		},
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

var _ ports.CardGateway = (*Client)(nil)

// CreatePaymentSession opens a hosted checkout session for one booking.
func (c *Client) CreatePaymentSession(ctx context.Context, req domain.SessionRequest) (*domain.Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", c.successURL+"?session_id={CHECKOUT_SESSION_ID}")
	form.Set("cancel_url", c.cancelURL)
	form.Set("client_reference_id", req.BookingID)
	form.Set("metadata[bookingId]", req.BookingID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(req.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.Amount, 10))
	form.Set("line_items[0][price_data][product_data][name]", req.Description)
	if req.CustomerEmail != "" {
		form.Set("customer_email", req.CustomerEmail)
	}
	if req.Locale != "" {
		form.Set("locale", req.Locale)
	}

	s, err := call[checkoutSession](c, ctx, http.MethodPost, "/v1/checkout/sessions", form)
	if err != nil {
		return nil, err
	}
	return &domain.Session{ID: s.ID, URL: s.URL}, nil
}

func (c *Client) RetrieveSessionStatus(ctx context.Context, sessionID string) (*domain.SessionStatus, error) {
	s, err := call[checkoutSession](c, ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, err
	}

	state := domain.SessionOpen
	switch {
	case s.PaymentStatus == paymentStatusPaid || s.PaymentStatus == paymentStatusNoCharge:
		state = domain.SessionPaid
	case s.Status == sessionStatusExpired:
		state = domain.SessionFailed
	}

	return &domain.SessionStatus{
		ID:         s.ID,
		State:      state,
		Status:     s.Status,
		CustomerID: s.Customer,
	}, nil
}

// CreatePaymentIntent registers the customer and opens a payment intent the
// client confirms in-page.
func (c *Client) CreatePaymentIntent(ctx context.Context, req domain.IntentRequest) (*domain.PaymentIntent, error) {
	customerForm := url.Values{}
	customerForm.Set("email", req.CustomerEmail)
	customerForm.Set("name", req.CustomerName)

	cust, err := call[customer](c, ctx, http.MethodPost, "/v1/customers", customerForm)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.Amount, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("customer", cust.ID)
	form.Set("description", req.Description)
	form.Set("automatic_payment_methods[enabled]", "true")

	pi, err := call[paymentIntent](c, ctx, http.MethodPost, "/v1/payment_intents", form)
	if err != nil {
		return nil, err
	}
	return toIntent(pi), nil
}

func (c *Client) RetrievePaymentIntent(ctx context.Context, intentID string) (*domain.PaymentIntent, error) {
	pi, err := call[paymentIntent](c, ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(intentID), nil)
	if err != nil {
		return nil, err
	}
	return toIntent(pi), nil
}

func toIntent(pi *paymentIntent) *domain.PaymentIntent {
	return &domain.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		CustomerID:   pi.Customer,
		Status:       pi.Status,
		Amount:       pi.Amount,
	}
}

// call bounds the whole operation, retries included, by the configured timeout.
func call[Resp any](c *Client, ctx context.Context, method, path string, form url.Values) (*Resp, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	return gateway.Retry(ctx, c.retry, func(ctx context.Context) (*Resp, error) {
		body := strings.NewReader("")
		if form != nil {
			body = strings.NewReader(form.Encode())
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.secretKey)
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
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
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		gwErr.Code = errResp.Error.Code
		gwErr.Message = errResp.Error.Message
	}
	return gwErr
}
