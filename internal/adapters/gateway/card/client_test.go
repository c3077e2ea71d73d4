package card

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DanielPopoola/car-rental-engine/internal/adapters/gateway"
	"github.com/DanielPopoola/car-rental-engine/internal/config"
	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.CardGatewayConfig{
		BaseURL:    srv.URL,
		SecretKey:  "sk_test",
		Timeout:    2 * time.Second,
		SuccessURL: "https://app.example.com/checkout-session",
		CancelURL:  "https://app.example.com/checkout",
	}, config.RetryConfig{BaseDelay: time.Millisecond, MaxRetries: 3})
}

func TestCreatePaymentSession(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "booking-1", r.PostForm.Get("metadata[bookingId]"))
		assert.Equal(t, "45000", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "usd", r.PostForm.Get("line_items[0][price_data][currency]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_123","url":"https://pay.example.com/cs_123","status":"open","payment_status":"unpaid"}`))
	})

	session, err := client.CreatePaymentSession(context.Background(), domain.SessionRequest{
		BookingID:   "booking-1",
		Amount:      45000,
		Currency:    "USD",
		Description: "Compact rental",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_123", session.ID)
	assert.Equal(t, "https://pay.example.com/cs_123", session.URL)
}

func TestRetrieveSessionStatus(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		state domain.SessionState
	}{
		{"paid", `{"id":"cs_1","status":"complete","payment_status":"paid","customer":"cus_1"}`, domain.SessionPaid},
		{"open", `{"id":"cs_1","status":"open","payment_status":"unpaid"}`, domain.SessionOpen},
		{"expired", `{"id":"cs_1","status":"expired","payment_status":"unpaid"}`, domain.SessionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/checkout/sessions/cs_1", r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			})

			status, err := client.RetrieveSessionStatus(context.Background(), "cs_1")
			require.NoError(t, err)
			assert.Equal(t, tt.state, status.State)
		})
	}
}

func TestRetrieveSessionStatus_NotFound(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such checkout.session"}}`))
	})

	_, err := client.RetrieveSessionStatus(context.Background(), "cs_missing")
	require.Error(t, err)
	assert.True(t, gateway.IsNotFound(err))
	assert.Equal(t, int32(1), calls.Load(), "4xx is not retried")
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id":"pi_1","status":"succeeded","amount":16500,"customer":"cus_1"}`))
	})

	intent, err := client.RetrievePaymentIntent(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentSucceeded, intent.Status)
	assert.Equal(t, int64(16500), intent.Amount)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTimeoutIsReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	client := NewClient(config.CardGatewayConfig{
		BaseURL: srv.URL,
		Timeout: 50 * time.Millisecond,
	}, config.RetryConfig{BaseDelay: time.Millisecond, MaxRetries: 2})

	_, err := client.RetrieveSessionStatus(context.Background(), "cs_slow")
	require.Error(t, err)
	assert.True(t, gateway.IsTimeout(err))
}

func TestCreatePaymentIntent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch r.URL.Path {
		case "/v1/customers":
			assert.Equal(t, "jane@example.com", r.PostForm.Get("email"))
			_, _ = w.Write([]byte(`{"id":"cus_9"}`))
		case "/v1/payment_intents":
			assert.Equal(t, "cus_9", r.PostForm.Get("customer"))
			_, _ = w.Write([]byte(`{"id":"pi_9","client_secret":"pi_9_secret","status":"requires_payment_method","customer":"cus_9"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	intent, err := client.CreatePaymentIntent(context.Background(), domain.IntentRequest{
		Amount:        1000,
		Currency:      "usd",
		CustomerEmail: "jane@example.com",
		CustomerName:  "Jane",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_9", intent.ID)
	assert.Equal(t, "pi_9_secret", intent.ClientSecret)
	assert.Equal(t, "cus_9", intent.CustomerID)
}
