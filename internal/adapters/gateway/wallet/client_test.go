package wallet

import (
	"context"
	"encoding/json"
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

type fakeWallet struct {
	tokenCalls atomic.Int32
	orders     map[string]string
}

func (f *fakeWallet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/v1/oauth2/token":
		f.tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	case r.URL.Path == "/v2/checkout/orders" && r.Method == http.MethodPost:
		var req createOrderRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if r.Header.Get("Authorization") != "Bearer tok" || len(req.PurchaseUnits) != 1 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"id":"ORDER-1","status":"CREATED","links":[{"href":"https://wallet.example.com/approve/ORDER-1","rel":"approve"}]}`))
	case r.Method == http.MethodGet:
		id := r.URL.Path[len("/v2/checkout/orders/"):]
		status, ok := f.orders[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"name":"RESOURCE_NOT_FOUND","message":"order not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"` + id + `","status":"` + status +
			`","purchase_units":[{"custom_id":"booking-` + id + `","amount":{"currency_code":"USD","value":"10.00"}}]}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, f *fakeWallet) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	return NewClient(config.WalletGatewayConfig{
		BaseURL:      srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
		Timeout:      2 * time.Second,
	}, config.RetryConfig{BaseDelay: time.Millisecond, MaxRetries: 2})
}

func TestCreatePaymentSession(t *testing.T) {
	f := &fakeWallet{}
	client := newTestClient(t, f)

	session, err := client.CreatePaymentSession(context.Background(), domain.SessionRequest{
		BookingID: "booking-1",
		Amount:    12345,
		Currency:  "usd",
	})
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", session.ID)
	assert.Equal(t, "https://wallet.example.com/approve/ORDER-1", session.URL)
}

func TestRetrieveSessionStatus(t *testing.T) {
	f := &fakeWallet{orders: map[string]string{
		"A": OrderApproved,
		"C": OrderCompleted,
		"V": OrderVoided,
		"P": "PAYER_ACTION_REQUIRED",
	}}
	client := newTestClient(t, f)

	expected := map[string]domain.SessionState{
		"A": domain.SessionPaid,
		"C": domain.SessionPaid,
		"V": domain.SessionFailed,
		"P": domain.SessionOpen,
	}
	for id, state := range expected {
		status, err := client.RetrieveSessionStatus(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, state, status.State, id)
		assert.Equal(t, f.orders[id], status.Status)
		assert.Equal(t, "booking-"+id, status.Reference)
	}

	assert.Equal(t, int32(1), f.tokenCalls.Load(), "token is cached")
}

func TestRetrieveSessionStatus_NotFound(t *testing.T) {
	client := newTestClient(t, &fakeWallet{orders: map[string]string{}})

	_, err := client.RetrieveSessionStatus(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, gateway.IsNotFound(err))

	gwErr, ok := gateway.IsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, "RESOURCE_NOT_FOUND", gwErr.Code)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "123.45", FormatAmount(12345))
	assert.Equal(t, "0.05", FormatAmount(5))
	assert.Equal(t, "10.00", FormatAmount(1000))
	assert.Equal(t, "-1.50", FormatAmount(-150))
}
