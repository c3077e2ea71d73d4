package domain

// SessionState is the gateway-neutral view of a payment session or order.
type SessionState string

const (
	// SessionOpen has not completed yet; the client may keep polling.
	SessionOpen SessionState = "open"
	// SessionPaid means funds were collected or approved.
	SessionPaid SessionState = "paid"
	// SessionFailed is a terminal non-success such as an expired session or voided order.
	SessionFailed SessionState = "failed"
)

type SessionRequest struct {
	BookingID     string
	Amount        int64
	Currency      string
	Description   string
	CustomerEmail string
	CustomerName  string
	Locale        string
}

type Session struct {
	ID  string
	URL string
}

// SessionStatus carries the normalized state plus the raw gateway status string.
type SessionStatus struct {
	ID         string
	State      SessionState
	Status     string
	CustomerID string
	// Reference is the booking id the gateway recorded at creation, if any.
	Reference string
}

type IntentRequest struct {
	Amount        int64
	Currency      string
	Description   string
	CustomerEmail string
	CustomerName  string
}

type PaymentIntent struct {
	ID           string
	ClientSecret string
	CustomerID   string
	Status       string
	// Amount is in minor units.
	Amount int64
}

// IntentSucceeded is the only payment intent status accepted at checkout.
const IntentSucceeded = "succeeded"
