package handler

import (
	"net/http"

	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
)

type SessionRequest struct {
	BookingID     string `json:"bookingId" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	Amount        int64  `json:"amount" validate:"required,gt=0" example:"16500"`
	Currency      string `json:"currency" validate:"omitempty,len=3" example:"usd"`
	Description   string `json:"description"`
	CustomerEmail string `json:"customerEmail" validate:"omitempty,email"`
	CustomerName  string `json:"customerName"`
	Locale        string `json:"locale"`
}

type SessionResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type IntentRequest struct {
	Amount        int64  `json:"amount" validate:"required,gt=0" example:"16500"`
	Currency      string `json:"currency" validate:"omitempty,len=3" example:"usd"`
	Description   string `json:"description"`
	CustomerEmail string `json:"customerEmail" validate:"omitempty,email"`
	CustomerName  string `json:"customerName"`
}

type IntentResponse struct {
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`
	CustomerID      string `json:"customerId"`
}

type OrderResponse struct {
	OrderID string `json:"orderId"`
}

// HandleCreateCheckoutSession opens a hosted card payment page
// @Summary      Create a card checkout session
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request  body      SessionRequest  true  "Session details"
// @Success      200      {object}  APIResponse{data=SessionResponse}
// @Failure      400      {object}  APIResponse
// @Failure      502      {object}  APIResponse
// @Router       /api/create-checkout-session [post]
func (h *Handler) HandleCreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := h.decode(r, &req); err != nil {
		respondWithError(w, err)
		return
	}

	session, err := h.payments.CreateCheckoutSession(r.Context(), domain.SessionRequest{
		BookingID:     req.BookingID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Description:   req.Description,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		Locale:        req.Locale,
	})
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, SessionResponse{SessionID: session.ID, URL: session.URL})
}

// HandleCreatePaymentIntent creates a card payment intent for client-side confirmation
// @Summary      Create a payment intent
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request  body      IntentRequest  true  "Intent details"
// @Success      200      {object}  APIResponse{data=IntentResponse}
// @Failure      400      {object}  APIResponse
// @Failure      502      {object}  APIResponse
// @Router       /api/create-payment-intent [post]
func (h *Handler) HandleCreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req IntentRequest
	if err := h.decode(r, &req); err != nil {
		respondWithError(w, err)
		return
	}

	intent, err := h.payments.CreatePaymentIntent(r.Context(), domain.IntentRequest{
		Amount:        req.Amount,
		Currency:      req.Currency,
		Description:   req.Description,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
	})
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, IntentResponse{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		CustomerID:      intent.CustomerID,
	})
}

// HandleCreateWalletOrder opens a wallet order for a booking awaiting payment
// @Summary      Create a wallet order
// @Tags         payments
// @Produce      json
// @Param        bookingId  path      string  true  "Booking ID"  format(uuid)
// @Success      200        {object}  APIResponse{data=OrderResponse}
// @Success      204        "Booking not found or no longer awaiting payment"
// @Failure      502        {object}  APIResponse
// @Router       /api/create-paypal-order/{bookingId} [post]
func (h *Handler) HandleCreateWalletOrder(w http.ResponseWriter, r *http.Request) {
	bookingID, err := pathUUID(r, "bookingId")
	if err != nil {
		respondWithError(w, err)
		return
	}

	order, err := h.payments.CreateWalletOrder(r.Context(), bookingID)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, OrderResponse{OrderID: order.ID})
}
