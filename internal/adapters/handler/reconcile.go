package handler

import (
	"net/http"

	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/DanielPopoola/car-rental-engine/internal/core/service"
	"github.com/google/uuid"
)

type ReconcileResponse struct {
	BookingID uuid.UUID        `json:"bookingId"`
	Status    string           `json:"status"`
	Booking   *BookingResponse `json:"booking,omitempty"`
}

// respondWithResult maps a reconciliation outcome onto the poll contract:
// confirmed is 200, nothing to confirm is 204 and anything unpaid is 400
// carrying the gateway's status.
func respondWithResult(w http.ResponseWriter, result *service.Result) {
	switch result.Outcome {
	case service.OutcomeConfirmed:
		respondWithJSON(w, http.StatusOK, ReconcileResponse{
			BookingID: result.BookingID,
			Status:    result.GatewayStatus,
			Booking:   newBookingResponse(result.Booking),
		})
	case service.OutcomeNotFound:
		respondWithJSON(w, http.StatusNoContent, nil)
	case service.OutcomeRejected:
		respondWithJSON(w, http.StatusBadRequest, &APIError{
			Code:    domain.ErrCodePaymentRejected,
			Message: "payment was rejected by the gateway",
			Status:  result.GatewayStatus,
		})
	default:
		respondWithJSON(w, http.StatusBadRequest, &APIError{
			Code:    domain.ErrCodePaymentNotCompleted,
			Message: "payment not completed yet",
			Status:  result.GatewayStatus,
		})
	}
}

// HandleCheckCheckoutSession confirms a card booking once its session is paid
// @Summary      Poll a card checkout session
// @Description  Idempotent. The first successful poll confirms the booking; later polls return 204.
// @Tags         reconciliation
// @Produce      json
// @Param        sessionId  path      string  true  "Checkout session ID"
// @Success      200        {object}  APIResponse{data=ReconcileResponse}
// @Success      204        "No booking is awaiting this session"
// @Failure      400        {object}  APIResponse  "Payment not completed or rejected"
// @Failure      502        {object}  APIResponse
// @Router       /api/check-checkout-session/{sessionId} [post]
func (h *Handler) HandleCheckCheckoutSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathString(r, "sessionId")
	if err != nil {
		respondWithError(w, err)
		return
	}

	result, err := h.reconcile.CheckCheckoutSession(r.Context(), sessionID)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithResult(w, result)
}

// HandleCheckOrder confirms a wallet booking once its order is approved
// @Summary      Poll a wallet order
// @Tags         reconciliation
// @Produce      json
// @Param        bookingId  path      string  true  "Booking ID"  format(uuid)
// @Param        orderId    path      string  true  "Wallet order ID"
// @Success      200        {object}  APIResponse{data=ReconcileResponse}
// @Success      204        "No booking is awaiting this order"
// @Failure      400        {object}  APIResponse  "Order not approved, error.status holds the order status"
// @Failure      502        {object}  APIResponse
// @Router       /api/check-order/{bookingId}/{orderId} [post]
func (h *Handler) HandleCheckOrder(w http.ResponseWriter, r *http.Request) {
	bookingID, err := pathUUID(r, "bookingId")
	if err != nil {
		respondWithError(w, err)
		return
	}

	orderID, err := pathString(r, "orderId")
	if err != nil {
		respondWithError(w, err)
		return
	}

	result, err := h.reconcile.CheckOrder(r.Context(), bookingID, orderID)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithResult(w, result)
}

// HandleDeleteTempBooking removes an abandoned booking that is still awaiting payment
// @Summary      Delete a temporary booking
// @Tags         reconciliation
// @Param        bookingId  path  string  true  "Booking ID"  format(uuid)
// @Param        sessionId  path  string  true  "Checkout session ID"
// @Success      200        {object}  APIResponse
// @Success      204        "No matching temporary booking"
// @Router       /api/delete-temp-booking/{bookingId}/{sessionId} [delete]
func (h *Handler) HandleDeleteTempBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := pathUUID(r, "bookingId")
	if err != nil {
		respondWithError(w, err)
		return
	}

	sessionID, err := pathString(r, "sessionId")
	if err != nil {
		respondWithError(w, err)
		return
	}

	if err := h.bookings.DeleteTempBooking(r.Context(), bookingID, sessionID); err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]uuid.UUID{"bookingId": bookingID})
}
