package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/DanielPopoola/car-rental-engine/internal/core/service"
	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
)

type CheckoutService interface {
	Checkout(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error)
}

type PaymentService interface {
	CreateCheckoutSession(ctx context.Context, req domain.SessionRequest) (*domain.Session, error)
	CreatePaymentIntent(ctx context.Context, req domain.IntentRequest) (*domain.PaymentIntent, error)
	CreateWalletOrder(ctx context.Context, bookingID uuid.UUID) (*domain.Session, error)
}

type ReconciliationService interface {
	CheckCheckoutSession(ctx context.Context, sessionID string) (*service.Result, error)
	CheckOrder(ctx context.Context, bookingID uuid.UUID, orderID string) (*service.Result, error)
}

type TransitionService interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	Create(ctx context.Context, in service.AdminBookingInput) (*domain.Booking, error)
	Update(ctx context.Context, in service.AdminBookingInput) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, ids []uuid.UUID, status domain.BookingStatus) (int64, error)
	RequestCancellation(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	Delete(ctx context.Context, ids []uuid.UUID) (int64, error)
	DeleteTempBooking(ctx context.Context, id uuid.UUID, sessionID string) error
}

type NotificationService interface {
	List(ctx context.Context, userID uuid.UUID, page, size int) ([]*domain.Notification, error)
	GetCounter(ctx context.Context, userID uuid.UUID) (*domain.NotificationCounter, error)
	MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (*domain.NotificationCounter, error)
}

type Handler struct {
	checkout      CheckoutService
	payments      PaymentService
	reconcile     ReconciliationService
	bookings      TransitionService
	notifications NotificationService
	validate      *validator.Validate
}

func NewHandler(
	checkout CheckoutService,
	payments PaymentService,
	reconcile ReconciliationService,
	bookings TransitionService,
	notifications NotificationService,
) *Handler {
	return &Handler{
		checkout:      checkout,
		payments:      payments,
		reconcile:     reconcile,
		bookings:      bookings,
		notifications: notifications,
		validate:      validator.New(),
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/checkout", h.HandleCheckout)

	mux.HandleFunc("POST /api/create-checkout-session", h.HandleCreateCheckoutSession)
	mux.HandleFunc("POST /api/create-payment-intent", h.HandleCreatePaymentIntent)
	mux.HandleFunc("POST /api/create-paypal-order/{bookingId}", h.HandleCreateWalletOrder)

	mux.HandleFunc("POST /api/check-checkout-session/{sessionId}", h.HandleCheckCheckoutSession)
	mux.HandleFunc("POST /api/check-order/{bookingId}/{orderId}", h.HandleCheckOrder)
	mux.HandleFunc("DELETE /api/delete-temp-booking/{bookingId}/{sessionId}", h.HandleDeleteTempBooking)

	mux.HandleFunc("POST /api/bookings", h.HandleCreateBooking)
	mux.HandleFunc("PUT /api/bookings", h.HandleUpdateBooking)
	mux.HandleFunc("POST /api/bookings/status", h.HandleUpdateStatus)
	mux.HandleFunc("POST /api/bookings/delete", h.HandleDeleteBookings)
	mux.HandleFunc("POST /api/bookings/{id}/cancel", h.HandleRequestCancellation)
	mux.HandleFunc("GET /api/bookings/{id}", h.HandleGetBooking)
	mux.HandleFunc("DELETE /api/bookings/{id}", h.HandleDeleteBooking)

	mux.HandleFunc("GET /api/notifications/{userId}", h.HandleListNotifications)
	mux.HandleFunc("GET /api/notifications/{userId}/counter", h.HandleGetCounter)
	mux.HandleFunc("POST /api/notifications/{userId}/read", h.HandleMarkRead)

	mux.HandleFunc("GET /health", h.HandleHealth)
}

// HandleHealth reports liveness
// @Summary  Liveness probe
// @Tags     system
// @Produce  json
// @Success  200  {object}  APIResponse
// @Router   /health [get]
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads a JSON body into dst and runs struct validation on it.
func (h *Handler) decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return domain.NewValidationError("unable to read request body")
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return domain.NewValidationError(fmt.Sprintf("malformed request body: %v", err))
	}

	if err := h.validate.Struct(dst); err != nil {
		return domain.NewValidationError(err.Error())
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	var id uuid.UUID
	if err := bindPath(r, name, &id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func pathString(r *http.Request, name string) (string, error) {
	var v string
	if err := bindPath(r, name, &v); err != nil {
		return "", err
	}
	return v, nil
}

func bindPath(r *http.Request, name string, dst any) error {
	err := runtime.BindStyledParameterWithOptions("simple", name, r.PathValue(name), dst, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Required:      true,
	})
	if err != nil {
		return domain.NewValidationError(fmt.Sprintf("invalid path parameter %s: %v", name, err))
	}
	return nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := def
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		return 0, domain.NewValidationError(fmt.Sprintf("invalid query parameter %s: %v", name, err))
	}
	return v, nil
}
