package handler

import (
	"net/http"
	"time"

	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/DanielPopoola/car-rental-engine/internal/core/service"
	"github.com/google/uuid"
)

type GuestDriverRequest struct {
	Email     string     `json:"email" validate:"required,email" example:"jane@example.com"`
	FullName  string     `json:"fullName" validate:"required" example:"Jane Doe"`
	Phone     string     `json:"phone" example:"+15550100"`
	Language  string     `json:"language" validate:"omitempty,len=2" example:"en"`
	BirthDate *time.Time `json:"birthDate"`
}

type AdditionalDriverRequest struct {
	FullName  string    `json:"fullName" validate:"required"`
	Email     string    `json:"email" validate:"omitempty,email"`
	Phone     string    `json:"phone"`
	BirthDate time.Time `json:"birthDate"`
}

type CheckoutBookingRequest struct {
	SupplierID        uuid.UUID      `json:"supplierId" validate:"required"`
	CarID             uuid.UUID      `json:"carId" validate:"required"`
	PickupLocationID  uuid.UUID      `json:"pickupLocationId" validate:"required"`
	DropOffLocationID uuid.UUID      `json:"dropOffLocationId" validate:"required"`
	From              time.Time      `json:"from" validate:"required"`
	To                time.Time      `json:"to" validate:"required"`
	Options           domain.Options `json:"options"`
	IsDeposit         bool           `json:"isDeposit"`
}

type CheckoutRequest struct {
	DriverID         *uuid.UUID               `json:"driverId"`
	Driver           *GuestDriverRequest      `json:"driver"`
	Booking          CheckoutBookingRequest   `json:"booking"`
	AdditionalDriver *AdditionalDriverRequest `json:"additionalDriver"`
	License          *string                  `json:"license"`
	PayLater         bool                     `json:"payLater"`
	PaymentIntentID  *string                  `json:"paymentIntentId"`
	SessionID        *string                  `json:"sessionId"`
	PaymentMethod    string                   `json:"paymentMethod" validate:"omitempty,oneof=card wallet" example:"card"`
}

type CheckoutResponse struct {
	BookingID  uuid.UUID  `json:"bookingId"`
	Status     string     `json:"status"`
	ExpireAt   *time.Time `json:"expireAt,omitempty"`
	SessionID  *string    `json:"sessionId,omitempty"`
	SessionURL *string    `json:"sessionUrl,omitempty"`
}

func (req CheckoutRequest) toService() service.CheckoutRequest {
	out := service.CheckoutRequest{
		DriverID: req.DriverID,
		Booking: service.CheckoutBooking{
			SupplierID:        req.Booking.SupplierID,
			CarID:             req.Booking.CarID,
			PickupLocationID:  req.Booking.PickupLocationID,
			DropOffLocationID: req.Booking.DropOffLocationID,
			From:              req.Booking.From,
			To:                req.Booking.To,
			Options:           req.Booking.Options,
			IsDeposit:         req.Booking.IsDeposit,
		},
		AdditionalDriver: req.AdditionalDriver.toDomain(),
		License:          req.License,
		PayLater:         req.PayLater,
		PaymentIntentID:  req.PaymentIntentID,
		SessionID:        req.SessionID,
		PaymentMethod:    service.PaymentMethod(req.PaymentMethod),
	}
	if req.Driver != nil {
		out.Driver = &service.GuestDriver{
			Email:     req.Driver.Email,
			FullName:  req.Driver.FullName,
			Phone:     req.Driver.Phone,
			Language:  req.Driver.Language,
			BirthDate: req.Driver.BirthDate,
		}
	}
	return out
}

func (d *AdditionalDriverRequest) toDomain() *domain.AdditionalDriver {
	if d == nil {
		return nil
	}
	return &domain.AdditionalDriver{
		FullName:  d.FullName,
		Email:     d.Email,
		Phone:     d.Phone,
		BirthDate: d.BirthDate,
	}
}

// HandleCheckout creates a booking and starts its payment
// @Summary      Checkout a booking
// @Description  Prices the rental server-side, stores the booking and opens the payment flow selected by the request.
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        request  body      CheckoutRequest  true  "Booking and payment details"
// @Success      200      {object}  APIResponse{data=CheckoutResponse}
// @Success      204      "Supplier or driver not found"
// @Failure      400      {object}  APIResponse
// @Failure      502      {object}  APIResponse  "Payment gateway unavailable"
// @Router       /api/checkout [post]
func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := h.decode(r, &req); err != nil {
		respondWithError(w, err)
		return
	}

	result, err := h.checkout.Checkout(r.Context(), req.toService())
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, CheckoutResponse{
		BookingID:  result.BookingID,
		Status:     string(result.Status),
		ExpireAt:   result.ExpireAt,
		SessionID:  result.SessionID,
		SessionURL: result.SessionURL,
	})
}
