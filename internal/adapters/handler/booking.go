package handler

import (
	"net/http"
	"time"

	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/DanielPopoola/car-rental-engine/internal/core/service"
	"github.com/google/uuid"
)

type BookingRequest struct {
	ID                uuid.UUID                `json:"id"`
	SupplierID        uuid.UUID                `json:"supplierId" validate:"required"`
	CarID             uuid.UUID                `json:"carId" validate:"required"`
	DriverID          uuid.UUID                `json:"driverId" validate:"required"`
	PickupLocationID  uuid.UUID                `json:"pickupLocationId" validate:"required"`
	DropOffLocationID uuid.UUID                `json:"dropOffLocationId" validate:"required"`
	From              time.Time                `json:"from" validate:"required"`
	To                time.Time                `json:"to" validate:"required"`
	Price             int64                    `json:"price" validate:"gte=0" example:"16500"`
	Options           domain.Options           `json:"options"`
	IsDeposit         bool                     `json:"isDeposit"`
	Status            string                   `json:"status" validate:"required,oneof=pending deposit paid reserved cancelled" example:"reserved"`
	CancelRequest     bool                     `json:"cancelRequest"`
	AdditionalDriver  *AdditionalDriverRequest `json:"additionalDriver"`
	Version           *int64                   `json:"version"`
}

type StatusRequest struct {
	IDs    []uuid.UUID `json:"ids" validate:"required,min=1"`
	Status string      `json:"status" validate:"required,oneof=pending deposit paid reserved cancelled" example:"cancelled"`
}

type DeleteRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1"`
}

type AffectedResponse struct {
	Affected int64 `json:"affected"`
}

type BookingResponse struct {
	ID                 uuid.UUID      `json:"id"`
	SupplierID         uuid.UUID      `json:"supplierId"`
	CarID              uuid.UUID      `json:"carId"`
	DriverID           uuid.UUID      `json:"driverId"`
	PickupLocationID   uuid.UUID      `json:"pickupLocationId"`
	DropOffLocationID  uuid.UUID      `json:"dropOffLocationId"`
	AdditionalDriverID *uuid.UUID     `json:"additionalDriverId,omitempty"`
	From               time.Time      `json:"from"`
	To                 time.Time      `json:"to"`
	Price              int64          `json:"price"`
	Options            domain.Options `json:"options"`
	IsDeposit          bool           `json:"isDeposit"`
	Status             string         `json:"status"`
	ExpireAt           *time.Time     `json:"expireAt,omitempty"`
	CancelRequest      bool           `json:"cancelRequest"`
	SessionID          *string        `json:"sessionId,omitempty"`
	PayPalOrderID      *string        `json:"paypalOrderId,omitempty"`
	CustomerID         *string        `json:"customerId,omitempty"`
	PaymentIntentID    *string        `json:"paymentIntentId,omitempty"`
	Version            int64          `json:"version"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

func newBookingResponse(b *domain.Booking) *BookingResponse {
	if b == nil {
		return nil
	}
	return &BookingResponse{
		ID:                 b.ID,
		SupplierID:         b.SupplierID,
		CarID:              b.CarID,
		DriverID:           b.DriverID,
		PickupLocationID:   b.PickupLocationID,
		DropOffLocationID:  b.DropOffLocationID,
		AdditionalDriverID: b.AdditionalDriverID,
		From:               b.From,
		To:                 b.To,
		Price:              b.Price,
		Options:            b.Options,
		IsDeposit:          b.IsDeposit,
		Status:             string(b.Status()),
		ExpireAt:           b.ExpireAt(),
		CancelRequest:      b.CancelRequest,
		SessionID:          b.Payment.SessionID,
		PayPalOrderID:      b.Payment.PayPalOrderID,
		CustomerID:         b.Payment.CustomerID,
		PaymentIntentID:    b.Payment.IntentID,
		Version:            b.Version,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func (req BookingRequest) toService() service.AdminBookingInput {
	return service.AdminBookingInput{
		ID:                req.ID,
		SupplierID:        req.SupplierID,
		CarID:             req.CarID,
		DriverID:          req.DriverID,
		PickupLocationID:  req.PickupLocationID,
		DropOffLocationID: req.DropOffLocationID,
		From:              req.From,
		To:                req.To,
		Price:             req.Price,
		Options:           req.Options,
		IsDeposit:         req.IsDeposit,
		Status:            domain.BookingStatus(req.Status),
		CancelRequest:     req.CancelRequest,
		AdditionalDriver:  req.AdditionalDriver.toDomain(),
		Version:           req.Version,
	}
}

// HandleCreateBooking stores a booking on behalf of an admin
// @Summary      Create a booking
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Param        request  body      BookingRequest  true  "Booking content"
// @Success      200      {object}  APIResponse{data=BookingResponse}
// @Failure      400      {object}  APIResponse
// @Router       /api/bookings [post]
func (h *Handler) HandleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req BookingRequest
	if err := h.decode(r, &req); err != nil {
		respondWithError(w, err)
		return
	}

	b, err := h.bookings.Create(r.Context(), req.toService())
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, newBookingResponse(b))
}

// HandleUpdateBooking edits a booking
// @Summary      Update a booking
// @Description  When version is sent it must match the stored version, otherwise 409 is returned.
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Param        request  body      BookingRequest  true  "Booking content"
// @Success      200      {object}  APIResponse{data=BookingResponse}
// @Success      204      "Booking not found"
// @Failure      400      {object}  APIResponse
// @Failure      409      {object}  APIResponse  "Booking changed since the given version"
// @Router       /api/bookings [put]
func (h *Handler) HandleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	var req BookingRequest
	if err := h.decode(r, &req); err != nil {
		respondWithError(w, err)
		return
	}

	b, err := h.bookings.Update(r.Context(), req.toService())
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, newBookingResponse(b))
}

// HandleUpdateStatus changes the status of several bookings
// @Summary      Bulk status change
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Param        request  body      StatusRequest  true  "Bookings and target status"
// @Success      200      {object}  APIResponse{data=AffectedResponse}
// @Failure      400      {object}  APIResponse
// @Router       /api/bookings/status [post]
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := h.decode(r, &req); err != nil {
		respondWithError(w, err)
		return
	}

	affected, err := h.bookings.UpdateStatus(r.Context(), req.IDs, domain.BookingStatus(req.Status))
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, AffectedResponse{Affected: affected})
}

// HandleRequestCancellation flags a booking for cancellation
// @Summary      Request cancellation
// @Tags         bookings
// @Produce      json
// @Param        id   path      string  true  "Booking ID"  format(uuid)
// @Success      200  {object}  APIResponse{data=BookingResponse}
// @Success      204  "Booking not found"
// @Failure      400  {object}  APIResponse  "Cancellation not allowed"
// @Router       /api/bookings/{id}/cancel [post]
func (h *Handler) HandleRequestCancellation(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondWithError(w, err)
		return
	}

	b, err := h.bookings.RequestCancellation(r.Context(), id)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, newBookingResponse(b))
}

// HandleGetBooking returns one booking
// @Summary      Get a booking
// @Tags         bookings
// @Produce      json
// @Param        id   path      string  true  "Booking ID"  format(uuid)
// @Success      200  {object}  APIResponse{data=BookingResponse}
// @Success      204  "Booking not found or expired"
// @Router       /api/bookings/{id} [get]
func (h *Handler) HandleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondWithError(w, err)
		return
	}

	b, err := h.bookings.Get(r.Context(), id)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, newBookingResponse(b))
}

// HandleDeleteBooking removes one booking
// @Summary      Delete a booking
// @Tags         bookings
// @Param        id   path      string  true  "Booking ID"  format(uuid)
// @Success      200  {object}  APIResponse{data=AffectedResponse}
// @Success      204  "Booking not found"
// @Router       /api/bookings/{id} [delete]
func (h *Handler) HandleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondWithError(w, err)
		return
	}

	deleted, err := h.bookings.Delete(r.Context(), []uuid.UUID{id})
	if err != nil {
		respondWithError(w, err)
		return
	}
	if deleted == 0 {
		respondWithJSON(w, http.StatusNoContent, nil)
		return
	}

	respondWithJSON(w, http.StatusOK, AffectedResponse{Affected: deleted})
}

// HandleDeleteBookings removes several bookings
// @Summary      Bulk delete
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Param        request  body      DeleteRequest  true  "Bookings to delete"
// @Success      200      {object}  APIResponse{data=AffectedResponse}
// @Failure      400      {object}  APIResponse
// @Router       /api/bookings/delete [post]
func (h *Handler) HandleDeleteBookings(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := h.decode(r, &req); err != nil {
		respondWithError(w, err)
		return
	}

	deleted, err := h.bookings.Delete(r.Context(), req.IDs)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, AffectedResponse{Affected: deleted})
}
