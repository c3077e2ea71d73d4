// Package domain defines the booking engine's entities and lifecycle rules.
package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the wire-stable booking status.
type BookingStatus string

const (
	StatusVoid      BookingStatus = "void"
	StatusPending   BookingStatus = "pending"
	StatusDeposit   BookingStatus = "deposit"
	StatusPaid      BookingStatus = "paid"
	StatusReserved  BookingStatus = "reserved"
	StatusCancelled BookingStatus = "cancelled"
)

var allStatuses = []BookingStatus{
	StatusVoid,
	StatusPending,
	StatusDeposit,
	StatusPaid,
	StatusReserved,
	StatusCancelled,
}

// cancellable lists the statuses a customer may flag for cancellation.
var cancellable = []BookingStatus{StatusPending, StatusDeposit, StatusPaid, StatusReserved}

// ParseStatus converts a wire string into a BookingStatus.
func ParseStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !slices.Contains(allStatuses, status) {
		return "", NewInvalidStatusError(s)
	}
	return status, nil
}

func (s BookingStatus) IsCancellable() bool {
	return slices.Contains(cancellable, s)
}

// PaidStatus returns the status a confirmed payment resolves to.
func PaidStatus(isDeposit bool) BookingStatus {
	if isDeposit {
		return StatusDeposit
	}
	return StatusPaid
}

// Options are the extras a customer selected at checkout.
type Options struct {
	Cancellation          bool `json:"cancellation"`
	Amendments            bool `json:"amendments"`
	TheftProtection       bool `json:"theftProtection"`
	CollisionDamageWaiver bool `json:"collisionDamageWaiver"`
	FullInsurance         bool `json:"fullInsurance"`
	AdditionalDriver      bool `json:"additionalDriver"`
}

// PaymentRef ties a booking to gateway transactions. The ids survive
// confirmation and serve as the payment receipt reference.
type PaymentRef struct {
	SessionID     *string
	PayPalOrderID *string
	CustomerID    *string
	// IntentID settles at most one booking.
	IntentID *string
}

type Booking struct {
	ID                 uuid.UUID
	SupplierID         uuid.UUID
	CarID              uuid.UUID
	DriverID           uuid.UUID
	PickupLocationID   uuid.UUID
	DropOffLocationID  uuid.UUID
	AdditionalDriverID *uuid.UUID

	From time.Time
	To   time.Time

	Price     int64
	Options   Options
	IsDeposit bool

	Payment       PaymentRef
	Lifecycle     Lifecycle
	CancelRequest bool

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (b *Booking) Status() BookingStatus {
	return b.Lifecycle.Status()
}

// ExpireAt is the TTL deadline, non-nil only while awaiting payment.
func (b *Booking) ExpireAt() *time.Time {
	return b.Lifecycle.ExpireAt()
}

// HasAdditionalDriver reports whether a delete must cascade to an
// AdditionalDriver record. Both the flag and the reference must be set.
func (b *Booking) HasAdditionalDriver() bool {
	return b.Options.AdditionalDriver && b.AdditionalDriverID != nil
}

// CanRequestCancellation mirrors the guard used by the store's conditional update.
func (b *Booking) CanRequestCancellation() bool {
	return b.Options.Cancellation && !b.CancelRequest && b.Status().IsCancellable()
}

// ChargeAmount is what the gateway is asked to collect.
func (b *Booking) ChargeAmount(deposit int64) int64 {
	if b.IsDeposit && deposit > 0 {
		return deposit
	}
	return b.Price
}

// CanTransitionTo validates admin-initiated status changes. Void is reserved
// for the payment flow and cannot be entered or left by hand.
func (b *Booking) CanTransitionTo(target BookingStatus) error {
	if target == StatusVoid || b.Status() == StatusVoid {
		return NewInvalidTransitionError(b.Status(), target)
	}
	return nil
}

type AdditionalDriver struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	BirthDate time.Time `json:"birthDate"`
}
