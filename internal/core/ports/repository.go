package ports

import (
	"context"
	"time"

	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/google/uuid"
)

// Store groups the repositories that must share a transaction.
type Store interface {
	Bookings() BookingRepository
	Users() UserRepository
	Cars() CarRepository
	Notifications() NotificationRepository

	// WithTx executes fn within a database transaction. Repositories
	// obtained from the Store passed to fn share that transaction.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// BookingRepository persists bookings and their additional drivers.
// Lookups never return a void booking whose expireAt has passed.
type BookingRepository interface {
	CreateBooking(ctx context.Context, b *domain.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	FindTemporaryByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	FindTemporaryBySessionID(ctx context.Context, sessionID string) (*domain.Booking, error)

	// ResolveAwaiting moves a still-void booking to status and clears its
	// expiry in a single guarded statement. A booking that is gone or already
	// resolved yields a BOOKING_NOT_FOUND error.
	ResolveAwaiting(ctx context.Context, id uuid.UUID, status domain.BookingStatus, payPalOrderID *string) (*domain.Booking, error)
	SetPayPalOrderID(ctx context.Context, id uuid.UUID, orderID string) error

	// UpdateBooking writes content and status. When expectedVersion is
	// non-nil the write only applies to that version.
	UpdateBooking(ctx context.Context, b *domain.Booking, expectedVersion *int64) error

	// UpdateStatuses locks the listed non-void bookings, sets status on them
	// and returns every rewritten row with the status it had before.
	UpdateStatuses(ctx context.Context, ids []uuid.UUID, status domain.BookingStatus) ([]StatusChange, error)

	// RequestCancellation flips cancel_request once. It returns false when
	// the guard did not match.
	RequestCancellation(ctx context.Context, id uuid.UUID) (bool, error)

	// DeleteBookings removes the bookings and returns the deleted rows.
	DeleteBookings(ctx context.Context, ids []uuid.UUID) ([]*domain.Booking, error)
	DeleteAwaiting(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	DeleteTemporary(ctx context.Context, id uuid.UUID, sessionID string) (*domain.Booking, error)

	CreateAdditionalDriver(ctx context.Context, d *domain.AdditionalDriver) error
	UpdateAdditionalDriver(ctx context.Context, d *domain.AdditionalDriver) error
	FindAdditionalDriver(ctx context.Context, id uuid.UUID) (*domain.AdditionalDriver, error)
	DeleteAdditionalDrivers(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// StatusChange is a booking rewritten by a bulk status update.
type StatusChange struct {
	Booking  *domain.Booking
	Previous domain.BookingStatus
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *domain.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateToken(ctx context.Context, t *domain.Token) error
	ClearExpiry(ctx context.Context, id uuid.UUID) error
	// DeleteUnverifiedGuest removes the user only while it is unverified
	// and still carries an expiry.
	DeleteUnverifiedGuest(ctx context.Context, id uuid.UUID) (bool, error)
	PushTokens(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type CarRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Car, error)
	IncrementTrips(ctx context.Context, id uuid.UUID) error
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *domain.Notification) error
	IncrementCounter(ctx context.Context, userID uuid.UUID) error
	DecrementCounter(ctx context.Context, userID uuid.UUID, by int64) error
	GetCounter(ctx context.Context, userID uuid.UUID) (*domain.NotificationCounter, error)
	ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error)
}

// SweepResult reports what one TTL pass removed.
type SweepResult struct {
	Bookings          int64
	AdditionalDrivers int64
	Users             int64
	RanAt             time.Time
}

// Sweeper physically removes expired void bookings and unverified guests.
type Sweeper interface {
	Sweep(ctx context.Context) (*SweepResult, error)
}
