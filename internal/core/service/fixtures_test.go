package service

import (
	"context"
	"testing"
	"time"

	"github.com/DanielPopoola/car-rental-engine/internal/config"
	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type fixture struct {
	store    *memStore
	card     *MockCardGateway
	wallet   *MockWalletGateway
	notifier *recordingNotifier

	supplier *domain.User
	admin    *domain.User
	driver   *domain.User
	car      *domain.Car

	checkout   *CheckoutService
	reconcile  *ReconciliationService
	transition *TransitionService
	payments   *PaymentService
}

var bookingConfig = config.BookingConfig{ExpireAt: 900, SweepInterval: time.Minute, Currency: "usd"}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    newMemStore(),
		card:     &MockCardGateway{},
		wallet:   &MockWalletGateway{},
		notifier: &recordingNotifier{},
	}

	f.supplier = &domain.User{
		ID:       uuid.New(),
		Email:    "fleet@supplier.example.com",
		FullName: "Fleet Supplier",
		Type:     domain.UserTypeSupplier,
		Verified: true,
		PayLater: true,
	}
	f.admin = &domain.User{
		ID:       uuid.New(),
		Email:    "admin@rental.example.com",
		FullName: "Admin",
		Type:     domain.UserTypeAdmin,
		Verified: true,
	}
	license := "DL-123456"
	f.driver = &domain.User{
		ID:       uuid.New(),
		Email:    "jane@example.com",
		FullName: "Jane Driver",
		Language: "en",
		Type:     domain.UserTypeUser,
		Verified: true,
		License:  &license,
	}
	f.car = &domain.Car{
		ID:                    uuid.New(),
		SupplierID:            f.supplier.ID,
		Name:                  "Compact Hatchback",
		DailyPrice:            5000,
		Deposit:               10000,
		Cancellation:          1500,
		Amendments:            domain.OptionUnavailable,
		TheftProtection:       300,
		CollisionDamageWaiver: 0,
		FullInsurance:         900,
		AdditionalDriver:      500,
	}

	f.store.addUser(f.supplier)
	f.store.addUser(f.admin)
	f.store.addUser(f.driver)
	f.store.addCar(f.car)

	logger := zerolog.Nop()
	f.checkout = NewCheckoutService(f.store, f.card, f.notifier, bookingConfig, logger)
	f.reconcile = NewReconciliationService(f.store, f.card, f.wallet, f.notifier, logger)
	f.transition = NewTransitionService(f.store, f.notifier, logger)
	f.payments = NewPaymentService(f.store, f.card, f.wallet, bookingConfig.Currency)

	return f
}

func (f *fixture) cart() CheckoutBooking {
	from := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	return CheckoutBooking{
		SupplierID:        f.supplier.ID,
		CarID:             f.car.ID,
		PickupLocationID:  uuid.New(),
		DropOffLocationID: uuid.New(),
		From:              from,
		To:                from.Add(72 * time.Hour),
		Options:           domain.Options{Cancellation: true},
	}
}

func (f *fixture) request() CheckoutRequest {
	driverID := f.driver.ID
	return CheckoutRequest{
		DriverID:      &driverID,
		Booking:       f.cart(),
		PaymentMethod: PaymentMethodCard,
	}
}

// awaiting stores a void booking for the fixture driver.
func (f *fixture) awaiting(sessionID string, deadline time.Time) *domain.Booking {
	cart := f.cart()
	b := &domain.Booking{
		ID:                uuid.New(),
		SupplierID:        f.supplier.ID,
		CarID:             f.car.ID,
		DriverID:          f.driver.ID,
		PickupLocationID:  cart.PickupLocationID,
		DropOffLocationID: cart.DropOffLocationID,
		From:              cart.From,
		To:                cart.To,
		Price:             16500,
		Options:           cart.Options,
		Lifecycle:         domain.AwaitingPayment(deadline),
	}
	if sessionID != "" {
		b.Payment.SessionID = &sessionID
	}
	f.store.putBooking(b)
	return b
}

// walletAwaiting stores a void booking with orderID attached, as
// CreateWalletOrder leaves it.
func (f *fixture) walletAwaiting(orderID string, deadline time.Time) *domain.Booking {
	b := f.awaiting("", deadline)
	b.Payment.PayPalOrderID = &orderID
	f.store.putBooking(b)
	return b
}

// orderFor answers order lookups with state and a reference to b.
func orderFor(b *domain.Booking, state domain.SessionState, status string) func(context.Context, string) (*domain.SessionStatus, error) {
	return func(ctx context.Context, id string) (*domain.SessionStatus, error) {
		return &domain.SessionStatus{ID: id, State: state, Status: status, Reference: b.ID.String()}, nil
	}
}

// succeededIntent makes every payment intent lookup report a completed
// charge of amount.
func (f *fixture) succeededIntent(amount int64) {
	f.card.RetrievePaymentIntentFn = func(ctx context.Context, id string) (*domain.PaymentIntent, error) {
		return &domain.PaymentIntent{ID: id, CustomerID: "cus_test", Status: domain.IntentSucceeded, Amount: amount}, nil
	}
}

// resolved stores a booking in a durable status.
func (f *fixture) resolved(status domain.BookingStatus, opts domain.Options) *domain.Booking {
	cart := f.cart()
	b := &domain.Booking{
		ID:                uuid.New(),
		SupplierID:        f.supplier.ID,
		CarID:             f.car.ID,
		DriverID:          f.driver.ID,
		PickupLocationID:  cart.PickupLocationID,
		DropOffLocationID: cart.DropOffLocationID,
		From:              cart.From,
		To:                cart.To,
		Price:             15000,
		Options:           opts,
		Lifecycle:         domain.MustResolved(status),
	}
	f.store.putBooking(b)
	return b
}

// guest stores an unverified guest driver whose expiry mirrors deadline.
func (f *fixture) guest(deadline time.Time) *domain.User {
	u := domain.NewGuestDriver(uuid.NewString()+"@guest.example.com", "Guest Driver", "", "en", nil, nil)
	u.ExpireAt = &deadline
	f.store.addUser(u)
	return u
}

func ptr[T any](v T) *T {
	return &v
}
