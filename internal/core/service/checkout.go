package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/DanielPopoola/car-rental-engine/internal/adapters/gateway"
	"github.com/DanielPopoola/car-rental-engine/internal/config"
	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/DanielPopoola/car-rental-engine/internal/core/ports"
	"github.com/DanielPopoola/car-rental-engine/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodWallet PaymentMethod = "wallet"
)

// GuestDriver is the inline profile of a driver without an account.
type GuestDriver struct {
	Email     string
	FullName  string
	Phone     string
	Language  string
	BirthDate *time.Time
}

type CheckoutBooking struct {
	SupplierID        uuid.UUID
	CarID             uuid.UUID
	PickupLocationID  uuid.UUID
	DropOffLocationID uuid.UUID
	From              time.Time
	To                time.Time
	Options           domain.Options
	IsDeposit         bool
}

// CheckoutRequest carries either DriverID or Driver. When paying now at most
// one of PaymentIntentID and SessionID is set; with neither, PaymentMethod
// decides which gateway flow is opened.
type CheckoutRequest struct {
	DriverID         *uuid.UUID
	Driver           *GuestDriver
	Booking          CheckoutBooking
	AdditionalDriver *domain.AdditionalDriver
	License          *string
	PayLater         bool
	PaymentIntentID  *string
	SessionID        *string
	PaymentMethod    PaymentMethod
}

type CheckoutResult struct {
	BookingID  uuid.UUID
	Status     domain.BookingStatus
	ExpireAt   *time.Time
	SessionID  *string
	SessionURL *string
}

type CheckoutService struct {
	store    ports.Store
	card     ports.CardGateway
	notifier ports.Notifier
	confirm  *confirmer
	ttl      time.Duration
	currency string
	logger   zerolog.Logger
	now      func() time.Time
}

func NewCheckoutService(store ports.Store, card ports.CardGateway, notifier ports.Notifier, cfg config.BookingConfig, logger zerolog.Logger) *CheckoutService {
	logger = logger.With().Str("component", "checkout").Logger()
	return &CheckoutService{
		store:    store,
		card:     card,
		notifier: notifier,
		confirm:  &confirmer{store: store, notifier: notifier, logger: logger},
		ttl:      cfg.TTL(),
		currency: cfg.Currency,
		logger:   logger,
		now:      time.Now,
	}
}

// checkoutPlan is everything resolved before the first write.
type checkoutPlan struct {
	supplier *domain.User
	car      *domain.Car
	driver   *domain.User
	guest    bool
	token    *domain.Token
	booking  *domain.Booking
	session  *domain.Session
}

func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	plan, err := s.plan(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.decidePayment(ctx, req, plan); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, req, plan); err != nil {
		return nil, err
	}

	s.afterCommit(ctx, req, plan)

	b := plan.booking
	metrics.IncCheckout(string(b.Status()))
	s.logger.Info().
		Str("booking_id", b.ID.String()).
		Str("status", string(b.Status())).
		Bool("guest", plan.guest).
		Msg("checkout completed")

	result := &CheckoutResult{
		BookingID: b.ID,
		Status:    b.Status(),
		ExpireAt:  b.ExpireAt(),
		SessionID: b.Payment.SessionID,
	}
	if plan.session != nil {
		url := plan.session.URL
		result.SessionURL = &url
	}
	return result, nil
}

func (s *CheckoutService) validate(req CheckoutRequest) error {
	if req.Booking.SupplierID == uuid.Nil || req.Booking.CarID == uuid.Nil {
		return domain.NewValidationError("booking supplier and car are required")
	}
	if req.Booking.PickupLocationID == uuid.Nil || req.Booking.DropOffLocationID == uuid.Nil {
		return domain.NewValidationError("pickup and drop-off locations are required")
	}
	if !req.Booking.To.After(req.Booking.From) {
		return domain.NewValidationError("rental end must be after start")
	}

	if req.DriverID == nil {
		if req.Driver == nil {
			return domain.NewValidationError("driver id or driver profile is required")
		}
		if strings.TrimSpace(req.Driver.Email) == "" || strings.TrimSpace(req.Driver.FullName) == "" {
			return domain.NewValidationError("driver email and full name are required")
		}
	}

	if req.PaymentIntentID != nil && req.SessionID != nil {
		return domain.NewValidationError("paymentIntentId and sessionId are mutually exclusive")
	}
	if req.PayLater && (req.PaymentIntentID != nil || req.SessionID != nil) {
		return domain.NewValidationError("pay later cannot carry a payment reference")
	}
	if !req.PayLater && req.PaymentIntentID == nil && req.SessionID == nil {
		switch req.PaymentMethod {
		case PaymentMethodCard, PaymentMethodWallet:
		default:
			return domain.NewValidationError("paymentMethod must be card or wallet")
		}
	}
	return nil
}

// plan loads the referenced records and checks every precondition. Nothing
// is written here.
func (s *CheckoutService) plan(ctx context.Context, req CheckoutRequest) (*checkoutPlan, error) {
	users := s.store.Users()

	supplier, err := users.FindByID(ctx, req.Booking.SupplierID)
	if err != nil {
		if domain.IsErrorCode(err, domain.ErrCodeUserNotFound) {
			return nil, domain.NewSupplierNotFoundError(req.Booking.SupplierID.String())
		}
		return nil, err
	}
	if supplier.Type != domain.UserTypeSupplier {
		return nil, domain.NewSupplierNotFoundError(req.Booking.SupplierID.String())
	}

	car, err := s.store.Cars().FindByID(ctx, req.Booking.CarID)
	if err != nil {
		return nil, err
	}
	if car.SupplierID != supplier.ID {
		return nil, domain.NewValidationError("car does not belong to supplier")
	}

	plan := &checkoutPlan{supplier: supplier, car: car}

	if req.DriverID != nil {
		driver, err := users.FindByID(ctx, *req.DriverID)
		if err != nil {
			if domain.IsErrorCode(err, domain.ErrCodeUserNotFound) {
				return nil, domain.NewDriverNotFoundError(req.DriverID.String())
			}
			return nil, err
		}
		plan.driver = driver
	} else {
		email := strings.ToLower(strings.TrimSpace(req.Driver.Email))
		if _, err := users.FindByEmail(ctx, email); err == nil {
			return nil, domain.NewDuplicateEmailError(email)
		} else if !domain.IsErrorCode(err, domain.ErrCodeUserNotFound) {
			return nil, err
		}

		plan.driver = domain.NewGuestDriver(
			email,
			strings.TrimSpace(req.Driver.FullName),
			req.Driver.Phone,
			req.Driver.Language,
			req.Driver.BirthDate,
			nonEmpty(req.License),
		)
		plan.guest = true
	}

	if supplier.LicenseRequired && !plan.driver.HasLicense() && nonEmpty(req.License) == nil {
		return nil, domain.NewLicenseRequiredError(supplier.ID.String())
	}

	price, err := domain.ComputePrice(car, req.Booking.From, req.Booking.To, req.Booking.Options)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	plan.booking = &domain.Booking{
		ID:                uuid.New(),
		SupplierID:        supplier.ID,
		CarID:             car.ID,
		DriverID:          plan.driver.ID,
		PickupLocationID:  req.Booking.PickupLocationID,
		DropOffLocationID: req.Booking.DropOffLocationID,
		From:              req.Booking.From.UTC(),
		To:                req.Booking.To.UTC(),
		Price:             price,
		Options:           req.Booking.Options,
		IsDeposit:         req.Booking.IsDeposit,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	return plan, nil
}

// decidePayment sets the initial lifecycle. A card session is opened here,
// before the transaction; if the write later fails the session simply
// expires at the gateway.
func (s *CheckoutService) decidePayment(ctx context.Context, req CheckoutRequest, plan *checkoutPlan) error {
	b := plan.booking
	deadline := s.now().Add(s.ttl)

	switch {
	case req.PayLater:
		if !plan.supplier.PayLater {
			return domain.NewPayLaterNotAllowedError(plan.supplier.ID.String())
		}
		b.Lifecycle = domain.MustResolved(domain.StatusPending)

	case req.PaymentIntentID != nil:
		intent, err := s.card.RetrievePaymentIntent(ctx, *req.PaymentIntentID)
		if err != nil {
			if gateway.IsNotFound(err) || gateway.IsTimeout(err) {
				return domain.NewPaymentNotCompletedError(*req.PaymentIntentID)
			}
			return domain.NewGatewayUnavailableError(err)
		}
		if intent.Status != domain.IntentSucceeded {
			return domain.NewPaymentNotCompletedError(intent.ID)
		}
		if charge := b.ChargeAmount(plan.car.Deposit); intent.Amount != charge {
			s.logger.Warn().Str("intent_id", intent.ID).Int64("amount", intent.Amount).Int64("charge", charge).
				Msg("payment intent amount does not match booking")
			return domain.NewValidationError("payment intent amount does not match booking charge")
		}
		intentID := *req.PaymentIntentID
		b.Payment.IntentID = &intentID
		b.Lifecycle = domain.MustResolved(domain.PaidStatus(b.IsDeposit))
		if intent.CustomerID != "" {
			customerID := intent.CustomerID
			b.Payment.CustomerID = &customerID
		}

	case req.SessionID != nil:
		sessionID := *req.SessionID
		b.Payment.SessionID = &sessionID
		b.Lifecycle = domain.AwaitingPayment(deadline)

	case req.PaymentMethod == PaymentMethodCard:
		session, err := s.card.CreatePaymentSession(ctx, domain.SessionRequest{
			BookingID:     b.ID.String(),
			Amount:        b.ChargeAmount(plan.car.Deposit),
			Currency:      s.currency,
			Description:   plan.car.Name,
			CustomerEmail: plan.driver.Email,
			CustomerName:  plan.driver.FullName,
			Locale:        plan.driver.Language,
		})
		if err != nil {
			return domain.NewGatewayUnavailableError(err)
		}
		sessionID := session.ID
		b.Payment.SessionID = &sessionID
		b.Lifecycle = domain.AwaitingPayment(deadline)
		plan.session = session

	default:
		b.Lifecycle = domain.AwaitingPayment(deadline)
	}

	return nil
}

// persist writes the guest driver, its token, the additional driver and
// finally the booking in one transaction.
func (s *CheckoutService) persist(ctx context.Context, req CheckoutRequest, plan *checkoutPlan) error {
	b := plan.booking

	return s.store.WithTx(ctx, func(tx ports.Store) error {
		if plan.guest {
			plan.driver.ExpireAt = b.ExpireAt()
			if err := tx.Users().CreateUser(ctx, plan.driver); err != nil {
				return err
			}
			plan.token = domain.NewActivationToken(plan.driver.ID)
			if err := tx.Users().CreateToken(ctx, plan.token); err != nil {
				return err
			}
		}

		if b.Options.AdditionalDriver && req.AdditionalDriver != nil {
			d := *req.AdditionalDriver
			d.ID = uuid.New()
			if err := tx.Bookings().CreateAdditionalDriver(ctx, &d); err != nil {
				return err
			}
			b.AdditionalDriverID = &d.ID
		}

		if req.PaymentIntentID != nil {
			if err := tx.Cars().IncrementTrips(ctx, b.CarID); err != nil {
				return fmt.Errorf("increment trips: %w", err)
			}
		}

		return tx.Bookings().CreateBooking(ctx, b)
	})
}

func (s *CheckoutService) afterCommit(ctx context.Context, req CheckoutRequest, plan *checkoutPlan) {
	b := plan.booking

	if plan.guest {
		if err := s.notifier.SendActivation(ctx, plan.driver, plan.token); err != nil {
			s.logger.Error().Err(err).Str("user_id", plan.driver.ID.String()).Msg("activation email failed")
		}
	}

	if req.PayLater || !b.Lifecycle.IsAwaitingPayment() {
		s.confirm.afterConfirm(ctx, b)
	}
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
