package service

import (
	"context"

	"github.com/DanielPopoola/car-rental-engine/internal/adapters/gateway"
	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/DanielPopoola/car-rental-engine/internal/core/ports"
	"github.com/DanielPopoola/car-rental-engine/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Outcome string

const (
	// OutcomeConfirmed: the booking was resolved by this call.
	OutcomeConfirmed Outcome = "confirmed"
	// OutcomeNotFound: no temporary booking or gateway record matched,
	// including a booking that was already confirmed or swept.
	OutcomeNotFound Outcome = "not_found"
	// OutcomeNotCompleted: payment still pending; the booking is untouched.
	OutcomeNotCompleted Outcome = "not_completed"
	// OutcomeRejected: the gateway reported a terminal failure and the
	// booking was deleted.
	OutcomeRejected Outcome = "rejected"
)

type Result struct {
	Outcome   Outcome
	BookingID uuid.UUID
	// GatewayStatus is the raw session or order status, when one was read.
	GatewayStatus string
	Booking       *domain.Booking
}

type ReconciliationService struct {
	store   ports.Store
	card    ports.PaymentGateway
	wallet  ports.PaymentGateway
	confirm *confirmer
	logger  zerolog.Logger
}

func NewReconciliationService(store ports.Store, card, wallet ports.PaymentGateway, notifier ports.Notifier, logger zerolog.Logger) *ReconciliationService {
	logger = logger.With().Str("component", "reconciliation").Logger()
	return &ReconciliationService{
		store:   store,
		card:    card,
		wallet:  wallet,
		confirm: &confirmer{store: store, notifier: notifier, logger: logger},
		logger:  logger,
	}
}

// CheckCheckoutSession reconciles a card checkout session with its
// temporary booking.
func (s *ReconciliationService) CheckCheckoutSession(ctx context.Context, sessionID string) (*Result, error) {
	result, err := s.checkCheckoutSession(ctx, sessionID)
	if err == nil {
		metrics.IncReconciliation("card", string(result.Outcome))
	}
	return result, err
}

func (s *ReconciliationService) checkCheckoutSession(ctx context.Context, sessionID string) (*Result, error) {
	b, err := s.store.Bookings().FindTemporaryBySessionID(ctx, sessionID)
	if err != nil {
		if domain.IsErrorCode(err, domain.ErrCodeBookingNotFound) {
			return &Result{Outcome: OutcomeNotFound}, nil
		}
		return nil, err
	}

	status, err := s.card.RetrieveSessionStatus(ctx, sessionID)
	if err != nil {
		return s.gatewayFailure(b, err)
	}

	log := s.logger.With().Str("booking_id", b.ID.String()).Str("session_id", sessionID).Str("gateway_status", status.Status).Logger()

	switch status.State {
	case domain.SessionPaid:
		return s.resolve(ctx, b, nil, status.Status)

	case domain.SessionFailed:
		log.Info().Msg("card session failed, discarding booking")
		return s.reject(ctx, b, status.Status, func(r ports.BookingRepository) (*domain.Booking, error) {
			return r.DeleteAwaiting(ctx, b.ID)
		})

	default:
		return &Result{Outcome: OutcomeNotCompleted, BookingID: b.ID, GatewayStatus: status.Status}, nil
	}
}

// CheckOrder reconciles a wallet order with the temporary booking it was
// created for.
func (s *ReconciliationService) CheckOrder(ctx context.Context, bookingID uuid.UUID, orderID string) (*Result, error) {
	result, err := s.checkOrder(ctx, bookingID, orderID)
	if err == nil {
		metrics.IncReconciliation("wallet", string(result.Outcome))
	}
	return result, err
}

func (s *ReconciliationService) checkOrder(ctx context.Context, bookingID uuid.UUID, orderID string) (*Result, error) {
	if orderID == "" {
		return nil, domain.NewValidationError("order id is required")
	}

	b, err := s.store.Bookings().FindTemporaryByID(ctx, bookingID)
	if err != nil {
		if domain.IsErrorCode(err, domain.ErrCodeBookingNotFound) {
			return &Result{Outcome: OutcomeNotFound}, nil
		}
		return nil, err
	}
	// Only the order created for this booking by CreateWalletOrder may settle it.
	if b.Payment.PayPalOrderID == nil || *b.Payment.PayPalOrderID != orderID {
		return nil, domain.NewValidationError("order does not belong to booking")
	}

	status, err := s.wallet.RetrieveSessionStatus(ctx, orderID)
	if err != nil {
		return s.gatewayFailure(b, err)
	}
	if status.Reference != b.ID.String() {
		s.logger.Warn().Str("booking_id", b.ID.String()).Str("order_id", orderID).Str("reference", status.Reference).
			Msg("wallet order references another booking")
		return nil, domain.NewValidationError("order does not belong to booking")
	}

	switch status.State {
	case domain.SessionPaid:
		return s.resolve(ctx, b, &orderID, status.Status)

	case domain.SessionFailed:
		s.logger.Info().Str("booking_id", b.ID.String()).Str("order_id", orderID).Str("gateway_status", status.Status).
			Msg("wallet order voided, discarding booking")
		return s.reject(ctx, b, status.Status, func(r ports.BookingRepository) (*domain.Booking, error) {
			return r.DeleteAwaiting(ctx, b.ID)
		})

	default:
		return &Result{Outcome: OutcomeNotCompleted, BookingID: b.ID, GatewayStatus: status.Status}, nil
	}
}

func (s *ReconciliationService) resolve(ctx context.Context, b *domain.Booking, orderID *string, gatewayStatus string) (*Result, error) {
	confirmed, err := s.confirm.confirm(ctx, b, orderID)
	if err != nil {
		return nil, err
	}
	if confirmed == nil {
		return &Result{Outcome: OutcomeNotFound, BookingID: b.ID, GatewayStatus: gatewayStatus}, nil
	}
	return &Result{Outcome: OutcomeConfirmed, BookingID: b.ID, GatewayStatus: gatewayStatus, Booking: confirmed}, nil
}

func (s *ReconciliationService) reject(ctx context.Context, b *domain.Booking, gatewayStatus string, del func(ports.BookingRepository) (*domain.Booking, error)) (*Result, error) {
	deleted, err := discard(ctx, s.store, del)
	if err != nil {
		return nil, err
	}
	if deleted == nil {
		return &Result{Outcome: OutcomeNotFound, BookingID: b.ID, GatewayStatus: gatewayStatus}, nil
	}
	return &Result{Outcome: OutcomeRejected, BookingID: b.ID, GatewayStatus: gatewayStatus}, nil
}

// gatewayFailure maps lookup errors: an unknown session or order is not
// ours to reconcile, a timeout counts as not completed yet.
func (s *ReconciliationService) gatewayFailure(b *domain.Booking, err error) (*Result, error) {
	switch {
	case gateway.IsNotFound(err):
		return &Result{Outcome: OutcomeNotFound, BookingID: b.ID}, nil
	case gateway.IsTimeout(err):
		s.logger.Warn().Err(err).Str("booking_id", b.ID.String()).Msg("gateway timed out, leaving booking in place")
		return &Result{Outcome: OutcomeNotCompleted, BookingID: b.ID}, nil
	default:
		return nil, domain.NewGatewayUnavailableError(err)
	}
}
