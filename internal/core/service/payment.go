package service

import (
	"context"

	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/DanielPopoola/car-rental-engine/internal/core/ports"
	"github.com/google/uuid"
)

// PaymentService opens gateway flows on behalf of the checkout client.
type PaymentService struct {
	store    ports.Store
	card     ports.CardGateway
	wallet   ports.PaymentGateway
	currency string
}

func NewPaymentService(store ports.Store, card ports.CardGateway, wallet ports.PaymentGateway, currency string) *PaymentService {
	return &PaymentService{
		store:    store,
		card:     card,
		wallet:   wallet,
		currency: currency,
	}
}

func (s *PaymentService) CreateCheckoutSession(ctx context.Context, req domain.SessionRequest) (*domain.Session, error) {
	if req.Amount <= 0 {
		return nil, domain.NewValidationError("amount must be positive")
	}
	if req.Currency == "" {
		req.Currency = s.currency
	}

	session, err := s.card.CreatePaymentSession(ctx, req)
	if err != nil {
		return nil, domain.NewGatewayUnavailableError(err)
	}
	return session, nil
}

func (s *PaymentService) CreatePaymentIntent(ctx context.Context, req domain.IntentRequest) (*domain.PaymentIntent, error) {
	if req.Amount <= 0 {
		return nil, domain.NewValidationError("amount must be positive")
	}
	if req.Currency == "" {
		req.Currency = s.currency
	}

	intent, err := s.card.CreatePaymentIntent(ctx, req)
	if err != nil {
		return nil, domain.NewGatewayUnavailableError(err)
	}
	return intent, nil
}

// CreateWalletOrder opens a wallet order for a temporary booking and
// attaches its id to the booking.
func (s *PaymentService) CreateWalletOrder(ctx context.Context, bookingID uuid.UUID) (*domain.Session, error) {
	b, err := s.store.Bookings().FindTemporaryByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	car, err := s.store.Cars().FindByID(ctx, b.CarID)
	if err != nil {
		return nil, err
	}

	order, err := s.wallet.CreatePaymentSession(ctx, domain.SessionRequest{
		BookingID:   b.ID.String(),
		Amount:      b.ChargeAmount(car.Deposit),
		Currency:    s.currency,
		Description: car.Name,
	})
	if err != nil {
		return nil, domain.NewGatewayUnavailableError(err)
	}

	if err := s.store.Bookings().SetPayPalOrderID(ctx, b.ID, order.ID); err != nil {
		return nil, err
	}
	return order, nil
}
