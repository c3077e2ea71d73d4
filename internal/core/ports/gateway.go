package ports

import (
	"context"

	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
)

// PaymentGateway is the uniform contract of a hosted payment flow.
type PaymentGateway interface {
	CreatePaymentSession(ctx context.Context, req domain.SessionRequest) (*domain.Session, error)
	RetrieveSessionStatus(ctx context.Context, sessionID string) (*domain.SessionStatus, error)
}

// CardGateway adds synchronous payment intents to the hosted session flow.
type CardGateway interface {
	PaymentGateway
	CreatePaymentIntent(ctx context.Context, req domain.IntentRequest) (*domain.PaymentIntent, error)
	RetrievePaymentIntent(ctx context.Context, intentID string) (*domain.PaymentIntent, error)
}
