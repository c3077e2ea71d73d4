package ports

import (
	"context"

	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
)

type Mailer interface {
	Send(ctx context.Context, msg domain.EmailMessage) error
}

// PushQueue accepts push messages for asynchronous delivery. Enqueue must not
// block the caller on delivery.
type PushQueue interface {
	Enqueue(ctx context.Context, msg domain.PushMessage) error
}

// PushSender performs the actual delivery of a batch of push messages.
type PushSender interface {
	Send(ctx context.Context, msgs []domain.PushMessage) error
}

// Notifier dispatches the lifecycle notifications of a booking.
type Notifier interface {
	SendActivation(ctx context.Context, user *domain.User, token *domain.Token) error
	NotifyConfirmed(ctx context.Context, b *domain.Booking) error
	NotifyStakeholders(ctx context.Context, b *domain.Booking, message string) error
	NotifyStatusChanged(ctx context.Context, b *domain.Booking) error
}
