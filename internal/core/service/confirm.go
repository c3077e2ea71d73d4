package service

import (
	"context"
	"fmt"

	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/DanielPopoola/car-rental-engine/internal/core/ports"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// confirmer holds the confirmation routine shared by checkout and the
// reconciliation polls.
type confirmer struct {
	store    ports.Store
	notifier ports.Notifier
	logger   zerolog.Logger
}

// confirm resolves an awaiting booking to deposit or paid. It returns nil
// without error when the booking was already resolved or swept, so repeated
// polls and a racing sweep never confirm twice.
func (c *confirmer) confirm(ctx context.Context, b *domain.Booking, payPalOrderID *string) (*domain.Booking, error) {
	var confirmed *domain.Booking

	err := c.store.WithTx(ctx, func(tx ports.Store) error {
		resolved, err := tx.Bookings().ResolveAwaiting(ctx, b.ID, domain.PaidStatus(b.IsDeposit), payPalOrderID)
		if err != nil {
			if domain.IsErrorCode(err, domain.ErrCodeBookingNotFound) {
				return nil
			}
			return err
		}

		if err := tx.Users().ClearExpiry(ctx, resolved.DriverID); err != nil {
			return err
		}
		if err := tx.Cars().IncrementTrips(ctx, resolved.CarID); err != nil {
			return fmt.Errorf("increment trips: %w", err)
		}

		confirmed = resolved
		return nil
	})
	if err != nil {
		return nil, err
	}

	if confirmed != nil {
		c.afterConfirm(ctx, confirmed)
	}
	return confirmed, nil
}

// afterConfirm runs the post-commit side effects. Failures are logged and
// never undo the confirmation.
func (c *confirmer) afterConfirm(ctx context.Context, b *domain.Booking) {
	log := c.logger.With().Str("booking_id", b.ID.String()).Str("status", string(b.Status())).Logger()

	if err := c.notifier.NotifyConfirmed(ctx, b); err != nil {
		log.Error().Err(err).Msg("confirmation email failed")
	}

	message := fmt.Sprintf("New booking %s from %s to %s (%s).",
		b.ID, b.From.Format(dateLayout), b.To.Format(dateLayout), b.Status())
	if err := c.notifier.NotifyStakeholders(ctx, b, message); err != nil {
		log.Error().Err(err).Msg("stakeholder notification failed")
	}

	log.Info().Msg("booking confirmed")
}

// discard deletes an awaiting booking through del and cleans up what it
// owned: its additional driver and its guest driver while still unverified.
// It returns nil when del found nothing to delete.
func discard(ctx context.Context, store ports.Store, del func(ports.BookingRepository) (*domain.Booking, error)) (*domain.Booking, error) {
	var deleted *domain.Booking

	err := store.WithTx(ctx, func(tx ports.Store) error {
		b, err := del(tx.Bookings())
		if err != nil {
			if domain.IsErrorCode(err, domain.ErrCodeBookingNotFound) {
				return nil
			}
			return err
		}

		if b.HasAdditionalDriver() {
			if _, err := tx.Bookings().DeleteAdditionalDrivers(ctx, []uuid.UUID{*b.AdditionalDriverID}); err != nil {
				return err
			}
		}
		if _, err := tx.Users().DeleteUnverifiedGuest(ctx, b.DriverID); err != nil {
			return err
		}

		deleted = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
