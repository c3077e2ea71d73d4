package service

import (
	"context"
	"fmt"
	"time"

	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/DanielPopoola/car-rental-engine/internal/core/ports"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AdminBookingInput is the full editable content of a booking. Version, when
// set on update, must match the stored version.
type AdminBookingInput struct {
	ID                uuid.UUID
	SupplierID        uuid.UUID
	CarID             uuid.UUID
	DriverID          uuid.UUID
	PickupLocationID  uuid.UUID
	DropOffLocationID uuid.UUID
	From              time.Time
	To                time.Time
	Price             int64
	Options           domain.Options
	IsDeposit         bool
	Status            domain.BookingStatus
	CancelRequest     bool
	AdditionalDriver  *domain.AdditionalDriver
	Version           *int64
}

func (in AdminBookingInput) validate() error {
	if in.SupplierID == uuid.Nil || in.CarID == uuid.Nil || in.DriverID == uuid.Nil {
		return domain.NewValidationError("supplier, car and driver are required")
	}
	if in.PickupLocationID == uuid.Nil || in.DropOffLocationID == uuid.Nil {
		return domain.NewValidationError("pickup and drop-off locations are required")
	}
	if !in.To.After(in.From) {
		return domain.NewValidationError("rental end must be after start")
	}
	if in.Price < 0 {
		return domain.NewValidationError("price cannot be negative")
	}
	return nil
}

type TransitionService struct {
	store    ports.Store
	notifier ports.Notifier
	logger   zerolog.Logger
}

func NewTransitionService(store ports.Store, notifier ports.Notifier, logger zerolog.Logger) *TransitionService {
	return &TransitionService{
		store:    store,
		notifier: notifier,
		logger:   logger.With().Str("component", "transition").Logger(),
	}
}

func (s *TransitionService) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return s.store.Bookings().FindByID(ctx, id)
}

// Create stores an admin booking directly in a resolved status.
func (s *TransitionService) Create(ctx context.Context, in AdminBookingInput) (*domain.Booking, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	lifecycle, err := domain.Resolved(in.Status)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	b := &domain.Booking{
		ID:        uuid.New(),
		Lifecycle: lifecycle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyContent(b, in)

	err = s.store.WithTx(ctx, func(tx ports.Store) error {
		if b.Options.AdditionalDriver && in.AdditionalDriver != nil {
			d := *in.AdditionalDriver
			d.ID = uuid.New()
			if err := tx.Bookings().CreateAdditionalDriver(ctx, &d); err != nil {
				return err
			}
			b.AdditionalDriverID = &d.ID
		}
		return tx.Bookings().CreateBooking(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("booking_id", b.ID.String()).Str("status", string(b.Status())).Msg("booking created by admin")
	return b, nil
}

// Update rewrites a booking's content and status and keeps its additional
// driver in step with the additionalDriver option. The driver is notified
// when the status changed.
func (s *TransitionService) Update(ctx context.Context, in AdminBookingInput) (*domain.Booking, error) {
	if in.ID == uuid.Nil {
		return nil, domain.NewValidationError("booking id is required")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var (
		updated  *domain.Booking
		previous domain.BookingStatus
	)

	err := s.store.WithTx(ctx, func(tx ports.Store) error {
		b, err := tx.Bookings().FindByID(ctx, in.ID)
		if err != nil {
			return err
		}
		previous = b.Status()
		if b.Lifecycle.IsAwaitingPayment() {
			return domain.NewInvalidTransitionError(previous, in.Status)
		}

		if in.Status != previous {
			if err := b.CanTransitionTo(in.Status); err != nil {
				return err
			}
			lifecycle, err := domain.Resolved(in.Status)
			if err != nil {
				return err
			}
			b.Lifecycle = lifecycle
		}

		staleDriver := b.AdditionalDriverID
		applyContent(b, in)
		b.AdditionalDriverID = staleDriver

		var orphan *uuid.UUID
		switch {
		case in.Options.AdditionalDriver && in.AdditionalDriver != nil:
			d := *in.AdditionalDriver
			if b.AdditionalDriverID != nil {
				d.ID = *b.AdditionalDriverID
				if err := tx.Bookings().UpdateAdditionalDriver(ctx, &d); err != nil {
					return err
				}
			} else {
				d.ID = uuid.New()
				if err := tx.Bookings().CreateAdditionalDriver(ctx, &d); err != nil {
					return err
				}
				b.AdditionalDriverID = &d.ID
			}
		case !in.Options.AdditionalDriver && b.AdditionalDriverID != nil:
			orphan = b.AdditionalDriverID
			b.AdditionalDriverID = nil
		}

		if err := tx.Bookings().UpdateBooking(ctx, b, in.Version); err != nil {
			return err
		}

		if orphan != nil {
			if _, err := tx.Bookings().DeleteAdditionalDrivers(ctx, []uuid.UUID{*orphan}); err != nil {
				return err
			}
		}

		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	if updated.Status() != previous {
		s.notifyStatusChanged(ctx, updated)
	}
	return updated, nil
}

// UpdateStatus moves every listed booking to status. Void bookings are
// skipped. Each booking whose status actually changed is notified once.
func (s *TransitionService) UpdateStatus(ctx context.Context, ids []uuid.UUID, status domain.BookingStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, domain.NewValidationError("at least one booking id is required")
	}
	if _, err := domain.Resolved(status); err != nil {
		return 0, err
	}

	changes, err := s.store.Bookings().UpdateStatuses(ctx, ids, status)
	if err != nil {
		return 0, err
	}

	for _, c := range changes {
		if c.Previous != status {
			s.notifyStatusChanged(ctx, c.Booking)
		}
	}
	return int64(len(changes)), nil
}

// RequestCancellation flags a booking for cancellation once. Repeating the
// request on an already flagged booking is a no-op.
func (s *TransitionService) RequestCancellation(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	flagged, err := s.store.Bookings().RequestCancellation(ctx, id)
	if err != nil {
		return nil, err
	}

	b, err := s.store.Bookings().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !flagged {
		if b.CancelRequest {
			return b, nil
		}
		return nil, domain.NewCancellationNotAllowedError(id.String())
	}

	message := fmt.Sprintf("Cancellation requested for booking %s from %s to %s.",
		b.ID, b.From.Format(dateLayout), b.To.Format(dateLayout))
	if err := s.notifier.NotifyStakeholders(ctx, b, message); err != nil {
		s.logger.Error().Err(err).Str("booking_id", b.ID.String()).Msg("cancellation notification failed")
	}

	s.logger.Info().Str("booking_id", b.ID.String()).Msg("cancellation requested")
	return b, nil
}

// Delete removes bookings and the additional drivers they own. It returns
// the number of bookings deleted.
func (s *TransitionService) Delete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, domain.NewValidationError("at least one booking id is required")
	}

	var deleted int64
	err := s.store.WithTx(ctx, func(tx ports.Store) error {
		removed, err := tx.Bookings().DeleteBookings(ctx, ids)
		if err != nil {
			return err
		}
		deleted = int64(len(removed))

		var drivers []uuid.UUID
		for _, b := range removed {
			if b.HasAdditionalDriver() {
				drivers = append(drivers, *b.AdditionalDriverID)
			}
		}
		if len(drivers) == 0 {
			return nil
		}
		_, err = tx.Bookings().DeleteAdditionalDrivers(ctx, drivers)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info().Int64("deleted", deleted).Int("requested", len(ids)).Msg("bookings deleted")
	return deleted, nil
}

// DeleteTempBooking lets the checkout client abandon its own temporary
// booking. Only a void booking carrying sessionID matches.
func (s *TransitionService) DeleteTempBooking(ctx context.Context, id uuid.UUID, sessionID string) error {
	if sessionID == "" {
		return domain.NewValidationError("session id is required")
	}

	deleted, err := discard(ctx, s.store, func(r ports.BookingRepository) (*domain.Booking, error) {
		return r.DeleteTemporary(ctx, id, sessionID)
	})
	if err != nil {
		return err
	}
	if deleted == nil {
		return domain.NewBookingNotFoundError(id.String())
	}
	return nil
}

func (s *TransitionService) notifyStatusChanged(ctx context.Context, b *domain.Booking) {
	if err := s.notifier.NotifyStatusChanged(ctx, b); err != nil {
		s.logger.Error().Err(err).Str("booking_id", b.ID.String()).Msg("status change notification failed")
	}
}

func applyContent(b *domain.Booking, in AdminBookingInput) {
	b.SupplierID = in.SupplierID
	b.CarID = in.CarID
	b.DriverID = in.DriverID
	b.PickupLocationID = in.PickupLocationID
	b.DropOffLocationID = in.DropOffLocationID
	b.From = in.From.UTC()
	b.To = in.To.UTC()
	b.Price = in.Price
	b.Options = in.Options
	b.IsDeposit = in.IsDeposit
	b.CancelRequest = in.CancelRequest
}
