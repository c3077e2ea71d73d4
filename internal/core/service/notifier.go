package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/DanielPopoola/car-rental-engine/internal/config"
	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/DanielPopoola/car-rental-engine/internal/core/ports"
	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02 15:04"

// Dispatcher delivers booking lifecycle notifications by email, push and
// the per-user notification log.
type Dispatcher struct {
	store       ports.Store
	mailer      ports.Mailer
	push        ports.PushQueue
	adminEmail  string
	frontendURL string
	logger      zerolog.Logger
}

func NewDispatcher(store ports.Store, mailer ports.Mailer, push ports.PushQueue, cfg config.NotificationConfig, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:       store,
		mailer:      mailer,
		push:        push,
		adminEmail:  cfg.AdminEmail,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		logger:      logger.With().Str("component", "dispatcher").Logger(),
	}
}

var _ ports.Notifier = (*Dispatcher)(nil)

func (d *Dispatcher) SendActivation(ctx context.Context, user *domain.User, token *domain.Token) error {
	link := fmt.Sprintf("%s/activate?u=%s&t=%s",
		d.frontendURL,
		url.QueryEscape(user.ID.String()),
		url.QueryEscape(token.Value),
	)

	return d.mailer.Send(ctx, domain.EmailMessage{
		To:      user.Email,
		Subject: "Activate your account",
		Body: fmt.Sprintf("Hello %s,\n\nYour booking account has been created. Activate it here:\n%s\n",
			user.FullName, link),
	})
}

func (d *Dispatcher) NotifyConfirmed(ctx context.Context, b *domain.Booking) error {
	driver, err := d.store.Users().FindByID(ctx, b.DriverID)
	if err != nil {
		return fmt.Errorf("load driver for confirmation: %w", err)
	}

	return d.mailer.Send(ctx, domain.EmailMessage{
		To:      driver.Email,
		Subject: "Booking confirmed",
		Body: fmt.Sprintf("Hello %s,\n\nYour booking %s from %s to %s is confirmed (%s).\nDetails: %s/booking?b=%s\n",
			driver.FullName,
			b.ID,
			b.From.Format(dateLayout),
			b.To.Format(dateLayout),
			b.Status(),
			d.frontendURL,
			b.ID,
		),
	})
}

// NotifyStakeholders logs message for the supplier and the admin, bumps their
// unread counters and emails them. The counter is written after the log entry
// and may drift from it if the second write fails.
func (d *Dispatcher) NotifyStakeholders(ctx context.Context, b *domain.Booking, message string) error {
	var errs []error

	supplier, err := d.store.Users().FindByID(ctx, b.SupplierID)
	if err != nil {
		errs = append(errs, fmt.Errorf("load supplier: %w", err))
	} else {
		errs = append(errs, d.notifyUser(ctx, supplier, b, message))
	}

	admin, err := d.store.Users().FindByEmail(ctx, d.adminEmail)
	if err != nil {
		errs = append(errs, fmt.Errorf("load admin: %w", err))
	} else if supplier == nil || admin.ID != supplier.ID {
		errs = append(errs, d.notifyUser(ctx, admin, b, message))
	}

	return errors.Join(errs...)
}

func (d *Dispatcher) notifyUser(ctx context.Context, user *domain.User, b *domain.Booking, message string) error {
	bookingID := b.ID
	n := domain.NewNotification(user.ID, message, &bookingID)

	if err := d.store.Notifications().CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("create notification for %s: %w", user.ID, err)
	}

	if err := d.store.Notifications().IncrementCounter(ctx, user.ID); err != nil {
		d.logger.Warn().Err(err).Str("user_id", user.ID.String()).Msg("notification counter not incremented")
	}

	return d.mailer.Send(ctx, domain.EmailMessage{
		To:      user.Email,
		Subject: "Booking update",
		Body: fmt.Sprintf("%s\n\nBooking: %s/bookings/%s\n",
			message,
			d.frontendURL,
			b.ID,
		),
	})
}

func (d *Dispatcher) NotifyStatusChanged(ctx context.Context, b *domain.Booking) error {
	driver, err := d.store.Users().FindByID(ctx, b.DriverID)
	if err != nil {
		return fmt.Errorf("load driver for status change: %w", err)
	}

	message := fmt.Sprintf("The status of your booking %s changed to %s.", b.ID, b.Status())

	var errs []error
	errs = append(errs, d.mailer.Send(ctx, domain.EmailMessage{
		To:      driver.Email,
		Subject: "Booking status changed",
		Body: fmt.Sprintf("Hello %s,\n\n%s\nDetails: %s/booking?b=%s\n",
			driver.FullName, message, d.frontendURL, b.ID),
	}))

	tokens, err := d.store.Users().PushTokens(ctx, driver.ID)
	if err != nil {
		errs = append(errs, fmt.Errorf("load push tokens: %w", err))
		return errors.Join(errs...)
	}

	for _, token := range tokens {
		errs = append(errs, d.push.Enqueue(ctx, domain.PushMessage{
			To:    token,
			Title: "Booking update",
			Body:  message,
			Data: map[string]string{
				"bookingId": b.ID.String(),
				"status":    string(b.Status()),
			},
			CreatedAt: time.Now().UTC(),
		}))
	}

	return errors.Join(errs...)
}
