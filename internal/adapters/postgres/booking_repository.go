package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/DanielPopoola/car-rental-engine/internal/core/ports"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const bookingColumns = `id, supplier_id, car_id, driver_id, pickup_location_id, dropoff_location_id,
	additional_driver_id, from_at, to_at, price,
	cancellation, amendments, theft_protection, collision_damage_waiver, full_insurance, additional_driver,
	is_deposit, session_id, paypal_order_id, customer_id, payment_intent_id,
	status, expire_at, cancel_request, version, created_at, updated_at`

// visible hides void bookings whose TTL elapsed but were not swept yet.
const visible = `(expire_at IS NULL OR expire_at > NOW())`

type BookingRepository struct {
	q Executor
}

func (r *BookingRepository) CreateBooking(ctx context.Context, b *domain.Booking) error {
	query := `INSERT INTO bookings (` + bookingColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
				$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)`

	_, err := r.q.Exec(ctx, query,
		b.ID,
		b.SupplierID,
		b.CarID,
		b.DriverID,
		b.PickupLocationID,
		b.DropOffLocationID,
		b.AdditionalDriverID,
		b.From,
		b.To,
		b.Price,
		b.Options.Cancellation,
		b.Options.Amendments,
		b.Options.TheftProtection,
		b.Options.CollisionDamageWaiver,
		b.Options.FullInsurance,
		b.Options.AdditionalDriver,
		b.IsDeposit,
		b.Payment.SessionID,
		b.Payment.PayPalOrderID,
		b.Payment.CustomerID,
		b.Payment.IntentID,
		string(b.Status()),
		b.ExpireAt(),
		b.CancelRequest,
		b.Version,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			switch constraintName(err) {
			case "idx_bookings_session_id":
				return domain.NewValidationError("payment session already attached to a booking")
			case "idx_bookings_payment_intent_id":
				return domain.NewValidationError("payment intent already settled a booking")
			}
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *BookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 AND ` + visible

	return scanBooking(r.q.QueryRow(ctx, query, id), id.String())
}

// FindTemporaryByID only matches void bookings that are still within their TTL.
func (r *BookingRepository) FindTemporaryByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
			WHERE id = $1 AND status = 'void' AND expire_at > NOW()`

	return scanBooking(r.q.QueryRow(ctx, query, id), id.String())
}

func (r *BookingRepository) FindTemporaryBySessionID(ctx context.Context, sessionID string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
			WHERE session_id = $1 AND status = 'void' AND expire_at > NOW()`

	return scanBooking(r.q.QueryRow(ctx, query, sessionID), sessionID)
}

func (r *BookingRepository) ResolveAwaiting(ctx context.Context, id uuid.UUID, status domain.BookingStatus, payPalOrderID *string) (*domain.Booking, error) {
	if status == domain.StatusVoid {
		return nil, domain.NewInvalidTransitionError(domain.StatusVoid, status)
	}

	query := `UPDATE bookings SET status = $2, expire_at = NULL,
				paypal_order_id = COALESCE($3, paypal_order_id),
				version = version + 1, updated_at = NOW()
			WHERE id = $1 AND status = 'void' AND expire_at > NOW()
			RETURNING ` + bookingColumns

	return scanBooking(r.q.QueryRow(ctx, query, id, string(status), payPalOrderID), id.String())
}

func (r *BookingRepository) SetPayPalOrderID(ctx context.Context, id uuid.UUID, orderID string) error {
	query := `UPDATE bookings SET paypal_order_id = $2, updated_at = NOW()
			WHERE id = $1 AND status = 'void' AND expire_at > NOW()`

	cmdTag, err := r.q.Exec(ctx, query, id, orderID)
	if err != nil {
		return fmt.Errorf("failed to attach order: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.NewBookingNotFoundError(id.String())
	}
	return nil
}

func (r *BookingRepository) UpdateBooking(ctx context.Context, b *domain.Booking, expectedVersion *int64) error {
	query := `UPDATE bookings SET supplier_id = $2, car_id = $3, driver_id = $4,
				pickup_location_id = $5, dropoff_location_id = $6, additional_driver_id = $7,
				from_at = $8, to_at = $9, price = $10,
				cancellation = $11, amendments = $12, theft_protection = $13,
				collision_damage_waiver = $14, full_insurance = $15, additional_driver = $16,
				is_deposit = $17, status = $18, expire_at = $19, cancel_request = $20,
				version = version + 1, updated_at = NOW()
			WHERE id = $1 AND ($21::bigint IS NULL OR version = $21) AND ` + visible + `
			RETURNING version, updated_at`

	err := r.q.QueryRow(ctx, query,
		b.ID,
		b.SupplierID,
		b.CarID,
		b.DriverID,
		b.PickupLocationID,
		b.DropOffLocationID,
		b.AdditionalDriverID,
		b.From,
		b.To,
		b.Price,
		b.Options.Cancellation,
		b.Options.Amendments,
		b.Options.TheftProtection,
		b.Options.CollisionDamageWaiver,
		b.Options.FullInsurance,
		b.Options.AdditionalDriver,
		b.IsDeposit,
		string(b.Status()),
		b.ExpireAt(),
		b.CancelRequest,
		expectedVersion,
	).Scan(&b.Version, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if expectedVersion != nil {
				if _, findErr := r.FindByID(ctx, b.ID); findErr == nil {
					return domain.NewConcurrentModificationError(b.ID.String(), *expectedVersion)
				}
			}
			return domain.NewBookingNotFoundError(b.ID.String())
		}
		return fmt.Errorf("failed to update booking: %w", err)
	}
	return nil
}

// UpdateStatuses never touches void bookings; their status belongs to the
// payment flow. The previous status comes from rows locked by the same
// statement.
func (r *BookingRepository) UpdateStatuses(ctx context.Context, ids []uuid.UUID, status domain.BookingStatus) ([]ports.StatusChange, error) {
	if status == domain.StatusVoid {
		return nil, domain.NewInvalidTransitionError(domain.StatusVoid, status)
	}

	query := `WITH prev AS (
				SELECT id AS prev_id, status AS prev_status FROM bookings
				WHERE id = ANY($1) AND status <> 'void'
				FOR UPDATE
			)
			UPDATE bookings SET status = $2, version = version + 1, updated_at = NOW()
			FROM prev WHERE id = prev.prev_id
			RETURNING ` + bookingColumns + `, prev.prev_status`

	rows, err := r.q.Query(ctx, query, ids, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to update booking statuses: %w", err)
	}

	changes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ports.StatusChange, error) {
		var previous string
		b, err := scanBookingRow(row, &previous)
		if err != nil {
			return ports.StatusChange{}, err
		}
		return ports.StatusChange{Booking: b, Previous: domain.BookingStatus(previous)}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan booking statuses: %w", err)
	}
	return changes, nil
}

func (r *BookingRepository) RequestCancellation(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE bookings SET cancel_request = TRUE, version = version + 1, updated_at = NOW()
			WHERE id = $1 AND cancel_request = FALSE AND cancellation = TRUE
				AND status IN ('pending', 'deposit', 'paid', 'reserved')`

	cmdTag, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to flag cancellation: %w", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

func (r *BookingRepository) DeleteBookings(ctx context.Context, ids []uuid.UUID) ([]*domain.Booking, error) {
	query := `DELETE FROM bookings WHERE id = ANY($1) RETURNING ` + bookingColumns

	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("delete bookings: %w", err)
	}
	return collectBookings(rows)
}

// DeleteAwaiting removes a booking whose payment was rejected. Resolved
// bookings are left untouched.
func (r *BookingRepository) DeleteAwaiting(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	query := `DELETE FROM bookings WHERE id = $1 AND status = 'void' AND expire_at IS NOT NULL
			RETURNING ` + bookingColumns

	return scanBooking(r.q.QueryRow(ctx, query, id), id.String())
}

func (r *BookingRepository) DeleteTemporary(ctx context.Context, id uuid.UUID, sessionID string) (*domain.Booking, error) {
	query := `DELETE FROM bookings
			WHERE id = $1 AND session_id = $2 AND status = 'void' AND expire_at IS NOT NULL
			RETURNING ` + bookingColumns

	return scanBooking(r.q.QueryRow(ctx, query, id, sessionID), id.String())
}

func (r *BookingRepository) CreateAdditionalDriver(ctx context.Context, d *domain.AdditionalDriver) error {
	query := `INSERT INTO additional_drivers (id, full_name, email, phone, birth_date)
			VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.q.Exec(ctx, query, d.ID, d.FullName, d.Email, d.Phone, d.BirthDate); err != nil {
		return fmt.Errorf("failed to create additional driver: %w", err)
	}
	return nil
}

func (r *BookingRepository) UpdateAdditionalDriver(ctx context.Context, d *domain.AdditionalDriver) error {
	query := `UPDATE additional_drivers SET full_name = $2, email = $3, phone = $4, birth_date = $5
			WHERE id = $1`

	cmdTag, err := r.q.Exec(ctx, query, d.ID, d.FullName, d.Email, d.Phone, d.BirthDate)
	if err != nil {
		return fmt.Errorf("failed to update additional driver: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.NewDriverNotFoundError(d.ID.String())
	}
	return nil
}

func (r *BookingRepository) FindAdditionalDriver(ctx context.Context, id uuid.UUID) (*domain.AdditionalDriver, error) {
	query := `SELECT id, full_name, email, phone, birth_date FROM additional_drivers WHERE id = $1`

	var d domain.AdditionalDriver
	err := r.q.QueryRow(ctx, query, id).Scan(&d.ID, &d.FullName, &d.Email, &d.Phone, &d.BirthDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewDriverNotFoundError(id.String())
		}
		return nil, fmt.Errorf("failed to scan additional driver: %w", err)
	}
	return &d, nil
}

func (r *BookingRepository) DeleteAdditionalDrivers(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	cmdTag, err := r.q.Exec(ctx, `DELETE FROM additional_drivers WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete additional drivers: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

// scanBooking scans a pgx.Row into a domain.Booking. ref names the lookup key in not-found errors.
func scanBooking(row pgx.Row, ref string) (*domain.Booking, error) {
	b, err := scanBookingRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewBookingNotFoundError(ref)
		}
		return nil, fmt.Errorf("failed to scan booking: %w", err)
	}
	return b, nil
}

func collectBookings(rows pgx.Rows) ([]*domain.Booking, error) {
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Booking, error) {
		return scanBookingRow(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan bookings: %w", err)
	}
	return results, nil
}

// scanBookingRow scans bookingColumns followed by any extra destinations.
func scanBookingRow(row pgx.Row, extra ...any) (*domain.Booking, error) {
	var (
		b        domain.Booking
		status   string
		expireAt *time.Time
	)

	dest := []any{
		&b.ID,
		&b.SupplierID,
		&b.CarID,
		&b.DriverID,
		&b.PickupLocationID,
		&b.DropOffLocationID,
		&b.AdditionalDriverID,
		&b.From,
		&b.To,
		&b.Price,
		&b.Options.Cancellation,
		&b.Options.Amendments,
		&b.Options.TheftProtection,
		&b.Options.CollisionDamageWaiver,
		&b.Options.FullInsurance,
		&b.Options.AdditionalDriver,
		&b.IsDeposit,
		&b.Payment.SessionID,
		&b.Payment.PayPalOrderID,
		&b.Payment.CustomerID,
		&b.Payment.IntentID,
		&status,
		&expireAt,
		&b.CancelRequest,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	lifecycle, err := domain.LifecycleFromStorage(status, expireAt)
	if err != nil {
		return nil, err
	}
	b.Lifecycle = lifecycle
	return &b, nil
}
