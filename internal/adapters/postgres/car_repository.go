package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type CarRepository struct {
	q Executor
}

func (r *CarRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Car, error) {
	query := `SELECT id, supplier_id, name, daily_price, deposit, cancellation, amendments,
				theft_protection, collision_damage_waiver, full_insurance, additional_driver, trips
			FROM cars WHERE id = $1`

	var c domain.Car
	err := r.q.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.SupplierID,
		&c.Name,
		&c.DailyPrice,
		&c.Deposit,
		&c.Cancellation,
		&c.Amendments,
		&c.TheftProtection,
		&c.CollisionDamageWaiver,
		&c.FullInsurance,
		&c.AdditionalDriver,
		&c.Trips,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewCarNotFoundError(id.String())
		}
		return nil, fmt.Errorf("failed to scan car: %w", err)
	}
	return &c, nil
}

func (r *CarRepository) IncrementTrips(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.q.Exec(ctx, `UPDATE cars SET trips = trips + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment trips: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.NewCarNotFoundError(id.String())
	}
	return nil
}
