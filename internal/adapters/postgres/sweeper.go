package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/DanielPopoola/car-rental-engine/internal/core/ports"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Sweep physically removes void bookings past their expire_at, the
// additional drivers they owned, and guest users whose expiry elapsed
// without a surviving booking. It runs as one transaction and shares the
// status guard with ResolveAwaiting, so a confirm and a sweep of the same
// row serialize on its lock and exactly one of them applies.
func (s *Store) Sweep(ctx context.Context) (*ports.SweepResult, error) {
	result := &ports.SweepResult{RanAt: time.Now().UTC()}

	err := s.WithTx(ctx, func(tx ports.Store) error {
		q := tx.(*Store).q

		rows, err := q.Query(ctx, `DELETE FROM bookings
				WHERE status = 'void' AND expire_at <= NOW()
				RETURNING additional_driver_id`)
		if err != nil {
			return fmt.Errorf("sweep bookings: %w", err)
		}

		driverIDs, err := pgx.CollectRows(rows, pgx.RowTo[*uuid.UUID])
		if err != nil {
			return fmt.Errorf("scan swept bookings: %w", err)
		}
		result.Bookings = int64(len(driverIDs))

		owned := make([]uuid.UUID, 0, len(driverIDs))
		for _, id := range driverIDs {
			if id != nil {
				owned = append(owned, *id)
			}
		}

		result.AdditionalDrivers, err = tx.Bookings().DeleteAdditionalDrivers(ctx, owned)
		if err != nil {
			return err
		}

		cmdTag, err := q.Exec(ctx, `DELETE FROM users
				WHERE verified = FALSE AND expire_at IS NOT NULL AND expire_at <= NOW()
					AND NOT EXISTS (SELECT 1 FROM bookings b WHERE b.driver_id = users.id)`)
		if err != nil {
			return fmt.Errorf("sweep guest users: %w", err)
		}
		result.Users = cmdTag.RowsAffected()

		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
