package postgres

import (
	"context"
	"fmt"

	"github.com/DanielPopoola/car-rental-engine/internal/core/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store hands out repositories bound to either the pool or a transaction.
type Store struct {
	pool *pgxpool.Pool
	q    Executor
	inTx bool
}

func NewStore(db *DB) *Store {
	return &Store{
		pool: db.Pool,
		q:    db.Pool,
	}
}

func (s *Store) Bookings() ports.BookingRepository {
	return &BookingRepository{q: s.q}
}

func (s *Store) Users() ports.UserRepository {
	return &UserRepository{q: s.q}
}

func (s *Store) Cars() ports.CarRepository {
	return &CarRepository{q: s.q}
}

func (s *Store) Notifications() ports.NotificationRepository {
	return &NotificationRepository{q: s.q}
}

// WithTx executes a function within a database transaction. Nested calls
// join the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ports.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Rollback is a no-op once Commit succeeds.
	defer tx.Rollback(ctx) //nolint:errcheck

	storeWithTx := &Store{
		pool: s.pool,
		q:    tx,
		inTx: true,
	}

	if err := fn(storeWithTx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
