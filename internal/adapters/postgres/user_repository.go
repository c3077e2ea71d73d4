package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, full_name, phone, birth_date, language, type, verified, blacklisted,
	license, license_required, pay_later, expire_at, created_at`

type UserRepository struct {
	q Executor
}

func (r *UserRepository) CreateUser(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (` + userColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.q.Exec(ctx, query,
		u.ID,
		u.Email,
		u.FullName,
		u.Phone,
		u.BirthDate,
		u.Language,
		string(u.Type),
		u.Verified,
		u.Blacklisted,
		u.License,
		u.LicenseRequired,
		u.PayLater,
		u.ExpireAt,
		u.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) && constraintName(err) == "users_email_key" {
			return domain.NewDuplicateEmailError(u.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return scanUser(r.q.QueryRow(ctx, query, id), id.String())
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	return scanUser(r.q.QueryRow(ctx, query, email), email)
}

func (r *UserRepository) CreateToken(ctx context.Context, t *domain.Token) error {
	query := `INSERT INTO tokens (user_id, token, created_at) VALUES ($1, $2, $3)`

	if _, err := r.q.Exec(ctx, query, t.UserID, t.Value, t.CreatedAt); err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

func (r *UserRepository) ClearExpiry(ctx context.Context, id uuid.UUID) error {
	if _, err := r.q.Exec(ctx, `UPDATE users SET expire_at = NULL WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear user expiry: %w", err)
	}
	return nil
}

func (r *UserRepository) DeleteUnverifiedGuest(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `DELETE FROM users
			WHERE id = $1 AND verified = FALSE AND expire_at IS NOT NULL
				AND NOT EXISTS (SELECT 1 FROM bookings b WHERE b.driver_id = users.id)`

	cmdTag, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete guest user: %w", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

func (r *UserRepository) PushTokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT token FROM push_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("query push tokens: %w", err)
	}

	tokens, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan push tokens: %w", err)
	}
	return tokens, nil
}

func scanUser(row pgx.Row, ref string) (*domain.User, error) {
	var (
		u        domain.User
		userType string
	)

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.Phone,
		&u.BirthDate,
		&u.Language,
		&userType,
		&u.Verified,
		&u.Blacklisted,
		&u.License,
		&u.LicenseRequired,
		&u.PayLater,
		&u.ExpireAt,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewUserNotFoundError(ref)
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	u.Type = domain.UserType(userType)
	return &u, nil
}
