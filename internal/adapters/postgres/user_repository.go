package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"splitpot/internal/core/domain"
	"splitpot/internal/core/ports"
)

type userRepo struct{ s *Store }

var _ ports.UserRepository = (*userRepo)(nil)

func (r *userRepo) Save(ctx context.Context, tx ports.Tx, user *domain.User) error {
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO users (id, name, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			updated_at = now()
	`, user.ID, user.Name, user.Email, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		r.s.log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to save user")
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (r *userRepo) scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.s.log.Error().Err(err).Msg("Failed to scan user row")
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

const userCols = `id, name, email, created_at, updated_at`

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.s.db.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id)
	return r.scanUser(row)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.s.db.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE lower(email) = lower($1)`, email)
	return r.scanUser(row)
}

func (r *userRepo) Delete(ctx context.Context, tx ports.Tx, id uuid.UUID) error {
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		r.s.log.Error().Err(err).Str("user_id", id.String()).Msg("Failed to delete user")
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
