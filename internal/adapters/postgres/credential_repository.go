package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"splitpot/internal/core/domain"
	"splitpot/internal/core/ports"
)

type credentialRepo struct{ s *Store }

var _ ports.CredentialRepository = (*credentialRepo)(nil)

func (r *credentialRepo) Save(ctx context.Context, tx ports.Tx, credential *domain.Credential) error {
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO credentials (user_id, password_hash, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			updated_at = now()
	`, credential.UserID, credential.PasswordHash, credential.UpdatedAt)
	if err != nil {
		r.s.log.Error().Err(err).Str("user_id", credential.UserID.String()).Msg("Failed to save credential")
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (r *credentialRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Credential, error) {
	var c domain.Credential
	row := r.s.db.pool.QueryRow(ctx,
		`SELECT user_id, password_hash, updated_at FROM credentials WHERE user_id = $1`, userID)
	if err := row.Scan(&c.UserID, &c.PasswordHash, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.s.log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to scan credential row")
		return nil, fmt.Errorf("scan credential: %w", err)
	}

	// A hash that lost its bcrypt prefix cannot verify anything; surface it
	// as a store invariant violation rather than a login failure.
	if !strings.HasPrefix(c.PasswordHash, "$2") {
		return nil, fmt.Errorf("%w: malformed credential hash for user %s", ports.ErrCorruptedData, userID)
	}
	return &c, nil
}

func (r *credentialRepo) Delete(ctx context.Context, tx ports.Tx, userID uuid.UUID) error {
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM credentials WHERE user_id = $1`, userID); err != nil {
		r.s.log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to delete credential")
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
