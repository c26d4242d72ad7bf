package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"splitpot/internal/core/domain"
	"splitpot/internal/core/ports"
)

type deviceRepo struct{ s *Store }

var _ ports.DeviceRepository = (*deviceRepo)(nil)

func (r *deviceRepo) Save(ctx context.Context, tx ports.Tx, device *domain.Device) error {
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO devices (id, user_id, chat_id, platform, registered_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET chat_id = EXCLUDED.chat_id, platform = EXCLUDED.platform
	`, device.ID, device.UserID, device.ChatID, device.Platform, device.RegisteredAt)
	if err != nil {
		r.s.log.Error().Err(err).Str("device_id", device.ID.String()).Msg("Failed to save device")
		return fmt.Errorf("save device: %w", err)
	}
	return nil
}

func (r *deviceRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Device, error) {
	rows, err := r.s.db.pool.Query(ctx, `
		SELECT id, user_id, chat_id, platform, registered_at
		FROM devices WHERE user_id = $1 ORDER BY registered_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query devices: %w", err)
	}
	defer rows.Close()

	var out []domain.Device
	for rows.Next() {
		var d domain.Device
		if err := rows.Scan(&d.ID, &d.UserID, &d.ChatID, &d.Platform, &d.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate devices: %w", err)
	}
	return out, nil
}

func (r *deviceRepo) Delete(ctx context.Context, tx ports.Tx, id uuid.UUID) error {
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM devices WHERE id = $1`, id); err != nil {
		r.s.log.Error().Err(err).Str("device_id", id.String()).Msg("Failed to delete device")
		return fmt.Errorf("delete device: %w", err)
	}
	return nil
}
