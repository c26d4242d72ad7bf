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

// groupRepo persists groups over two tables: groups and group_members.
// Save replaces the membership set wholesale inside the caller's
// transaction, which keeps the two tables consistent without versioning.
type groupRepo struct{ s *Store }

var _ ports.GroupRepository = (*groupRepo)(nil)

func (r *groupRepo) Save(ctx context.Context, tx ports.Tx, group *domain.Group) error {
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO groups (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			updated_at = now()
	`, group.ID, group.Name, group.CreatedAt, group.UpdatedAt)
	if err != nil {
		r.s.log.Error().Err(err).Str("group_id", group.ID.String()).Msg("Failed to save group")
		return fmt.Errorf("save group: %w", err)
	}

	if _, err := t.tx.Exec(ctx, `DELETE FROM group_members WHERE group_id = $1`, group.ID); err != nil {
		return fmt.Errorf("replace group members: %w", err)
	}
	for _, m := range group.Members {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO group_members (group_id, user_id, color_r, color_g, color_b, joined_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, group.ID, m.UserID, int16(m.Color.R), int16(m.Color.G), int16(m.Color.B), m.JoinedAt)
		if err != nil {
			r.s.log.Error().Err(err).Str("group_id", group.ID.String()).Str("user_id", m.UserID.String()).Msg("Failed to save group member")
			return fmt.Errorf("save group member: %w", err)
		}
	}
	return nil
}

func (r *groupRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	var g domain.Group
	row := r.s.db.pool.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM groups WHERE id = $1`, id)
	if err := row.Scan(&g.ID, &g.Name, &g.CreatedAt, &g.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.s.log.Error().Err(err).Str("group_id", id.String()).Msg("Failed to scan group row")
		return nil, fmt.Errorf("scan group: %w", err)
	}

	rows, err := r.s.db.pool.Query(ctx, `
		SELECT user_id, color_r, color_g, color_b, joined_at
		FROM group_members WHERE group_id = $1 ORDER BY joined_at
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query group members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m       domain.Member
			rc, gc, bc int16
		)
		if err := rows.Scan(&m.UserID, &rc, &gc, &bc, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan group member: %w", err)
		}
		m.Color = domain.Color{R: uint8(rc), G: uint8(gc), B: uint8(bc)}
		g.Members = append(g.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group members: %w", err)
	}
	return &g, nil
}

func (r *groupRepo) Delete(ctx context.Context, tx ports.Tx, id uuid.UUID) error {
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM group_members WHERE group_id = $1`, id); err != nil {
		return fmt.Errorf("delete group members: %w", err)
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM groups WHERE id = $1`, id); err != nil {
		r.s.log.Error().Err(err).Str("group_id", id.String()).Msg("Failed to delete group")
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}
