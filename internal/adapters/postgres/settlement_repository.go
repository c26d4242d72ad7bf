package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"splitpot/internal/core/domain"
	"splitpot/internal/core/ports"
)

// settlementRepo stores the transaction list as a jsonb column; settlements
// are written once and never updated.
type settlementRepo struct{ s *Store }

var _ ports.SettlementRepository = (*settlementRepo)(nil)

func (r *settlementRepo) Save(ctx context.Context, tx ports.Tx, settlement *domain.Settlement) error {
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}

	transactions, err := json.Marshal(settlement.Transactions)
	if err != nil {
		return fmt.Errorf("encode settlement transactions: %w", err)
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO settlements (id, group_id, period_start, period_end, transactions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, settlement.ID, settlement.GroupID, settlement.Start, settlement.End, transactions, settlement.CreatedAt)
	if err != nil {
		r.s.log.Error().Err(err).Str("settlement_id", settlement.ID.String()).Msg("Failed to save settlement")
		return fmt.Errorf("save settlement: %w", err)
	}
	return nil
}

func (r *settlementRepo) scanSettlement(row pgx.Row) (*domain.Settlement, error) {
	var (
		s            domain.Settlement
		transactions []byte
	)
	err := row.Scan(&s.ID, &s.GroupID, &s.Start, &s.End, &transactions, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.s.log.Error().Err(err).Msg("Failed to scan settlement row")
		return nil, fmt.Errorf("scan settlement: %w", err)
	}
	if err := json.Unmarshal(transactions, &s.Transactions); err != nil {
		return nil, fmt.Errorf("%w: settlement %s transactions: %v", ports.ErrCorruptedData, s.ID, err)
	}
	return &s, nil
}

const settlementCols = `id, group_id, period_start, period_end, transactions, created_at`

func (r *settlementRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Settlement, error) {
	row := r.s.db.pool.QueryRow(ctx, `SELECT `+settlementCols+` FROM settlements WHERE id = $1`, id)
	return r.scanSettlement(row)
}

func (r *settlementRepo) LatestByGroup(ctx context.Context, groupID uuid.UUID) (*domain.Settlement, error) {
	row := r.s.db.pool.QueryRow(ctx,
		`SELECT `+settlementCols+` FROM settlements WHERE group_id = $1 ORDER BY period_end DESC LIMIT 1`, groupID)
	return r.scanSettlement(row)
}
