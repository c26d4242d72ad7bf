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

type expenseRepo struct{ s *Store }

var _ ports.ExpenseRepository = (*expenseRepo)(nil)

const expenseCols = `id, group_id, paid_by, description, amount_cents, date, created_at, updated_at`

func (r *expenseRepo) Save(ctx context.Context, tx ports.Tx, expense *domain.Expense) error {
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO expenses (id, group_id, paid_by, description, amount_cents, date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			description = EXCLUDED.description,
			amount_cents = EXCLUDED.amount_cents,
			date = EXCLUDED.date,
			updated_at = now()
	`, expense.ID, expense.GroupID, expense.PaidBy, expense.Description,
		expense.AmountCents, expense.Date, expense.CreatedAt, expense.UpdatedAt)
	if err != nil {
		r.s.log.Error().Err(err).Str("expense_id", expense.ID.String()).Msg("Failed to save expense")
		return fmt.Errorf("save expense: %w", err)
	}
	return nil
}

func scanExpense(row pgx.Row) (*domain.Expense, error) {
	var e domain.Expense
	err := row.Scan(&e.ID, &e.GroupID, &e.PaidBy, &e.Description, &e.AmountCents, &e.Date, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *expenseRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Expense, error) {
	row := r.s.db.pool.QueryRow(ctx, `SELECT `+expenseCols+` FROM expenses WHERE id = $1`, id)
	e, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.s.log.Error().Err(err).Str("expense_id", id.String()).Msg("Failed to scan expense row")
		return nil, fmt.Errorf("scan expense: %w", err)
	}
	return e, nil
}

func (r *expenseRepo) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]domain.Expense, error) {
	rows, err := r.s.db.pool.Query(ctx,
		`SELECT `+expenseCols+` FROM expenses WHERE group_id = $1 ORDER BY date`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []domain.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func (r *expenseRepo) Delete(ctx context.Context, tx ports.Tx, id uuid.UUID) error {
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id); err != nil {
		r.s.log.Error().Err(err).Str("expense_id", id.String()).Msg("Failed to delete expense")
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}
