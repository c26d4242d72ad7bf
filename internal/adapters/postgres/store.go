package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"splitpot/internal/core/ports"
)

// Store implements ports.Store over a pgx pool. Writes go through a pgTx;
// reads run directly against the pool and see committed state only.
type Store struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.Store = (*Store)(nil)

// NewStore wraps an established pool as a ports.Store.
func NewStore(db *DB, baseLogger *zerolog.Logger) *Store {
	return &Store{
		db:  db,
		log: baseLogger.With().Str("component", "pg_store").Logger(),
	}
}

// Begin opens one physical transaction for the caller's unit of work.
func (s *Store) Begin(ctx context.Context) (ports.Tx, error) {
	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to begin transaction")
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

func (s *Store) Users() ports.UserRepository             { return &userRepo{s} }
func (s *Store) Groups() ports.GroupRepository           { return &groupRepo{s} }
func (s *Store) Expenses() ports.ExpenseRepository       { return &expenseRepo{s} }
func (s *Store) Settlements() ports.SettlementRepository { return &settlementRepo{s} }
func (s *Store) Devices() ports.DeviceRepository         { return &deviceRepo{s} }
func (s *Store) Credentials() ports.CredentialRepository { return &credentialRepo{s} }
func (s *Store) Events() ports.EventLog                  { return &eventLog{s} }

// tx unwraps the opaque handle back into the pgx transaction.
func (s *Store) tx(handle ports.Tx) (*pgTx, error) {
	t, ok := handle.(*pgTx)
	if !ok {
		return nil, ports.ErrInvalidTx
	}
	return t, nil
}

type pgTx struct {
	tx pgx.Tx
}

var _ ports.Tx = (*pgTx)(nil)

func (t *pgTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}
