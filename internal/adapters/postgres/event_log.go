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

// eventLog persists events as {id, occurred_at, processed_at, kind, payload}.
// The payload is the JSON body tagged by kind; decoding is the defensive
// boundary where corrupted rows are caught.
type eventLog struct{ s *Store }

var _ ports.EventLog = (*eventLog)(nil)

func (l *eventLog) Save(ctx context.Context, tx ports.Tx, events []domain.Event) error {
	t, err := l.s.tx(tx)
	if err != nil {
		return err
	}

	for _, e := range events {
		payload, err := domain.EncodeEvent(e)
		if err != nil {
			return fmt.Errorf("save event %s: %w", e.EventID(), err)
		}

		_, err = t.tx.Exec(ctx,
			`INSERT INTO events (id, occurred_at, kind, payload) VALUES ($1, $2, $3, $4)`,
			e.EventID(), e.When(), string(e.Kind()), payload,
		)
		if err != nil {
			l.s.log.Error().Err(err).Str("event_id", e.EventID().String()).Msg("Failed to insert event")
			return fmt.Errorf("insert event %s: %w", e.EventID(), err)
		}
	}
	return nil
}

func (l *eventLog) Find(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	var (
		kind    string
		payload []byte
	)
	row := l.s.db.pool.QueryRow(ctx, `SELECT kind, payload FROM events WHERE id = $1`, id)
	if err := row.Scan(&kind, &payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		l.s.log.Error().Err(err).Str("event_id", id.String()).Msg("Failed to read event row")
		return nil, fmt.Errorf("find event %s: %w", id, err)
	}

	event, err := domain.DecodeEvent(domain.Kind(kind), payload)
	if err != nil {
		// A row we cannot reconstruct is a store invariant violation,
		// not a transient failure.
		l.s.log.Error().Err(err).Str("event_id", id.String()).Str("kind", kind).Msg("Stored event failed to decode")
		return nil, fmt.Errorf("%w: event %s: %v", ports.ErrCorruptedData, id, err)
	}
	return event, nil
}

func (l *eventLog) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	// COALESCE keeps the first stamp, so repeated or concurrent marks
	// converge to "processed" and never revert.
	tag, err := l.s.db.pool.Exec(ctx,
		`UPDATE events SET processed_at = COALESCE(processed_at, now()) WHERE id = $1`, id)
	if err != nil {
		l.s.log.Error().Err(err).Str("event_id", id.String()).Msg("Failed to mark event processed")
		return fmt.Errorf("mark event %s processed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ports.ErrEventNotFound, id)
	}
	return nil
}
