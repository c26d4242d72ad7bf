package ports

import (
	"context"

	"github.com/google/uuid"

	"splitpot/internal/core/domain"
)

// EventLog is the durable, append-only record of domain events. It is the
// single source of truth the worker re-reads from; the bus only carries ids.
type EventLog interface {
	// Save appends events as part of the caller's transaction. It never
	// commits. Input order is preserved for events sharing an aggregate.
	Save(ctx context.Context, tx Tx, events []domain.Event) error

	// Find returns the stored event, or (nil, nil) when the id is unknown.
	// ErrCorruptedData when the stored representation cannot be decoded
	// into a known kind.
	Find(ctx context.Context, id uuid.UUID) (domain.Event, error)

	// MarkProcessed stamps processed_at with the current time. Idempotent:
	// repeated calls keep the first timestamp and never unset it.
	// ErrEventNotFound when the id is unknown.
	MarkProcessed(ctx context.Context, id uuid.UUID) error
}
