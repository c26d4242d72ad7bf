package ports

import (
	"context"

	"github.com/google/uuid"
)

// EventBus signals "new events exist" between the request-serving task and
// the worker. Delivery is best effort: durability comes from the EventLog,
// never from the bus.
type EventBus interface {
	// Publish announces the given event ids. Must only be called after the
	// transaction that saved them has committed; a publish failure does
	// not undo the committed state and is handled by logging.
	Publish(ctx context.Context, ids []uuid.UUID) error

	// Subscribe hands out the consumer channel. The channel closes when the
	// underlying transport fails terminally; the ids carried on it are
	// hints, consumers always re-fetch from the log.
	Subscribe(ctx context.Context) (<-chan uuid.UUID, error)
}
