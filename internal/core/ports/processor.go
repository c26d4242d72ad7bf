package ports

import (
	"context"

	"github.com/google/uuid"
)

// EventProcessor turns one durable event into a side effect. Any component
// that can "handle one event by id" can be registered with the worker
// before it starts listening.
type EventProcessor interface {
	Handle(ctx context.Context, eventID uuid.UUID) error
}
