// Package services holds the use cases. Each mutating use case follows the
// same shape: validate input, open a unit of work, write entity state and
// events through repositories bound to that unit of work, commit, then
// publish the new event ids on the bus.
package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"splitpot/internal/core/domain"
	"splitpot/internal/core/ports"
)

var (
	// ErrValidation marks malformed domain input, rejected before any
	// state change. No event is ever created for a rejected operation.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a reference to an entity that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials marks a failed login attempt.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// publishEvents announces committed events on the bus. Best effort: the
// events are already durable in the log, so a transport failure is logged
// and not retried.
func publishEvents(ctx context.Context, bus ports.EventBus, log zerolog.Logger, events ...domain.Event) {
	ids := make([]uuid.UUID, len(events))
	for i, e := range events {
		ids[i] = e.EventID()
	}
	if err := bus.Publish(ctx, ids); err != nil {
		log.Warn().Err(err).Int("events", len(ids)).Msg("Failed to publish event ids")
	}
}

// rollback discards an unfinished unit of work. A no-op after commit.
func rollback(ctx context.Context, tx ports.Tx, log zerolog.Logger) {
	if err := tx.Rollback(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to roll back transaction")
	}
}
