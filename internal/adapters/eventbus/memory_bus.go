// Package eventbus carries "new events exist" signals between the
// publishing side and the worker. Both transports move event ids only;
// consumers re-fetch full events from the durable log.
package eventbus

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"splitpot/internal/core/ports"
)

// MemoryBus is the single-process transport: a buffered channel with no
// durability. Ids published while no listener keeps up are dropped, which
// is acceptable because the log, not the bus, owns the events.
type MemoryBus struct {
	log zerolog.Logger
	ch  chan uuid.UUID
}

var _ ports.EventBus = (*MemoryBus)(nil)

// NewMemoryBus creates an in-process bus with the given buffer size.
func NewMemoryBus(buffer int, baseLogger *zerolog.Logger) *MemoryBus {
	return &MemoryBus{
		log: baseLogger.With().Str("component", "memory_bus").Logger(),
		ch:  make(chan uuid.UUID, buffer),
	}
}

// Publish hands each id to the listener without blocking the caller.
func (b *MemoryBus) Publish(ctx context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		select {
		case b.ch <- id:
		default:
			b.log.Warn().Str("event_id", id.String()).Msg("Bus buffer full, dropping notification")
		}
	}
	return nil
}

// Subscribe returns the consumer channel. The channel stays open for the
// life of the process; there is only ever one worker draining it.
func (b *MemoryBus) Subscribe(ctx context.Context) (<-chan uuid.UUID, error) {
	return b.ch, nil
}
