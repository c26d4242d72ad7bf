// Package worker consumes event ids from the bus and redelivers the durable
// events to every registered processor. It is the only long-running task
// besides the HTTP server; both share the same store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"splitpot/internal/core/domain"
	"splitpot/internal/core/ports"
)

// ErrBusClosed is the fatal error Listen returns when the transport dies.
var ErrBusClosed = errors.New("event bus subscription closed")

var errNotVisibleYet = errors.New("event not visible yet")

// Worker drives the per-event pipeline: notified id, fetched event,
// dispatched to processors, marked processed. One Listen loop per instance;
// running several workers against the same bus needs a claim scheme this
// design does not have.
type Worker struct {
	log        zerolog.Logger
	bus        ports.EventBus
	events     ports.EventLog
	processors []ports.EventProcessor

	fetchBaseDelay time.Duration
	fetchRetries   uint64
}

// New creates a worker bound to a bus and the durable log.
func New(bus ports.EventBus, events ports.EventLog, baseLogger *zerolog.Logger) *Worker {
	return &Worker{
		log:            baseLogger.With().Str("component", "worker").Logger(),
		bus:            bus,
		events:         events,
		fetchBaseDelay: 50 * time.Millisecond,
		fetchRetries:   4,
	}
}

// Register attaches a processor. Must be called before Listen; processors
// run for every event in registration order.
func (w *Worker) Register(p ports.EventProcessor) {
	w.processors = append(w.processors, p)
}

// Listen consumes ids until the context is cancelled or the transport
// fails. Processor errors never terminate the loop.
func (w *Worker) Listen(ctx context.Context) error {
	ch, err := w.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	w.log.Info().Int("processors", len(w.processors)).Msg("Worker listening for events")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id, ok := <-ch:
			if !ok {
				return ErrBusClosed
			}
			w.handle(ctx, id)
		}
	}
}

func (w *Worker) handle(ctx context.Context, id uuid.UUID) {
	log := w.log.With().Str("event_id", id.String()).Logger()

	event, err := w.fetch(ctx, id)
	if err != nil {
		// Either the id never became visible or the row is corrupted.
		// Nothing re-delivers a lost id later; the event stays durable
		// but un-dispatched.
		log.Error().Err(err).Msg("Giving up on event")
		return
	}

	for i, p := range w.processors {
		if err := p.Handle(ctx, event.EventID()); err != nil {
			// One processor failing must not starve the others.
			log.Error().Err(err).Int("processor", i).Str("kind", string(event.Kind())).Msg("Processor failed")
		}
	}

	// Marked processed regardless of processor outcomes; a processor
	// failure does not trigger redelivery in this design.
	if err := w.events.MarkProcessed(ctx, id); err != nil {
		log.Error().Err(err).Msg("Failed to mark event processed")
	}
}

// fetch reads the event from the log, retrying briefly when the id is not
// visible yet: publish happens after commit, but the worker can still race
// ahead of read replicas or pool visibility. The backoff is capped so a
// permanently missing id cannot stall the loop.
func (w *Worker) fetch(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	var event domain.Event

	backoff := retry.WithMaxRetries(w.fetchRetries, retry.NewExponential(w.fetchBaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		e, err := w.events.Find(ctx, id)
		if err != nil {
			// Corrupted or infrastructure errors are not retryable here.
			return err
		}
		if e == nil {
			return retry.RetryableError(errNotVisibleYet)
		}
		event = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}
