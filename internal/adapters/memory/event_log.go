package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"splitpot/internal/core/domain"
	"splitpot/internal/core/ports"
)

// eventLog is the in-memory durable log. Events are append-only: records
// are never updated apart from the processed_at stamp, and never deleted.
type eventLog struct{ s *Store }

var _ ports.EventLog = (*eventLog)(nil)

func (l *eventLog) Save(ctx context.Context, tx ports.Tx, events []domain.Event) error {
	if err := l.s.checkFault(CollectionEvents); err != nil {
		return err
	}
	t, err := l.s.tx(tx)
	if err != nil {
		return err
	}
	staged := append([]domain.Event(nil), events...)
	return t.stage(func() {
		for _, e := range staged {
			l.s.events[e.EventID()] = &eventRecord{event: e}
		}
	})
}

func (l *eventLog) Find(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	if err := l.s.checkFault(CollectionEvents); err != nil {
		return nil, err
	}
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	rec, ok := l.s.events[id]
	if !ok {
		return nil, nil
	}
	return rec.event, nil
}

func (l *eventLog) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	if err := l.s.checkFault(CollectionEvents); err != nil {
		return err
	}
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	rec, ok := l.s.events[id]
	if !ok {
		return fmt.Errorf("%w: %s", ports.ErrEventNotFound, id)
	}
	// Keep the first stamp: repeated marks converge, never revert.
	if rec.processedAt == nil {
		now := time.Now().UTC()
		rec.processedAt = &now
	}
	return nil
}

// ProcessedAt reports the processed stamp for an event, nil when unprocessed.
// Exposed on the concrete store for tests and diagnostics.
func (s *Store) ProcessedAt(id uuid.UUID) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrEventNotFound, id)
	}
	if rec.processedAt == nil {
		return nil, nil
	}
	at := *rec.processedAt
	return &at, nil
}

// AllEvents snapshots the log ordered by occurrence time. Exposed on the
// concrete store for tests and diagnostics.
func (s *Store) AllEvents() []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Event, 0, len(s.events))
	for _, rec := range s.events {
		out = append(out, rec.event)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].When().Before(out[j].When()) })
	return out
}
