package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"

	"splitpot/internal/adapters/eventbus"
	"splitpot/internal/adapters/memory"
	"splitpot/internal/core/domain"
	"splitpot/internal/core/ports"
)

// --- Mocks ---

type MockProcessor struct {
	mock.Mock
}

var _ ports.EventProcessor = (*MockProcessor)(nil)

func (m *MockProcessor) Handle(ctx context.Context, eventID uuid.UUID) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

// flakyLog hides an event for the first few lookups to simulate the worker
// racing ahead of read-after-write visibility.
type flakyLog struct {
	ports.EventLog

	mu     sync.Mutex
	hidden uuid.UUID
	misses int
}

func (l *flakyLog) Find(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	l.mu.Lock()
	if id == l.hidden && l.misses > 0 {
		l.misses--
		l.mu.Unlock()
		return nil, nil
	}
	l.mu.Unlock()
	return l.EventLog.Find(ctx, id)
}

// --- Helpers ---

func newTestWorker(t *testing.T, events ports.EventLog, bus ports.EventBus) *Worker {
	t.Helper()
	nopLogger := zerolog.Nop()
	w := New(bus, events, &nopLogger)
	w.fetchBaseDelay = time.Millisecond
	return w
}

func saveEvent(t *testing.T, s *memory.Store, event domain.Event) {
	t.Helper()
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := s.Events().Save(ctx, tx, []domain.Event{event}); err != nil {
		t.Fatalf("save event: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

// --- Tests ---

func TestListen_DispatchesAndMarksProcessed(t *testing.T) {
	nopLogger := zerolog.Nop()
	store := memory.NewStore(&nopLogger)
	bus := eventbus.NewMemoryBus(8, &nopLogger)

	event := domain.NewUserLoggedIn(uuid.New())
	saveEvent(t, store, event)

	processor := new(MockProcessor)
	processor.On("Handle", mock.Anything, event.EventID()).Return(nil).Once()

	w := newTestWorker(t, store.Events(), bus)
	w.Register(processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Listen(ctx) }()

	if err := bus.Publish(ctx, []uuid.UUID{event.EventID()}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		at, err := store.ProcessedAt(event.EventID())
		return err == nil && at != nil
	})

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Listen returned %v, want context.Canceled", err)
	}
	processor.AssertExpectations(t)
}

func TestListen_OneFailingProcessorDoesNotStopTheOthers(t *testing.T) {
	nopLogger := zerolog.Nop()
	store := memory.NewStore(&nopLogger)
	bus := eventbus.NewMemoryBus(8, &nopLogger)

	first := domain.NewUserLoggedIn(uuid.New())
	second := domain.NewUserLoggedOut(uuid.New())
	saveEvent(t, store, first)
	saveEvent(t, store, second)

	failing := new(MockProcessor)
	failing.On("Handle", mock.Anything, mock.Anything).Return(errors.New("boom"))

	healthy := new(MockProcessor)
	healthy.On("Handle", mock.Anything, first.EventID()).Return(nil).Once()
	healthy.On("Handle", mock.Anything, second.EventID()).Return(nil).Once()

	w := newTestWorker(t, store.Events(), bus)
	w.Register(failing)
	w.Register(healthy)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Listen(ctx) }()

	if err := bus.Publish(ctx, []uuid.UUID{first.EventID(), second.EventID()}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	// Both events end up processed despite the failing processor.
	waitFor(t, time.Second, func() bool {
		a, errA := store.ProcessedAt(first.EventID())
		b, errB := store.ProcessedAt(second.EventID())
		return errA == nil && errB == nil && a != nil && b != nil
	})
	healthy.AssertExpectations(t)
}

func TestListen_RetriesWhenEventNotYetVisible(t *testing.T) {
	nopLogger := zerolog.Nop()
	store := memory.NewStore(&nopLogger)
	bus := eventbus.NewMemoryBus(8, &nopLogger)

	event := domain.NewUserLoggedIn(uuid.New())
	saveEvent(t, store, event)

	// The first two fetches miss, as if the publish raced ahead of the
	// log read.
	log := &flakyLog{EventLog: store.Events(), hidden: event.EventID(), misses: 2}

	processor := new(MockProcessor)
	processor.On("Handle", mock.Anything, event.EventID()).Return(nil).Once()

	w := newTestWorker(t, log, bus)
	w.Register(processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Listen(ctx) }()

	if err := bus.Publish(ctx, []uuid.UUID{event.EventID()}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		at, err := store.ProcessedAt(event.EventID())
		return err == nil && at != nil
	})
	processor.AssertExpectations(t)
}

func TestListen_GivesUpOnPermanentlyMissingID(t *testing.T) {
	nopLogger := zerolog.Nop()
	store := memory.NewStore(&nopLogger)
	bus := eventbus.NewMemoryBus(8, &nopLogger)

	known := domain.NewUserLoggedIn(uuid.New())
	saveEvent(t, store, known)

	processor := new(MockProcessor)
	processor.On("Handle", mock.Anything, known.EventID()).Return(nil).Once()

	w := newTestWorker(t, store.Events(), bus)
	w.Register(processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Listen(ctx) }()

	// A ghost id first: the bounded retry must give up and the loop must
	// still process the next notification.
	if err := bus.Publish(ctx, []uuid.UUID{uuid.New(), known.EventID()}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		at, err := store.ProcessedAt(known.EventID())
		return err == nil && at != nil
	})
	processor.AssertExpectations(t)
}

// closingBus hands out an already-closed channel, as a transport that died.
type closingBus struct{}

func (closingBus) Publish(ctx context.Context, ids []uuid.UUID) error { return nil }

func (closingBus) Subscribe(ctx context.Context) (<-chan uuid.UUID, error) {
	ch := make(chan uuid.UUID)
	close(ch)
	return ch, nil
}

func TestListen_TransportFailureIsFatal(t *testing.T) {
	nopLogger := zerolog.Nop()
	store := memory.NewStore(&nopLogger)

	w := newTestWorker(t, store.Events(), closingBus{})

	err := w.Listen(context.Background())
	if !errors.Is(err, ErrBusClosed) {
		t.Fatalf("expected ErrBusClosed, got %v", err)
	}
}
