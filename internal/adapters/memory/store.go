// Package memory is the in-process store backend: mutex-guarded collections
// per entity kind, with staged writes applied atomically at commit. It is
// used for single-process deployments and as the fault-injectable engine in
// tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"splitpot/internal/core/domain"
	"splitpot/internal/core/ports"
)

// Collection names one fault-injectable entity collection.
type Collection int

const (
	CollectionUsers Collection = iota
	CollectionGroups
	CollectionExpenses
	CollectionSettlements
	CollectionDevices
	CollectionCredentials
	CollectionEvents
)

type eventRecord struct {
	event       domain.Event
	processedAt *time.Time
}

// Store implements ports.Store over in-process maps. One instance is shared
// by the request-serving task and the worker; every method locks internally.
type Store struct {
	log zerolog.Logger

	mu          sync.RWMutex
	users       map[uuid.UUID]domain.User
	groups      map[uuid.UUID]domain.Group
	expenses    map[uuid.UUID]domain.Expense
	settlements map[uuid.UUID]domain.Settlement
	devices     map[uuid.UUID]domain.Device
	credentials map[uuid.UUID]domain.Credential
	events      map[uuid.UUID]*eventRecord
	faults      map[Collection]bool
}

var _ ports.Store = (*Store)(nil)

// NewStore creates an empty in-memory store.
func NewStore(baseLogger *zerolog.Logger) *Store {
	return &Store{
		log:         baseLogger.With().Str("component", "memory_store").Logger(),
		users:       make(map[uuid.UUID]domain.User),
		groups:      make(map[uuid.UUID]domain.Group),
		expenses:    make(map[uuid.UUID]domain.Expense),
		settlements: make(map[uuid.UUID]domain.Settlement),
		devices:     make(map[uuid.UUID]domain.Device),
		credentials: make(map[uuid.UUID]domain.Credential),
		events:      make(map[uuid.UUID]*eventRecord),
		faults:      make(map[Collection]bool),
	}
}

// SetFault forces every method of one collection's repository to report a
// corrupted-store error. Other collections are unaffected.
func (s *Store) SetFault(c Collection, broken bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[c] = broken
}

func (s *Store) checkFault(c Collection) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.faults[c] {
		return fmt.Errorf("%w: crashed store", ports.ErrCorruptedData)
	}
	return nil
}

// Begin returns a handle that stages writes until Commit applies them all
// under the store lock.
func (s *Store) Begin(ctx context.Context) (ports.Tx, error) {
	return &memTx{store: s}, nil
}

func (s *Store) Users() ports.UserRepository             { return &userRepo{s} }
func (s *Store) Groups() ports.GroupRepository           { return &groupRepo{s} }
func (s *Store) Expenses() ports.ExpenseRepository       { return &expenseRepo{s} }
func (s *Store) Settlements() ports.SettlementRepository { return &settlementRepo{s} }
func (s *Store) Devices() ports.DeviceRepository         { return &deviceRepo{s} }
func (s *Store) Credentials() ports.CredentialRepository { return &credentialRepo{s} }
func (s *Store) Events() ports.EventLog                  { return &eventLog{s} }

// tx unwraps a handle and rejects ones produced by a different store.
func (s *Store) tx(handle ports.Tx) (*memTx, error) {
	t, ok := handle.(*memTx)
	if !ok || t.store != s {
		return nil, ports.ErrInvalidTx
	}
	return t, nil
}

var errTxFinished = errors.New("transaction already finished")

// memTx stages mutation closures; Commit applies them atomically under the
// store lock. An abandoned handle simply never applies anything.
type memTx struct {
	store *Store

	mu     sync.Mutex
	staged []func()
	done   bool
}

var _ ports.Tx = (*memTx)(nil)

func (t *memTx) stage(apply func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return errTxFinished
	}
	t.staged = append(t.staged, apply)
	return nil
}

func (t *memTx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return errTxFinished
	}
	t.done = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, apply := range t.staged {
		apply()
	}
	t.staged = nil
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	t.staged = nil
	return nil
}
