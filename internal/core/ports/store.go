package ports

import "context"

// Tx is an opaque unit-of-work handle. It is owned by the use case that
// opened it: repositories borrow it for single writes, and it is consumed
// by Commit. A Tx that is never committed leaves no visible effects.
type Tx interface {
	// Commit makes every write issued against this handle durable and
	// visible atomically.
	Commit(ctx context.Context) error

	// Rollback discards all writes. Safe to call after Commit; it then
	// does nothing.
	Rollback(ctx context.Context) error
}

// Store exposes every repository bound to one storage engine, so a single
// transaction can span writes to multiple entity kinds. One Store instance
// is shared between the request-serving task and the worker task; all
// synchronization lives inside the implementations.
type Store interface {
	// Begin acquires a transaction handle from the backing engine.
	Begin(ctx context.Context) (Tx, error)

	Users() UserRepository
	Groups() GroupRepository
	Expenses() ExpenseRepository
	Settlements() SettlementRepository
	Devices() DeviceRepository
	Credentials() CredentialRepository
	Events() EventLog
}
