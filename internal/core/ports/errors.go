package ports

import "errors"

var (
	// ErrCorruptedData means the store holds something that violates its own
	// invariants (undecodable event, malformed credential hash). Distinct
	// from transient infrastructure failures so operators can tell
	// "retry later" apart from "needs repair".
	ErrCorruptedData = errors.New("corrupted data in store")

	// ErrEventNotFound is returned by EventLog.MarkProcessed for an unknown
	// id. Plain lookups report absence as (nil, nil) instead.
	ErrEventNotFound = errors.New("event not found")

	// ErrInvalidTx means a repository received a transaction handle that was
	// not produced by its own store backend.
	ErrInvalidTx = errors.New("transaction does not belong to this store")
)
