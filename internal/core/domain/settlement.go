package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is one "from pays to" transfer inside a settlement.
type Transaction struct {
	From        uuid.UUID `json:"from"`
	To          uuid.UUID `json:"to"`
	AmountCents int64     `json:"amount_cents"`
}

// Settlement nets out the group's expenses over a period into a minimal
// list of transfers.
type Settlement struct {
	ID           uuid.UUID
	GroupID      uuid.UUID
	Start        time.Time
	End          time.Time
	Transactions []Transaction
	CreatedAt    time.Time
}
