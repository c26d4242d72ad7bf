package domain

import (
	"time"

	"github.com/google/uuid"
)

// Expense is a cost paid by one member on behalf of the whole group.
// Amounts are stored in cents to avoid float drift.
type Expense struct {
	ID          uuid.UUID
	GroupID     uuid.UUID
	PaidBy      uuid.UUID
	Description string
	AmountCents int64
	Date        time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
