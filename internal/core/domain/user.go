package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account holder.
type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
