package domain

import (
	"time"

	"github.com/google/uuid"
)

// Credential holds a user's password hash. The clear password never enters
// the domain; hashing happens at the service boundary.
type Credential struct {
	UserID       uuid.UUID
	PasswordHash string
	UpdatedAt    time.Time
}
