package domain

import (
	"time"

	"github.com/google/uuid"
)

// Device is a push-notification endpoint registered by a user. For the
// Telegram transport the ChatID is the bot chat to deliver to.
type Device struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	ChatID       int64
	Platform     string
	RegisteredAt time.Time
}
