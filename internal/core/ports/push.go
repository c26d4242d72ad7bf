package ports

import (
	"context"

	"github.com/google/uuid"
)

// PushSender delivers one notification to every endpoint a recipient has
// registered. The transport behind it is external to the core.
type PushSender interface {
	Send(ctx context.Context, recipientID uuid.UUID, title, body string) error
}
