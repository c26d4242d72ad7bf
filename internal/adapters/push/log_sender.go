package push

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"splitpot/internal/core/ports"
)

// logSender writes notifications to the log instead of delivering them.
// Used when no transport is configured, so the pipeline stays exercisable
// in development.
type logSender struct {
	log zerolog.Logger
}

var _ ports.PushSender = (*logSender)(nil)

// NewLogSender creates the log-only transport.
func NewLogSender(baseLogger *zerolog.Logger) ports.PushSender {
	return &logSender{log: baseLogger.With().Str("component", "log_push").Logger()}
}

func (s *logSender) Send(ctx context.Context, recipientID uuid.UUID, title, body string) error {
	s.log.Info().
		Str("recipient", recipientID.String()).
		Str("title", title).
		Str("body", body).
		Msg("Push notification (log transport)")
	return nil
}
