// Package push contains the notification transports behind
// ports.PushSender.
package push

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"splitpot/internal/core/ports"
)

// telegramSender delivers notifications through a Telegram bot. A recipient
// may have several registered devices (bot chats); each gets the message.
type telegramSender struct {
	api     *tgbotapi.BotAPI
	devices ports.DeviceRepository
	log     zerolog.Logger
}

var _ ports.PushSender = (*telegramSender)(nil)

// NewTelegramSender creates the Telegram push transport.
func NewTelegramSender(api *tgbotapi.BotAPI, devices ports.DeviceRepository, baseLogger *zerolog.Logger) ports.PushSender {
	return &telegramSender{
		api:     api,
		devices: devices,
		log:     baseLogger.With().Str("component", "telegram_push").Logger(),
	}
}

func (s *telegramSender) Send(ctx context.Context, recipientID uuid.UUID, title, body string) error {
	devices, err := s.devices.ListByUser(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("list devices for %s: %w", recipientID, err)
	}
	if len(devices) == 0 {
		// A recipient without devices is not an error; they simply never
		// registered for push.
		s.log.Debug().Str("recipient", recipientID.String()).Msg("No devices registered, skipping push")
		return nil
	}

	var failed int
	for _, d := range devices {
		msg := tgbotapi.NewMessage(d.ChatID, title+"\n"+body)
		if _, err := s.api.Send(msg); err != nil {
			s.log.Error().Err(err).Int64("chat_id", d.ChatID).Msg("Failed to send message")
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("send to %s: %d of %d devices failed", recipientID, failed, len(devices))
	}
	return nil
}
