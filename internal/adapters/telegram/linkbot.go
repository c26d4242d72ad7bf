// Package telegram runs the account-linking bot. Pushes go out through the
// same bot token; this side listens for /link so a user can attach their
// chat as a push device.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"splitpot/internal/core/domain"
	"splitpot/internal/core/services"
)

// DeviceRegistrar is the slice of the user service the bot needs.
type DeviceRegistrar interface {
	RegisterDevice(ctx context.Context, userID uuid.UUID, chatID int64, platform string) (*domain.Device, error)
}

// LinkBot polls Telegram for updates and answers the linking commands.
type LinkBot struct {
	log       zerolog.Logger
	api       *tgbotapi.BotAPI
	registrar DeviceRegistrar
	workers   int
}

// NewLinkBot creates the bot around an authorized API client.
func NewLinkBot(api *tgbotapi.BotAPI, registrar DeviceRegistrar, baseLogger *zerolog.Logger) *LinkBot {
	return &LinkBot{
		log:       baseLogger.With().Str("component", "link_bot").Logger(),
		api:       api,
		registrar: registrar,
		workers:   4,
	}
}

// Run polls for updates until the context is cancelled. Updates are fanned
// out to a small worker pool so one slow registration cannot stall the
// polling loop.
func (b *LinkBot) Run(ctx context.Context) error {
	// Polling and webhooks are mutually exclusive on Telegram's side.
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.log.Warn().Err(err).Msg("Failed to delete webhook (continuing anyway)")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	jobs := make(chan tgbotapi.Update, 100)
	var wg sync.WaitGroup
	for w := 1; w <= b.workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			log := b.log.With().Int("worker_id", id).Logger()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-jobs:
					if !ok {
						return
					}
					b.handleUpdate(log.WithContext(context.Background()), &job)
				}
			}
		}(w)
	}

	b.log.Info().Int("workers", b.workers).Msg("Link bot polling for updates")
	for {
		select {
		case <-ctx.Done():
			close(jobs)
			b.api.StopReceivingUpdates()
			wg.Wait()
			b.log.Info().Msg("Link bot stopped")
			return ctx.Err()
		case update := <-updates:
			jobs <- update
		}
	}
}

func (b *LinkBot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	msg := update.Message

	reply := b.handleCommand(ctx, msg.Chat.ID, msg.Command(), msg.CommandArguments())
	if reply == "" {
		return
	}
	if _, err := b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, reply)); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("Failed to send reply")
	}
}

// handleCommand maps a command to its reply text. An empty reply means the
// update is ignored.
func (b *LinkBot) handleCommand(ctx context.Context, chatID int64, command, args string) string {
	switch command {
	case "start":
		return "Welcome to Splitpot.\nSend /link <your account id> to receive group notifications here."

	case "link":
		userID, err := uuid.Parse(strings.TrimSpace(args))
		if err != nil {
			return "That does not look like an account id. Usage: /link <your account id>"
		}
		if _, err := b.registrar.RegisterDevice(ctx, userID, chatID, "telegram"); err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return "No account with that id."
			}
			zerolog.Ctx(ctx).Error().Err(err).Str("user_id", userID.String()).Msg("Device registration failed")
			return "Something went wrong, please try again later."
		}
		zerolog.Ctx(ctx).Info().Str("user_id", userID.String()).Int64("chat_id", chatID).Msg("Chat linked")
		return fmt.Sprintf("Linked. Notifications for account %s will arrive in this chat.", userID)

	case "":
		// Plain text without a command.
		return "Send /link <your account id> to get started."

	default:
		return ""
	}
}
