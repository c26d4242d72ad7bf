package telegram

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"splitpot/internal/core/domain"
	"splitpot/internal/core/services"
)

type fakeRegistrar struct {
	known  uuid.UUID
	calls  []int64
	failed bool
}

func (f *fakeRegistrar) RegisterDevice(ctx context.Context, userID uuid.UUID, chatID int64, platform string) (*domain.Device, error) {
	if f.failed {
		return nil, fmt.Errorf("registration broke")
	}
	if userID != f.known {
		return nil, fmt.Errorf("%w: user %s", services.ErrNotFound, userID)
	}
	f.calls = append(f.calls, chatID)
	return &domain.Device{ID: uuid.New(), UserID: userID, ChatID: chatID, Platform: platform}, nil
}

func newTestBot(registrar DeviceRegistrar) *LinkBot {
	nopLogger := zerolog.Nop()
	return &LinkBot{log: nopLogger, registrar: registrar, workers: 1}
}

func TestHandleCommand_LinkRegistersTheChat(t *testing.T) {
	registrar := &fakeRegistrar{known: uuid.New()}
	bot := newTestBot(registrar)

	reply := bot.handleCommand(context.Background(), 42, "link", registrar.known.String())
	if !strings.Contains(reply, "Linked") {
		t.Errorf("unexpected reply: %q", reply)
	}
	if len(registrar.calls) != 1 || registrar.calls[0] != 42 {
		t.Errorf("registrar calls %v, want [42]", registrar.calls)
	}
}

func TestHandleCommand_LinkRejectsMalformedID(t *testing.T) {
	registrar := &fakeRegistrar{known: uuid.New()}
	bot := newTestBot(registrar)

	reply := bot.handleCommand(context.Background(), 42, "link", "not-a-uuid")
	if !strings.Contains(reply, "does not look like") {
		t.Errorf("unexpected reply: %q", reply)
	}
	if len(registrar.calls) != 0 {
		t.Errorf("malformed id reached the registrar: %v", registrar.calls)
	}
}

func TestHandleCommand_LinkUnknownAccount(t *testing.T) {
	bot := newTestBot(&fakeRegistrar{known: uuid.New()})

	reply := bot.handleCommand(context.Background(), 42, "link", uuid.New().String())
	if !strings.Contains(reply, "No account") {
		t.Errorf("unexpected reply: %q", reply)
	}
}

func TestHandleCommand_RegistrarFailureIsNotLeaked(t *testing.T) {
	bot := newTestBot(&fakeRegistrar{failed: true})

	reply := bot.handleCommand(context.Background(), 42, "link", uuid.New().String())
	if strings.Contains(reply, "registration broke") {
		t.Errorf("internal error leaked to the user: %q", reply)
	}
	if !strings.Contains(reply, "try again") {
		t.Errorf("unexpected reply: %q", reply)
	}
}

func TestHandleCommand_UnknownCommandIsIgnored(t *testing.T) {
	bot := newTestBot(&fakeRegistrar{})

	if reply := bot.handleCommand(context.Background(), 42, "frobnicate", ""); reply != "" {
		t.Errorf("expected no reply for unknown command, got %q", reply)
	}
}
