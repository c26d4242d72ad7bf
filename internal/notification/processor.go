// Package notification translates domain events into push notifications.
// It is one processor among potentially many; the worker calls it with an
// event id and it re-reads everything it needs from the store.
package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"splitpot/internal/core/domain"
	"splitpot/internal/core/ports"
)

// Processor implements ports.EventProcessor for push dispatch.
type Processor struct {
	log    zerolog.Logger
	store  ports.Store
	sender ports.PushSender
}

var _ ports.EventProcessor = (*Processor)(nil)

// NewProcessor creates the push-notification processor.
func NewProcessor(store ports.Store, sender ports.PushSender, baseLogger *zerolog.Logger) *Processor {
	return &Processor{
		log:    baseLogger.With().Str("component", "notification_processor").Logger(),
		store:  store,
		sender: sender,
	}
}

// notice is one rendered notification and its recipient set.
type notice struct {
	title      string
	body       string
	recipients []uuid.UUID
}

// Handle fetches the event, renders it, and sends once per recipient.
// Send failures are wrapped and returned; the worker logs and continues.
func (p *Processor) Handle(ctx context.Context, eventID uuid.UUID) error {
	event, err := p.store.Events().Find(ctx, eventID)
	if err != nil {
		return fmt.Errorf("fetch event %s: %w", eventID, err)
	}
	if event == nil {
		return fmt.Errorf("event %s not in log", eventID)
	}

	n, err := p.render(ctx, event)
	if err != nil {
		return err
	}
	if n == nil {
		// Not every event maps to a notification.
		return nil
	}

	var failed int
	for _, recipient := range n.recipients {
		if err := p.sender.Send(ctx, recipient, n.title, n.body); err != nil {
			p.log.Error().Err(err).Str("recipient", recipient.String()).Str("event_id", eventID.String()).Msg("Push delivery failed")
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("event %s: %d of %d push deliveries failed", eventID, failed, len(n.recipients))
	}
	return nil
}

// render maps every event kind to a notification. The type switch is the
// exhaustive consumer of the closed event set.
func (p *Processor) render(ctx context.Context, event domain.Event) (*notice, error) {
	switch e := event.(type) {
	case domain.UserCreated:
		return &notice{
			title:      "Welcome to Splitpot",
			body:       fmt.Sprintf("Hi %s, your account is ready.", e.Name),
			recipients: []uuid.UUID{e.UserID},
		}, nil

	case domain.UserLoggedIn, domain.UserLoggedOut, domain.UserDeleted:
		// Session and account-removal events carry no push.
		return nil, nil

	case domain.GroupCreated:
		// The creator is the only member at this point and is the actor,
		// so there is nobody to notify.
		return nil, nil

	case domain.MemberJoined:
		group, actor, err := p.groupAndActor(ctx, e.GroupID, e.MemberID)
		if err != nil || group == nil {
			return nil, err
		}
		return &notice{
			title:      group.Name,
			body:       fmt.Sprintf("%s joined the group.", actor),
			recipients: othersInGroup(group, e.MemberID),
		}, nil

	case domain.MemberColorChanged:
		group, actor, err := p.groupAndActor(ctx, e.GroupID, e.MemberID)
		if err != nil || group == nil {
			return nil, err
		}
		return &notice{
			title:      group.Name,
			body:       fmt.Sprintf("%s picked a new color.", actor),
			recipients: othersInGroup(group, e.MemberID),
		}, nil

	case domain.ExpenseCreated:
		group, actor, err := p.groupAndActor(ctx, e.GroupID, e.MemberID)
		if err != nil || group == nil {
			return nil, err
		}
		return &notice{
			title:      fmt.Sprintf("New expense in %s", group.Name),
			body:       fmt.Sprintf("%s added %q for %s.", actor, e.Description, formatAmount(e.AmountCents)),
			recipients: othersInGroup(group, e.MemberID),
		}, nil

	case domain.ExpenseModified:
		group, actor, err := p.groupAndActor(ctx, e.GroupID, e.MemberID)
		if err != nil || group == nil {
			return nil, err
		}
		return &notice{
			title:      fmt.Sprintf("Expense updated in %s", group.Name),
			body:       fmt.Sprintf("%s changed %q to %s.", actor, e.NewDescription, formatAmount(e.NewAmountCents)),
			recipients: othersInGroup(group, e.MemberID),
		}, nil

	case domain.ExpenseDeleted:
		group, actor, err := p.groupAndActor(ctx, e.GroupID, e.MemberID)
		if err != nil || group == nil {
			return nil, err
		}
		return &notice{
			title:      fmt.Sprintf("Expense removed in %s", group.Name),
			body:       fmt.Sprintf("%s removed an expense.", actor),
			recipients: othersInGroup(group, e.MemberID),
		}, nil

	case domain.GroupSettled:
		group, actor, err := p.groupAndActor(ctx, e.GroupID, e.MemberID)
		if err != nil || group == nil {
			return nil, err
		}
		// Everyone gets the settle-up summary, including the actor.
		recipients := make([]uuid.UUID, 0, len(group.Members))
		for _, m := range group.Members {
			recipients = append(recipients, m.UserID)
		}
		return &notice{
			title:      fmt.Sprintf("%s settled up", group.Name),
			body:       fmt.Sprintf("%s settled the group: %d transfers to make.", actor, len(e.Transactions)),
			recipients: recipients,
		}, nil

	case domain.GroupDeleted:
		// The group row is gone by the time we dispatch, so the member
		// list cannot be resolved anymore. Nothing to send.
		return nil, nil

	default:
		return nil, fmt.Errorf("no notification mapping for event kind %s", event.Kind())
	}
}

// groupAndActor resolves the group and a display name for the acting
// member. A group deleted between commit and dispatch yields (nil, "", nil)
// and the notification is skipped.
func (p *Processor) groupAndActor(ctx context.Context, groupID, actorID uuid.UUID) (*domain.Group, string, error) {
	group, err := p.store.Groups().GetByID(ctx, groupID)
	if err != nil {
		return nil, "", fmt.Errorf("fetch group %s: %w", groupID, err)
	}
	if group == nil {
		p.log.Debug().Str("group_id", groupID.String()).Msg("Group vanished before dispatch, skipping notification")
		return nil, "", nil
	}

	actor := "Someone"
	user, err := p.store.Users().GetByID(ctx, actorID)
	if err != nil {
		return nil, "", fmt.Errorf("fetch user %s: %w", actorID, err)
	}
	if user != nil {
		actor = user.Name
	}
	return group, actor, nil
}

func othersInGroup(group *domain.Group, actorID uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	for _, m := range group.Members {
		if m.UserID != actorID {
			out = append(out, m.UserID)
		}
	}
	return out
}

func formatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
