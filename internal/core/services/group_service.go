package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"splitpot/internal/core/domain"
	"splitpot/internal/core/ports"
)

// GroupService covers the group aggregate: membership, expenses, and
// settlements.
type GroupService struct {
	log   zerolog.Logger
	store ports.Store
	bus   ports.EventBus
}

// NewGroupService wires the group use cases.
func NewGroupService(store ports.Store, bus ports.EventBus, baseLogger *zerolog.Logger) *GroupService {
	return &GroupService{
		log:   baseLogger.With().Str("component", "group_service").Logger(),
		store: store,
		bus:   bus,
	}
}

// CreateGroup starts a group with the creator as its first member.
func (s *GroupService) CreateGroup(ctx context.Context, creatorID uuid.UUID, name string, color domain.Color) (*domain.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: group name must not be empty", ErrValidation)
	}
	creator, err := s.store.Users().GetByID(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("look up creator: %w", err)
	}
	if creator == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, creatorID)
	}

	now := time.Now().UTC()
	group := &domain.Group{
		ID:   uuid.New(),
		Name: name,
		Members: []domain.Member{
			{UserID: creatorID, Color: color, JoinedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	event := domain.NewGroupCreated(group.ID, creatorID, name, color)

	if err := s.commitGroup(ctx, group, event); err != nil {
		return nil, err
	}
	s.log.Info().Str("group_id", group.ID.String()).Str("name", name).Msg("Group created")
	return group, nil
}

// AddMember joins a user to the group.
func (s *GroupService) AddMember(ctx context.Context, groupID, userID uuid.UUID, color domain.Color) error {
	group, err := s.requireGroup(ctx, groupID)
	if err != nil {
		return err
	}
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if group.MemberByID(userID) != nil {
		return fmt.Errorf("%w: user %s is already a member", ErrValidation, userID)
	}

	group.Members = append(group.Members, domain.Member{
		UserID:   userID,
		Color:    color,
		JoinedAt: time.Now().UTC(),
	})
	group.UpdatedAt = time.Now().UTC()

	return s.commitGroup(ctx, group, domain.NewMemberJoined(groupID, userID, color))
}

// ChangeMemberColor updates a member's badge color.
func (s *GroupService) ChangeMemberColor(ctx context.Context, groupID, memberID uuid.UUID, color domain.Color) error {
	group, err := s.requireGroup(ctx, groupID)
	if err != nil {
		return err
	}
	member := group.MemberByID(memberID)
	if member == nil {
		return fmt.Errorf("%w: user %s is not a member of group %s", ErrValidation, memberID, groupID)
	}
	prev := member.Color
	if prev == color {
		return fmt.Errorf("%w: color is unchanged", ErrValidation)
	}
	member.Color = color
	group.UpdatedAt = time.Now().UTC()

	return s.commitGroup(ctx, group, domain.NewMemberColorChanged(groupID, memberID, prev, color))
}

// AddExpense records a cost paid by one member.
func (s *GroupService) AddExpense(ctx context.Context, groupID, paidBy uuid.UUID, description string, amountCents int64, date time.Time) (*domain.Expense, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("%w: expense description must not be empty", ErrValidation)
	}
	if amountCents <= 0 {
		return nil, fmt.Errorf("%w: expense amount must be positive", ErrValidation)
	}

	group, err := s.requireGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.MemberByID(paidBy) == nil {
		return nil, fmt.Errorf("%w: payer %s is not a member of group %s", ErrValidation, paidBy, groupID)
	}
	if date.IsZero() {
		date = time.Now().UTC()
	}

	now := time.Now().UTC()
	expense := &domain.Expense{
		ID:          uuid.New(),
		GroupID:     groupID,
		PaidBy:      paidBy,
		Description: description,
		AmountCents: amountCents,
		Date:        date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	event := domain.NewExpenseCreated(groupID, paidBy, expense.ID, description, amountCents, date)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin add expense: %w", err)
	}
	defer rollback(ctx, tx, s.log)

	if err := s.store.Expenses().Save(ctx, tx, expense); err != nil {
		return nil, err
	}
	if err := s.store.Events().Save(ctx, tx, []domain.Event{event}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	publishEvents(ctx, s.bus, s.log, event)
	return expense, nil
}

// ModifyExpense changes an expense's description or amount.
func (s *GroupService) ModifyExpense(ctx context.Context, expenseID, actorID uuid.UUID, description string, amountCents int64) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return fmt.Errorf("%w: expense description must not be empty", ErrValidation)
	}
	if amountCents <= 0 {
		return fmt.Errorf("%w: expense amount must be positive", ErrValidation)
	}

	expense, err := s.store.Expenses().GetByID(ctx, expenseID)
	if err != nil {
		return fmt.Errorf("look up expense: %w", err)
	}
	if expense == nil {
		return fmt.Errorf("%w: expense %s", ErrNotFound, expenseID)
	}
	group, err := s.requireGroup(ctx, expense.GroupID)
	if err != nil {
		return err
	}
	if group.MemberByID(actorID) == nil {
		return fmt.Errorf("%w: user %s is not a member of group %s", ErrValidation, actorID, group.ID)
	}

	event := domain.NewExpenseModified(expense.GroupID, actorID, expenseID,
		expense.Description, description, expense.AmountCents, amountCents)

	expense.Description = description
	expense.AmountCents = amountCents
	expense.UpdatedAt = time.Now().UTC()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin modify expense: %w", err)
	}
	defer rollback(ctx, tx, s.log)

	if err := s.store.Expenses().Save(ctx, tx, expense); err != nil {
		return err
	}
	if err := s.store.Events().Save(ctx, tx, []domain.Event{event}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	publishEvents(ctx, s.bus, s.log, event)
	return nil
}

// DeleteExpense removes an expense.
func (s *GroupService) DeleteExpense(ctx context.Context, expenseID, actorID uuid.UUID) error {
	expense, err := s.store.Expenses().GetByID(ctx, expenseID)
	if err != nil {
		return fmt.Errorf("look up expense: %w", err)
	}
	if expense == nil {
		return fmt.Errorf("%w: expense %s", ErrNotFound, expenseID)
	}
	group, err := s.requireGroup(ctx, expense.GroupID)
	if err != nil {
		return err
	}
	if group.MemberByID(actorID) == nil {
		return fmt.Errorf("%w: user %s is not a member of group %s", ErrValidation, actorID, group.ID)
	}

	event := domain.NewExpenseDeleted(expense.GroupID, actorID, expenseID)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete expense: %w", err)
	}
	defer rollback(ctx, tx, s.log)

	if err := s.store.Expenses().Delete(ctx, tx, expenseID); err != nil {
		return err
	}
	if err := s.store.Events().Save(ctx, tx, []domain.Event{event}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	publishEvents(ctx, s.bus, s.log, event)
	return nil
}

// Settle nets the group's expenses since the previous settlement into a
// minimal list of transfers and records GroupSettled.
func (s *GroupService) Settle(ctx context.Context, groupID, actorID uuid.UUID) (*domain.Settlement, error) {
	group, err := s.requireGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.MemberByID(actorID) == nil {
		return nil, fmt.Errorf("%w: user %s is not a member of group %s", ErrValidation, actorID, groupID)
	}

	previous, err := s.store.Settlements().LatestByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("look up previous settlement: %w", err)
	}
	start := group.CreatedAt
	if previous != nil {
		start = previous.End
	}
	end := time.Now().UTC()

	expenses, err := s.store.Expenses().ListByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	balances := balancesForPeriod(group, expenses, start, end)
	settlement := &domain.Settlement{
		ID:           uuid.New(),
		GroupID:      groupID,
		Start:        start,
		End:          end,
		Transactions: netTransfers(balances),
		CreatedAt:    end,
	}
	event := domain.NewGroupSettled(groupID, actorID, settlement.ID, start, end, settlement.Transactions)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin settle: %w", err)
	}
	defer rollback(ctx, tx, s.log)

	if err := s.store.Settlements().Save(ctx, tx, settlement); err != nil {
		return nil, err
	}
	if err := s.store.Events().Save(ctx, tx, []domain.Event{event}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	publishEvents(ctx, s.bus, s.log, event)
	s.log.Info().Str("group_id", groupID.String()).Int("transfers", len(settlement.Transactions)).Msg("Group settled")
	return settlement, nil
}

// DeleteGroup removes the group and its expenses.
func (s *GroupService) DeleteGroup(ctx context.Context, groupID, actorID uuid.UUID) error {
	group, err := s.requireGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.MemberByID(actorID) == nil {
		return fmt.Errorf("%w: user %s is not a member of group %s", ErrValidation, actorID, groupID)
	}

	expenses, err := s.store.Expenses().ListByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("list expenses: %w", err)
	}

	event := domain.NewGroupDeleted(groupID, actorID)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete group: %w", err)
	}
	defer rollback(ctx, tx, s.log)

	for _, e := range expenses {
		if err := s.store.Expenses().Delete(ctx, tx, e.ID); err != nil {
			return err
		}
	}
	if err := s.store.Groups().Delete(ctx, tx, groupID); err != nil {
		return err
	}
	if err := s.store.Events().Save(ctx, tx, []domain.Event{event}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	publishEvents(ctx, s.bus, s.log, event)
	s.log.Info().Str("group_id", groupID.String()).Msg("Group deleted")
	return nil
}

func (s *GroupService) requireGroup(ctx context.Context, groupID uuid.UUID) (*domain.Group, error) {
	group, err := s.store.Groups().GetByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("look up group: %w", err)
	}
	if group == nil {
		return nil, fmt.Errorf("%w: group %s", ErrNotFound, groupID)
	}
	return group, nil
}

// commitGroup saves the group and one event in a single unit of work, then
// publishes.
func (s *GroupService) commitGroup(ctx context.Context, group *domain.Group, event domain.Event) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin group write: %w", err)
	}
	defer rollback(ctx, tx, s.log)

	if err := s.store.Groups().Save(ctx, tx, group); err != nil {
		return err
	}
	if err := s.store.Events().Save(ctx, tx, []domain.Event{event}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	publishEvents(ctx, s.bus, s.log, event)
	return nil
}
