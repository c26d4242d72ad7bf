package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"splitpot/internal/adapters/memory"
	"splitpot/internal/core/domain"
	"splitpot/internal/core/ports"
)

// recordingBus captures published ids and checks, at publish time, whether
// each id is already readable from the durable log. Publish must only ever
// see committed events.
type recordingBus struct {
	log ports.EventLog

	mu        sync.Mutex
	published []uuid.UUID
	durable   map[uuid.UUID]bool
}

var _ ports.EventBus = (*recordingBus)(nil)

func newRecordingBus(log ports.EventLog) *recordingBus {
	return &recordingBus{log: log, durable: make(map[uuid.UUID]bool)}
}

func (b *recordingBus) Publish(ctx context.Context, ids []uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range ids {
		b.published = append(b.published, id)
		event, err := b.log.Find(ctx, id)
		b.durable[id] = err == nil && event != nil
	}
	return nil
}

func (b *recordingBus) Subscribe(ctx context.Context) (<-chan uuid.UUID, error) {
	return nil, errors.New("recording bus has no subscribers")
}

type groupFixture struct {
	store *memory.Store
	bus   *recordingBus
	svc   *GroupService
}

func newGroupFixture(t *testing.T) *groupFixture {
	t.Helper()
	nopLogger := zerolog.Nop()
	store := memory.NewStore(&nopLogger)
	bus := newRecordingBus(store.Events())
	return &groupFixture{
		store: store,
		bus:   bus,
		svc:   NewGroupService(store, bus, &nopLogger),
	}
}

func (f *groupFixture) seedUser(t *testing.T, name string) *domain.User {
	t.Helper()
	ctx := context.Background()
	user := &domain.User{ID: uuid.New(), Name: name, Email: name + "@example.com", CreatedAt: time.Now().UTC()}
	tx, err := f.store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := f.store.Users().Save(ctx, tx, user); err != nil {
		t.Fatalf("save user: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return user
}

func eventsOfKind(events []domain.Event, kind domain.Kind) []domain.Event {
	var out []domain.Event
	for _, e := range events {
		if e.Kind() == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestCreateGroup_RecordsExactlyOneEventAndPublishesAfterCommit(t *testing.T) {
	f := newGroupFixture(t)
	ctx := context.Background()
	alice := f.seedUser(t, "alice")

	group, err := f.svc.CreateGroup(ctx, alice.ID, "Trip", domain.Color{G: 255})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if len(group.Members) != 1 || group.Members[0].UserID != alice.ID {
		t.Fatalf("creator is not the sole member: %+v", group.Members)
	}

	created := eventsOfKind(f.store.AllEvents(), domain.KindGroupCreated)
	if len(created) != 1 {
		t.Fatalf("expected exactly one group.created event, got %d", len(created))
	}
	event := created[0].(domain.GroupCreated)
	if event.GroupID != group.ID || event.Name != "Trip" {
		t.Errorf("event does not describe the group: %+v", event)
	}

	if len(f.bus.published) != 1 || f.bus.published[0] != event.EventID() {
		t.Fatalf("published ids %v, want [%v]", f.bus.published, event.EventID())
	}
	if !f.bus.durable[event.EventID()] {
		t.Error("event id was published before the event was durable")
	}
}

func TestCreateGroup_RejectedInputLeavesNoTrace(t *testing.T) {
	f := newGroupFixture(t)
	ctx := context.Background()
	alice := f.seedUser(t, "alice")

	_, err := f.svc.CreateGroup(ctx, alice.ID, "   ", domain.Color{})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if n := len(f.store.AllEvents()); n != 0 {
		t.Errorf("rejected operation recorded %d events", n)
	}
	if len(f.bus.published) != 0 {
		t.Errorf("rejected operation published %d ids", len(f.bus.published))
	}
}

func TestCreateGroup_UnknownCreator(t *testing.T) {
	f := newGroupFixture(t)

	_, err := f.svc.CreateGroup(context.Background(), uuid.New(), "Trip", domain.Color{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddMember_DuplicateIsRejected(t *testing.T) {
	f := newGroupFixture(t)
	ctx := context.Background()
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")

	group, err := f.svc.CreateGroup(ctx, alice.ID, "Trip", domain.Color{})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if err := f.svc.AddMember(ctx, group.ID, bob.ID, domain.Color{B: 255}); err != nil {
		t.Fatalf("add member: %v", err)
	}
	err = f.svc.AddMember(ctx, group.ID, bob.ID, domain.Color{R: 255})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for duplicate member, got %v", err)
	}

	if n := len(eventsOfKind(f.store.AllEvents(), domain.KindMemberJoined)); n != 1 {
		t.Errorf("expected one member_joined event, got %d", n)
	}
}

func TestChangeMemberColor_RecordsOldAndNew(t *testing.T) {
	f := newGroupFixture(t)
	ctx := context.Background()
	alice := f.seedUser(t, "alice")

	group, err := f.svc.CreateGroup(ctx, alice.ID, "Trip", domain.Color{R: 10, G: 20, B: 30})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	next := domain.Color{R: 200}
	if err := f.svc.ChangeMemberColor(ctx, group.ID, alice.ID, next); err != nil {
		t.Fatalf("change color: %v", err)
	}

	changed := eventsOfKind(f.store.AllEvents(), domain.KindMemberColorChanged)
	if len(changed) != 1 {
		t.Fatalf("expected one color change event, got %d", len(changed))
	}
	event := changed[0].(domain.MemberColorChanged)
	if event.Prev != (domain.Color{R: 10, G: 20, B: 30}) || event.New != next {
		t.Errorf("event colors wrong: %+v", event)
	}

	stored, err := f.store.Groups().GetByID(ctx, group.ID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if stored.MemberByID(alice.ID).Color != next {
		t.Errorf("stored color not updated: %+v", stored.MemberByID(alice.ID))
	}
}

func TestAddExpense_EventFaultRollsBackTheExpense(t *testing.T) {
	f := newGroupFixture(t)
	ctx := context.Background()
	alice := f.seedUser(t, "alice")

	group, err := f.svc.CreateGroup(ctx, alice.ID, "Trip", domain.Color{})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	f.store.SetFault(memory.CollectionEvents, true)
	_, err = f.svc.AddExpense(ctx, group.ID, alice.ID, "Dinner", 4200, time.Now().UTC())
	if !errors.Is(err, ports.ErrCorruptedData) {
		t.Fatalf("expected ErrCorruptedData, got %v", err)
	}
	f.store.SetFault(memory.CollectionEvents, false)

	// The expense write and the event write share one unit of work, so the
	// failed event save must take the expense down with it.
	expenses, err := f.store.Expenses().ListByGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(expenses) != 0 {
		t.Errorf("expense persisted without its event: %+v", expenses)
	}
}

func TestModifyExpense_CarriesBothVersions(t *testing.T) {
	f := newGroupFixture(t)
	ctx := context.Background()
	alice := f.seedUser(t, "alice")

	group, err := f.svc.CreateGroup(ctx, alice.ID, "Trip", domain.Color{})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	expense, err := f.svc.AddExpense(ctx, group.ID, alice.ID, "Dinner", 4200, time.Now().UTC())
	if err != nil {
		t.Fatalf("add expense: %v", err)
	}

	if err := f.svc.ModifyExpense(ctx, expense.ID, alice.ID, "Dinner with tip", 5000); err != nil {
		t.Fatalf("modify expense: %v", err)
	}

	modified := eventsOfKind(f.store.AllEvents(), domain.KindExpenseModified)
	if len(modified) != 1 {
		t.Fatalf("expected one modification event, got %d", len(modified))
	}
	event := modified[0].(domain.ExpenseModified)
	if event.PrevDescription != "Dinner" || event.NewDescription != "Dinner with tip" {
		t.Errorf("descriptions wrong: %+v", event)
	}
	if event.PrevAmountCents != 4200 || event.NewAmountCents != 5000 {
		t.Errorf("amounts wrong: %+v", event)
	}
}

func TestDeleteGroup_RemovesExpensesWithTheGroup(t *testing.T) {
	f := newGroupFixture(t)
	ctx := context.Background()
	alice := f.seedUser(t, "alice")

	group, err := f.svc.CreateGroup(ctx, alice.ID, "Trip", domain.Color{})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := f.svc.AddExpense(ctx, group.ID, alice.ID, "Dinner", 4200, time.Now().UTC()); err != nil {
		t.Fatalf("add expense: %v", err)
	}

	if err := f.svc.DeleteGroup(ctx, group.ID, alice.ID); err != nil {
		t.Fatalf("delete group: %v", err)
	}

	stored, err := f.store.Groups().GetByID(ctx, group.ID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if stored != nil {
		t.Error("group still present after delete")
	}
	expenses, err := f.store.Expenses().ListByGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(expenses) != 0 {
		t.Errorf("expenses survived the group: %+v", expenses)
	}
	if n := len(eventsOfKind(f.store.AllEvents(), domain.KindGroupDeleted)); n != 1 {
		t.Errorf("expected one group.deleted event, got %d", n)
	}
}
