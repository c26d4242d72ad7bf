package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"splitpot/internal/core/domain"
)

func testGroup(memberIDs ...uuid.UUID) *domain.Group {
	g := &domain.Group{ID: uuid.New(), Name: "Trip", CreatedAt: time.Now().UTC().Add(-48 * time.Hour)}
	for _, id := range memberIDs {
		g.Members = append(g.Members, domain.Member{UserID: id})
	}
	return g
}

func TestBalancesForPeriod_EqualSplit(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	group := testGroup(a, b, c)
	now := time.Now().UTC()

	expenses := []domain.Expense{
		{ID: uuid.New(), GroupID: group.ID, PaidBy: a, AmountCents: 3000, Date: now.Add(-time.Hour)},
	}

	balances := balancesForPeriod(group, expenses, now.Add(-24*time.Hour), now)
	if balances[a] != 2000 {
		t.Errorf("payer balance %d, want 2000", balances[a])
	}
	if balances[b] != -1000 || balances[c] != -1000 {
		t.Errorf("debtor balances %d, %d, want -1000 each", balances[b], balances[c])
	}
}

func TestBalancesForPeriod_RemainderStaysWithPayer(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	group := testGroup(a, b, c)
	now := time.Now().UTC()

	// 1000 does not divide by 3; each non-payer owes 333 and the stray
	// cent stays with the payer.
	expenses := []domain.Expense{
		{ID: uuid.New(), GroupID: group.ID, PaidBy: a, AmountCents: 1000, Date: now.Add(-time.Hour)},
	}

	balances := balancesForPeriod(group, expenses, now.Add(-24*time.Hour), now)
	if balances[a] != 667 {
		t.Errorf("payer balance %d, want 667", balances[a])
	}
	if balances[b] != -333 || balances[c] != -333 {
		t.Errorf("debtor balances %d, %d, want -333 each", balances[b], balances[c])
	}

	var sum int64
	for _, v := range balances {
		sum += v
	}
	if sum != 0 {
		t.Errorf("balances do not net to zero: %d", sum)
	}
}

func TestBalancesForPeriod_WindowIsHalfOpen(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	group := testGroup(a, b)
	start := time.Now().UTC().Add(-24 * time.Hour)
	end := time.Now().UTC()

	expenses := []domain.Expense{
		// Exactly at start: included.
		{ID: uuid.New(), GroupID: group.ID, PaidBy: a, AmountCents: 1000, Date: start},
		// Before start: excluded.
		{ID: uuid.New(), GroupID: group.ID, PaidBy: a, AmountCents: 9999, Date: start.Add(-time.Minute)},
		// Exactly at end: excluded.
		{ID: uuid.New(), GroupID: group.ID, PaidBy: a, AmountCents: 9999, Date: end},
	}

	balances := balancesForPeriod(group, expenses, start, end)
	if balances[a] != 500 || balances[b] != -500 {
		t.Errorf("balances %d, %d, want 500, -500", balances[a], balances[b])
	}
}

func TestBalancesForPeriod_DepartedPayerIsSkipped(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	departed := uuid.New()
	group := testGroup(a, b)
	now := time.Now().UTC()

	expenses := []domain.Expense{
		{ID: uuid.New(), GroupID: group.ID, PaidBy: departed, AmountCents: 5000, Date: now.Add(-time.Hour)},
	}

	balances := balancesForPeriod(group, expenses, now.Add(-24*time.Hour), now)
	if balances[a] != 0 || balances[b] != 0 {
		t.Errorf("expense by a departed member affected balances: %v", balances)
	}
}

func TestNetTransfers_OneCreditorTwoDebtors(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	balances := map[uuid.UUID]int64{a: 2000, b: -1000, c: -1000}

	transfers := netTransfers(balances)
	if len(transfers) != 2 {
		t.Fatalf("expected 2 transfers, got %d: %+v", len(transfers), transfers)
	}
	for _, tr := range transfers {
		if tr.To != a || tr.AmountCents != 1000 {
			t.Errorf("unexpected transfer %+v", tr)
		}
		if tr.From != b && tr.From != c {
			t.Errorf("transfer from unknown member %+v", tr)
		}
	}
}

func TestNetTransfers_ChainsAcrossCreditors(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	// c owes 3000 split across two creditors.
	balances := map[uuid.UUID]int64{a: 2000, b: 1000, c: -3000}

	transfers := netTransfers(balances)
	if len(transfers) != 2 {
		t.Fatalf("expected 2 transfers, got %d: %+v", len(transfers), transfers)
	}
	// Largest creditor first.
	if transfers[0].From != c || transfers[0].To != a || transfers[0].AmountCents != 2000 {
		t.Errorf("first transfer %+v, want c->a 2000", transfers[0])
	}
	if transfers[1].From != c || transfers[1].To != b || transfers[1].AmountCents != 1000 {
		t.Errorf("second transfer %+v, want c->b 1000", transfers[1])
	}
}

func TestNetTransfers_BalancedGroupProducesNone(t *testing.T) {
	if transfers := netTransfers(map[uuid.UUID]int64{uuid.New(): 0, uuid.New(): 0}); len(transfers) != 0 {
		t.Errorf("expected no transfers, got %+v", transfers)
	}
}

func TestSettle_EndToEnd(t *testing.T) {
	f := newGroupFixture(t)
	ctx := context.Background()
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	carol := f.seedUser(t, "carol")

	group, err := f.svc.CreateGroup(ctx, alice.ID, "Trip", domain.Color{})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if err := f.svc.AddMember(ctx, group.ID, bob.ID, domain.Color{}); err != nil {
		t.Fatalf("add bob: %v", err)
	}
	if err := f.svc.AddMember(ctx, group.ID, carol.ID, domain.Color{}); err != nil {
		t.Fatalf("add carol: %v", err)
	}
	if _, err := f.svc.AddExpense(ctx, group.ID, alice.ID, "Hotel", 3000, time.Now().UTC()); err != nil {
		t.Fatalf("add expense: %v", err)
	}

	settlement, err := f.svc.Settle(ctx, group.ID, alice.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if len(settlement.Transactions) != 2 {
		t.Fatalf("expected 2 transfers, got %+v", settlement.Transactions)
	}
	for _, tr := range settlement.Transactions {
		if tr.To != alice.ID || tr.AmountCents != 1000 {
			t.Errorf("unexpected transfer %+v", tr)
		}
	}

	settled := eventsOfKind(f.store.AllEvents(), domain.KindGroupSettled)
	if len(settled) != 1 {
		t.Fatalf("expected one group.settled event, got %d", len(settled))
	}
	event := settled[0].(domain.GroupSettled)
	if event.SettlementID != settlement.ID || len(event.Transactions) != 2 {
		t.Errorf("event does not match settlement: %+v", event)
	}

	// A second settlement right away covers an empty window.
	again, err := f.svc.Settle(ctx, group.ID, alice.ID)
	if err != nil {
		t.Fatalf("second settle: %v", err)
	}
	if len(again.Transactions) != 0 {
		t.Errorf("fresh window produced transfers: %+v", again.Transactions)
	}
	if !again.Start.Equal(settlement.End) {
		t.Errorf("second window starts at %v, want previous end %v", again.Start, settlement.End)
	}
}
