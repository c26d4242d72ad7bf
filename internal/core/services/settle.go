package services

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"splitpot/internal/core/domain"
)

// balancesForPeriod computes each member's net position in cents over
// [start, end): positive means the group owes them, negative means they owe
// the group. Expenses are split equally among the current members; the
// remainder cents of an uneven split stay with the payer.
func balancesForPeriod(group *domain.Group, expenses []domain.Expense, start, end time.Time) map[uuid.UUID]int64 {
	balances := make(map[uuid.UUID]int64, len(group.Members))
	for _, m := range group.Members {
		balances[m.UserID] = 0
	}
	if len(group.Members) == 0 {
		return balances
	}

	n := int64(len(group.Members))
	for _, e := range expenses {
		if e.Date.Before(start) || !e.Date.Before(end) {
			continue
		}
		if _, ok := balances[e.PaidBy]; !ok {
			// Paid by someone who has since left; skip rather than
			// invent a balance for a non-member.
			continue
		}
		share := e.AmountCents / n
		for _, m := range group.Members {
			if m.UserID == e.PaidBy {
				balances[m.UserID] += e.AmountCents - share
			} else {
				balances[m.UserID] -= share
			}
		}
	}
	return balances
}

// netTransfers greedily matches the largest debtor with the largest
// creditor until everything nets out. Deterministic: ties break on user id.
func netTransfers(balances map[uuid.UUID]int64) []domain.Transaction {
	type position struct {
		id    uuid.UUID
		cents int64
	}

	var creditors, debtors []position
	for id, cents := range balances {
		switch {
		case cents > 0:
			creditors = append(creditors, position{id, cents})
		case cents < 0:
			debtors = append(debtors, position{id, -cents})
		}
	}
	byAmount := func(ps []position) func(i, j int) bool {
		return func(i, j int) bool {
			if ps[i].cents != ps[j].cents {
				return ps[i].cents > ps[j].cents
			}
			return ps[i].id.String() < ps[j].id.String()
		}
	}
	sort.Slice(creditors, byAmount(creditors))
	sort.Slice(debtors, byAmount(debtors))

	var out []domain.Transaction
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := debtors[i].cents
		if creditors[j].cents < amount {
			amount = creditors[j].cents
		}
		out = append(out, domain.Transaction{
			From:        debtors[i].id,
			To:          creditors[j].id,
			AmountCents: amount,
		})
		debtors[i].cents -= amount
		creditors[j].cents -= amount
		if debtors[i].cents == 0 {
			i++
		}
		if creditors[j].cents == 0 {
			j++
		}
	}
	return out
}
