package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"splitpot/internal/core/domain"
	"splitpot/internal/core/ports"
)

// Entities are stored by value; reads hand out copies so callers can never
// mutate committed state behind the store's back.

type userRepo struct{ s *Store }

var _ ports.UserRepository = (*userRepo)(nil)

func (r *userRepo) Save(ctx context.Context, tx ports.Tx, user *domain.User) error {
	if err := r.s.checkFault(CollectionUsers); err != nil {
		return err
	}
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}
	u := *user
	return t.stage(func() { r.s.users[u.ID] = u })
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if err := r.s.checkFault(CollectionUsers); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := r.s.checkFault(CollectionUsers); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (r *userRepo) Delete(ctx context.Context, tx ports.Tx, id uuid.UUID) error {
	if err := r.s.checkFault(CollectionUsers); err != nil {
		return err
	}
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}
	return t.stage(func() { delete(r.s.users, id) })
}

type groupRepo struct{ s *Store }

var _ ports.GroupRepository = (*groupRepo)(nil)

func copyGroup(g domain.Group) domain.Group {
	g.Members = append([]domain.Member(nil), g.Members...)
	return g
}

func (r *groupRepo) Save(ctx context.Context, tx ports.Tx, group *domain.Group) error {
	if err := r.s.checkFault(CollectionGroups); err != nil {
		return err
	}
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}
	g := copyGroup(*group)
	return t.stage(func() { r.s.groups[g.ID] = g })
}

func (r *groupRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	if err := r.s.checkFault(CollectionGroups); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	g, ok := r.s.groups[id]
	if !ok {
		return nil, nil
	}
	g = copyGroup(g)
	return &g, nil
}

func (r *groupRepo) Delete(ctx context.Context, tx ports.Tx, id uuid.UUID) error {
	if err := r.s.checkFault(CollectionGroups); err != nil {
		return err
	}
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}
	return t.stage(func() { delete(r.s.groups, id) })
}

type expenseRepo struct{ s *Store }

var _ ports.ExpenseRepository = (*expenseRepo)(nil)

func (r *expenseRepo) Save(ctx context.Context, tx ports.Tx, expense *domain.Expense) error {
	if err := r.s.checkFault(CollectionExpenses); err != nil {
		return err
	}
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}
	e := *expense
	return t.stage(func() { r.s.expenses[e.ID] = e })
}

func (r *expenseRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Expense, error) {
	if err := r.s.checkFault(CollectionExpenses); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.expenses[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *expenseRepo) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]domain.Expense, error) {
	if err := r.s.checkFault(CollectionExpenses); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Expense
	for _, e := range r.s.expenses {
		if e.GroupID == groupID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *expenseRepo) Delete(ctx context.Context, tx ports.Tx, id uuid.UUID) error {
	if err := r.s.checkFault(CollectionExpenses); err != nil {
		return err
	}
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}
	return t.stage(func() { delete(r.s.expenses, id) })
}

type settlementRepo struct{ s *Store }

var _ ports.SettlementRepository = (*settlementRepo)(nil)

func copySettlement(s domain.Settlement) domain.Settlement {
	s.Transactions = append([]domain.Transaction(nil), s.Transactions...)
	return s
}

func (r *settlementRepo) Save(ctx context.Context, tx ports.Tx, settlement *domain.Settlement) error {
	if err := r.s.checkFault(CollectionSettlements); err != nil {
		return err
	}
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}
	s := copySettlement(*settlement)
	return t.stage(func() { r.s.settlements[s.ID] = s })
}

func (r *settlementRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Settlement, error) {
	if err := r.s.checkFault(CollectionSettlements); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	s, ok := r.s.settlements[id]
	if !ok {
		return nil, nil
	}
	s = copySettlement(s)
	return &s, nil
}

func (r *settlementRepo) LatestByGroup(ctx context.Context, groupID uuid.UUID) (*domain.Settlement, error) {
	if err := r.s.checkFault(CollectionSettlements); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var latest *domain.Settlement
	for _, s := range r.s.settlements {
		if s.GroupID != groupID {
			continue
		}
		if latest == nil || s.End.After(latest.End) {
			s := copySettlement(s)
			latest = &s
		}
	}
	return latest, nil
}

type deviceRepo struct{ s *Store }

var _ ports.DeviceRepository = (*deviceRepo)(nil)

func (r *deviceRepo) Save(ctx context.Context, tx ports.Tx, device *domain.Device) error {
	if err := r.s.checkFault(CollectionDevices); err != nil {
		return err
	}
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}
	d := *device
	return t.stage(func() { r.s.devices[d.ID] = d })
}

func (r *deviceRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Device, error) {
	if err := r.s.checkFault(CollectionDevices); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Device
	for _, d := range r.s.devices {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out, nil
}

func (r *deviceRepo) Delete(ctx context.Context, tx ports.Tx, id uuid.UUID) error {
	if err := r.s.checkFault(CollectionDevices); err != nil {
		return err
	}
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}
	return t.stage(func() { delete(r.s.devices, id) })
}

type credentialRepo struct{ s *Store }

var _ ports.CredentialRepository = (*credentialRepo)(nil)

func (r *credentialRepo) Save(ctx context.Context, tx ports.Tx, credential *domain.Credential) error {
	if err := r.s.checkFault(CollectionCredentials); err != nil {
		return err
	}
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}
	c := *credential
	return t.stage(func() { r.s.credentials[c.UserID] = c })
}

func (r *credentialRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Credential, error) {
	if err := r.s.checkFault(CollectionCredentials); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.credentials[userID]
	if !ok {
		return nil, nil
	}
	if !strings.HasPrefix(c.PasswordHash, "$2") {
		return nil, fmt.Errorf("%w: malformed credential hash for user %s", ports.ErrCorruptedData, userID)
	}
	return &c, nil
}

func (r *credentialRepo) Delete(ctx context.Context, tx ports.Tx, userID uuid.UUID) error {
	if err := r.s.checkFault(CollectionCredentials); err != nil {
		return err
	}
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}
	return t.stage(func() { delete(r.s.credentials, userID) })
}
