package ports

import (
	"context"

	"github.com/google/uuid"

	"splitpot/internal/core/domain"
)

// Write methods take the caller's Tx so that entity mutations and event
// appends land in the same unit of work. Reads run against committed state
// and take no handle.
//
// Lookups return (nil, nil) when the entity does not exist.

// UserRepository defines the persistence operations for users.
type UserRepository interface {
	Save(ctx context.Context, tx Tx, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Delete(ctx context.Context, tx Tx, id uuid.UUID) error
}

// GroupRepository defines the persistence operations for groups and their
// memberships.
type GroupRepository interface {
	Save(ctx context.Context, tx Tx, group *domain.Group) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error)
	Delete(ctx context.Context, tx Tx, id uuid.UUID) error
}

// ExpenseRepository defines the persistence operations for expenses.
type ExpenseRepository interface {
	Save(ctx context.Context, tx Tx, expense *domain.Expense) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Expense, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]domain.Expense, error)
	Delete(ctx context.Context, tx Tx, id uuid.UUID) error
}

// SettlementRepository defines the persistence operations for settlements.
type SettlementRepository interface {
	Save(ctx context.Context, tx Tx, settlement *domain.Settlement) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Settlement, error)
	LatestByGroup(ctx context.Context, groupID uuid.UUID) (*domain.Settlement, error)
}

// DeviceRepository defines the persistence operations for push endpoints.
type DeviceRepository interface {
	Save(ctx context.Context, tx Tx, device *domain.Device) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Device, error)
	Delete(ctx context.Context, tx Tx, id uuid.UUID) error
}

// CredentialRepository defines the persistence operations for password
// credentials. GetByUserID reports ErrCorruptedData when the stored hash
// fails its shape invariant.
type CredentialRepository interface {
	Save(ctx context.Context, tx Tx, credential *domain.Credential) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Credential, error)
	Delete(ctx context.Context, tx Tx, userID uuid.UUID) error
}
