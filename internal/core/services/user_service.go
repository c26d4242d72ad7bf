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

// UserService covers account lifecycle: register, login, logout, delete,
// plus push-device registration.
type UserService struct {
	log    zerolog.Logger
	store  ports.Store
	bus    ports.EventBus
	hasher ports.PasswordHasher
}

// NewUserService wires the account use cases.
func NewUserService(store ports.Store, bus ports.EventBus, hasher ports.PasswordHasher, baseLogger *zerolog.Logger) *UserService {
	return &UserService{
		log:    baseLogger.With().Str("component", "user_service").Logger(),
		store:  store,
		bus:    bus,
		hasher: hasher,
	}
}

// Register creates an account with its credential and records UserCreated,
// all in one unit of work.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email %q is not valid", ErrValidation, email)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	existing, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check existing email: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email %q is already registered", ErrValidation, email)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{ID: uuid.New(), Name: name, Email: email, CreatedAt: now, UpdatedAt: now}
	credential := &domain.Credential{UserID: user.ID, PasswordHash: hash, UpdatedAt: now}
	event := domain.NewUserCreated(user.ID, user.Name, user.Email)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin register: %w", err)
	}
	defer rollback(ctx, tx, s.log)

	if err := s.store.Users().Save(ctx, tx, user); err != nil {
		return nil, err
	}
	if err := s.store.Credentials().Save(ctx, tx, credential); err != nil {
		return nil, err
	}
	if err := s.store.Events().Save(ctx, tx, []domain.Event{event}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	publishEvents(ctx, s.bus, s.log, event)
	s.log.Info().Str("user_id", user.ID.String()).Msg("User registered")
	return user, nil
}

// Login verifies the password and records UserLoggedIn.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	credential, err := s.store.Credentials().GetByUserID(ctx, user.ID)
	if err != nil {
		// Corrupted hash surfaces here; it must not masquerade as a
		// wrong password.
		return nil, fmt.Errorf("look up credential: %w", err)
	}
	if credential == nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(credential.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	event := domain.NewUserLoggedIn(user.ID)
	if err := s.appendEvent(ctx, event); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout records UserLoggedOut.
func (s *UserService) Logout(ctx context.Context, userID uuid.UUID) error {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return s.appendEvent(ctx, domain.NewUserLoggedOut(userID))
}

// Delete removes the account, its credential, and its devices, and records
// UserDeleted in the same unit of work.
func (s *UserService) Delete(ctx context.Context, userID uuid.UUID) error {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}

	devices, err := s.store.Devices().ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}

	event := domain.NewUserDeleted(userID)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer rollback(ctx, tx, s.log)

	if err := s.store.Credentials().Delete(ctx, tx, userID); err != nil {
		return err
	}
	for _, d := range devices {
		if err := s.store.Devices().Delete(ctx, tx, d.ID); err != nil {
			return err
		}
	}
	if err := s.store.Users().Delete(ctx, tx, userID); err != nil {
		return err
	}
	if err := s.store.Events().Save(ctx, tx, []domain.Event{event}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	publishEvents(ctx, s.bus, s.log, event)
	s.log.Info().Str("user_id", userID.String()).Msg("User deleted")
	return nil
}

// RegisterDevice attaches a push endpoint to the account. No event: device
// churn is not domain-significant.
func (s *UserService) RegisterDevice(ctx context.Context, userID uuid.UUID, chatID int64, platform string) (*domain.Device, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if platform == "" {
		platform = "telegram"
	}

	device := &domain.Device{
		ID:           uuid.New(),
		UserID:       userID,
		ChatID:       chatID,
		Platform:     platform,
		RegisteredAt: time.Now().UTC(),
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin device registration: %w", err)
	}
	defer rollback(ctx, tx, s.log)

	if err := s.store.Devices().Save(ctx, tx, device); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return device, nil
}

// appendEvent persists a single event in its own unit of work and then
// publishes it.
func (s *UserService) appendEvent(ctx context.Context, event domain.Event) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin event append: %w", err)
	}
	defer rollback(ctx, tx, s.log)

	if err := s.store.Events().Save(ctx, tx, []domain.Event{event}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	publishEvents(ctx, s.bus, s.log, event)
	return nil
}
