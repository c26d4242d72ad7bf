// Package security implements the password-hashing port.
package security

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"splitpot/internal/core/ports"
)

// ErrPasswordMismatch is returned by Compare for a wrong password.
var ErrPasswordMismatch = errors.New("password does not match")

type bcryptHasher struct {
	cost int
	log  zerolog.Logger
}

var _ ports.PasswordHasher = (*bcryptHasher)(nil)

// NewBcryptHasher creates a hasher with the default bcrypt cost.
func NewBcryptHasher(baseLogger *zerolog.Logger) ports.PasswordHasher {
	return &bcryptHasher{
		cost: bcrypt.DefaultCost,
		log:  baseLogger.With().Str("component", "bcrypt_hasher").Logger(),
	}
}

func (h *bcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to hash password")
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func (h *bcryptHasher) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("compare password: %w", err)
	}
	return nil
}
