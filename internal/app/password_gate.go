package app

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidPassword indicates that the supplied shared secret was wrong.
var ErrInvalidPassword = errors.New("invalid password")

// PasswordGate checks the single shared secret that guards write operations.
// Only a bcrypt hash of the secret is kept in memory.
type PasswordGate struct {
	hash []byte
}

// NewPasswordGate builds a gate for secret. A secret that is already a bcrypt
// hash ("$2a$...", "$2b$...", "$2y$...") is used as is; anything else is
// hashed with cost.
func NewPasswordGate(secret string, cost int) (*PasswordGate, error) {
	if secret == "" {
		return nil, errors.New("password gate: secret is required")
	}
	if strings.HasPrefix(secret, "$2") {
		if _, err := bcrypt.Cost([]byte(secret)); err == nil {
			return &PasswordGate{hash: []byte(secret)}, nil
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return nil, err
	}
	return &PasswordGate{hash: hash}, nil
}

// Verify returns ErrInvalidPassword unless password matches the secret.
func (g *PasswordGate) Verify(password string) error {
	if password == "" {
		return ErrInvalidPassword
	}
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(password)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}
