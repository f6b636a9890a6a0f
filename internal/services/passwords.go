package services

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength applies to signup and admin-created accounts.
const MinPasswordLength = 6

type passwordHasher struct {
	cost int
}

func (h passwordHasher) hash(password string) (string, error) {
	cost := h.cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return NewInvalidError("Password must be at least 6 characters long")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
