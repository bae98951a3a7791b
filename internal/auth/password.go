package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch — пароль не совпадает с хэшем.
var ErrPasswordMismatch = errors.New("пароль не совпадает")

// PasswordHasher — хэширование и проверка паролей через bcrypt.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher создаёт PasswordHasher.
// cost <= 0 — bcrypt.DefaultCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash возвращает bcrypt-хэш пароля.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("хэширование пароля: %w", err)
	}
	return string(hashed), nil
}

// Compare проверяет пароль. ErrPasswordMismatch при несовпадении.
func (h *PasswordHasher) Compare(hashed, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return fmt.Errorf("проверка пароля: %w", err)
}
