package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrMissingField — не заполнено обязательное поле пользователя.
var ErrMissingField = errors.New("missing required field")

// User - модель пользователя в системе.
// Сессия хранится вместе с пользователем: у пользователя ровно одна
// активная тройка (session_token, refresh_token, session_expiration).
type User struct {
	ID           uuid.UUID
	Name         string
	Username     string
	Email        string
	PasswordHash string `json:"-"`
	Session      Session
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser собирает нового пользователя с проверкой обязательных полей.
// ID и таймстемпы проставляются здесь; сессию выдаёт сервисный слой.
func NewUser(name, username, email, passwordHash string) (*User, error) {
	const op = "models.NewUser"

	fields := []struct {
		name  string
		value string
	}{
		{"name", name},
		{"username", username},
		{"email", email},
		{"password_hash", passwordHash},
	}

	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return nil, fmt.Errorf("%s: %w: %s", op, ErrMissingField, f.name)
		}
	}

	now := time.Now().UTC()

	return &User{
		ID:           uuid.New(),
		Name:         name,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
