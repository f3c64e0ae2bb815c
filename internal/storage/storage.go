package storage

//go:generate mockgen -source=storage.go -destination=../../mocks/mock_storage.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/lostfound-auth/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь/токен).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (id/username/email).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создает нового пользователя вместе с его текущей сессией.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UserByUsername находит пользователя по username (точное совпадение).
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	// DeleteUser удаляет пользователя и, вместе с ним, его сессию.
	DeleteUser(ctx context.Context, id uuid.UUID) error
	// UpdatePassword меняет хэш пароля и одновременно выставляет новую сессию.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, session models.Session) error
}

// SessionStorage выполняет операции над тройкой токенов пользователя.
type SessionStorage interface {
	// UserBySessionToken находит владельца session-токена.
	UserBySessionToken(ctx context.Context, token string) (*models.User, error)
	// UserByRefreshToken находит владельца refresh-токена.
	UserByRefreshToken(ctx context.Context, token string) (*models.User, error)
	// SaveSession перезаписывает сессию пользователя целиком.
	SaveSession(ctx context.Context, id uuid.UUID, session models.Session) error
	// RotateSession заменяет сессию, только если текущий refresh-токен равен oldRefresh.
	// Если токен уже сменился — ErrNotFound.
	RotateSession(ctx context.Context, id uuid.UUID, oldRefresh string, session models.Session) error
	// ExpireSession выставляет срок действия session-токена в at,
	// если у пользователя по-прежнему этот токен и он ещё действует в момент at.
	// Иначе — ErrNotFound. Refresh-токен не трогается.
	ExpireSession(ctx context.Context, id uuid.UUID, sessionToken string, at time.Time) error
}

// Storage задает контракт работы с хранилищем учетных данных.
type Storage interface {
	UserStorage
	SessionStorage
	Close()
}
