// memory — хранилище учетных данных в памяти процесса.
// Соблюдает те же ограничения уникальности, что и postgres, и используется
// для локального запуска (db.driver: memory) и тестов HTTP-слоя.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/lostfound-auth/internal/models"
	"github.com/pribylovaa/lostfound-auth/internal/storage"
)

type Storage struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*models.User
}

// New возвращает пустое хранилище.
func New() *Storage {
	return &Storage{users: make(map[uuid.UUID]*models.User)}
}

// Close — no-op, нужен для соответствия storage.Storage.
func (s *Storage) Close() {}

// SaveUser создает нового пользователя.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.memory.SaveUser"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}
	for _, u := range s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}
	}

	cp := *user
	s.users[user.ID] = &cp

	return nil
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.find(ctx, "storage.memory.UserByID", func(u *models.User) bool {
		return u.ID == id
	})
}

// UserByUsername находит пользователя по username.
func (s *Storage) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.find(ctx, "storage.memory.UserByUsername", func(u *models.User) bool {
		return u.Username == username
	})
}

// UserBySessionToken находит владельца session-токена.
func (s *Storage) UserBySessionToken(ctx context.Context, token string) (*models.User, error) {
	return s.find(ctx, "storage.memory.UserBySessionToken", func(u *models.User) bool {
		return token != "" && u.Session.Token == token
	})
}

// UserByRefreshToken находит владельца refresh-токена.
func (s *Storage) UserByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	return s.find(ctx, "storage.memory.UserByRefreshToken", func(u *models.User) bool {
		return token != "" && u.Session.RefreshToken == token
	})
}

// DeleteUser удаляет пользователя.
func (s *Storage) DeleteUser(ctx context.Context, id uuid.UUID) error {
	const op = "storage.memory.DeleteUser"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	delete(s.users, id)

	return nil
}

// UpdatePassword меняет хэш пароля и сессию.
func (s *Storage) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, session models.Session) error {
	return s.update(ctx, "storage.memory.UpdatePassword", id, func(u *models.User) bool {
		u.PasswordHash = passwordHash
		u.Session = session
		return true
	})
}

// SaveSession перезаписывает сессию пользователя.
func (s *Storage) SaveSession(ctx context.Context, id uuid.UUID, session models.Session) error {
	return s.update(ctx, "storage.memory.SaveSession", id, func(u *models.User) bool {
		u.Session = session
		return true
	})
}

// RotateSession заменяет сессию, если refresh-токен всё ещё oldRefresh.
func (s *Storage) RotateSession(ctx context.Context, id uuid.UUID, oldRefresh string, session models.Session) error {
	return s.update(ctx, "storage.memory.RotateSession", id, func(u *models.User) bool {
		if oldRefresh == "" || u.Session.RefreshToken != oldRefresh {
			return false
		}
		u.Session = session
		return true
	})
}

// ExpireSession истекает session-токен, если он всё ещё текущий и не истёк к моменту at.
func (s *Storage) ExpireSession(ctx context.Context, id uuid.UUID, sessionToken string, at time.Time) error {
	return s.update(ctx, "storage.memory.ExpireSession", id, func(u *models.User) bool {
		if !u.Session.Valid(sessionToken, at) {
			return false
		}
		u.Session = u.Session.Expire(at)
		return true
	})
}

// find возвращает копию первого пользователя, подходящего под match.
func (s *Storage) find(ctx context.Context, op string, match func(*models.User) bool) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}

	return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
}

// update применяет apply к пользователю под записывающей блокировкой.
// apply возвращает false, если условие обновления не выполнено (ErrNotFound).
func (s *Storage) update(ctx context.Context, op string, id uuid.UUID, apply func(*models.User) bool) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	cp := *u
	if !apply(&cp) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	cp.UpdatedAt = time.Now().UTC()
	s.users[id] = &cp

	return nil
}

// Проверка на соответствие интерфейсу Storage.
var _ storage.Storage = (*Storage)(nil)
