package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pribylovaa/lostfound-auth/internal/models"
	"github.com/pribylovaa/lostfound-auth/internal/storage"
)

// userColumns — общий список колонок для выборок пользователя.
// Пустые токены хранятся как NULL, чтобы не попадать под индексы поиска.
const userColumns = `
	id, name, username, email, password_hash,
	COALESCE(session_token, ''), COALESCE(refresh_token, ''), session_expires_at,
	created_at, updated_at`

// SaveUser создает нового пользователя вместе с его сессией.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users(id, name, username, email, password_hash,
		                  session_token, refresh_token, session_expires_at,
		                  created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10)
	`

	_, err := s.db.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Session.Token,
		user.Session.RefreshToken,
		user.Session.ExpiresAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.postgres.UserByID"

	return s.userBy(ctx, op, `SELECT`+userColumns+` FROM users WHERE id = $1`, id)
}

// UserByUsername находит пользователя по username.
func (s *Storage) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.postgres.UserByUsername"

	return s.userBy(ctx, op, `SELECT`+userColumns+` FROM users WHERE username = $1`, username)
}

// UserBySessionToken находит владельца session-токена.
func (s *Storage) UserBySessionToken(ctx context.Context, token string) (*models.User, error) {
	const op = "storage.postgres.UserBySessionToken"

	if token == "" {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return s.userBy(ctx, op, `SELECT`+userColumns+` FROM users WHERE session_token = $1`, token)
}

// UserByRefreshToken находит владельца refresh-токена.
func (s *Storage) UserByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	const op = "storage.postgres.UserByRefreshToken"

	if token == "" {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return s.userBy(ctx, op, `SELECT`+userColumns+` FROM users WHERE refresh_token = $1`, token)
}

// DeleteUser удаляет пользователя.
func (s *Storage) DeleteUser(ctx context.Context, id uuid.UUID) error {
	const op = "storage.postgres.DeleteUser"

	return s.execOne(ctx, op, `DELETE FROM users WHERE id = $1`, id)
}

// UpdatePassword меняет хэш пароля и сессию одним UPDATE.
func (s *Storage) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, session models.Session) error {
	const op = "storage.postgres.UpdatePassword"

	query := `
		UPDATE users
		SET password_hash = $2,
		    session_token = NULLIF($3, ''),
		    refresh_token = NULLIF($4, ''),
		    session_expires_at = $5,
		    updated_at = now()
		WHERE id = $1
	`

	return s.execOne(ctx, op, query, id, passwordHash, session.Token, session.RefreshToken, session.ExpiresAt)
}

// SaveSession перезаписывает тройку токенов пользователя.
func (s *Storage) SaveSession(ctx context.Context, id uuid.UUID, session models.Session) error {
	const op = "storage.postgres.SaveSession"

	query := `
		UPDATE users
		SET session_token = NULLIF($2, ''),
		    refresh_token = NULLIF($3, ''),
		    session_expires_at = $4,
		    updated_at = now()
		WHERE id = $1
	`

	return s.execOne(ctx, op, query, id, session.Token, session.RefreshToken, session.ExpiresAt)
}

// RotateSession заменяет сессию, если refresh-токен пользователя всё ещё oldRefresh.
func (s *Storage) RotateSession(ctx context.Context, id uuid.UUID, oldRefresh string, session models.Session) error {
	const op = "storage.postgres.RotateSession"

	query := `
		UPDATE users
		SET session_token = NULLIF($3, ''),
		    refresh_token = NULLIF($4, ''),
		    session_expires_at = $5,
		    updated_at = now()
		WHERE id = $1 AND refresh_token = $2
	`

	return s.execOne(ctx, op, query, id, oldRefresh, session.Token, session.RefreshToken, session.ExpiresAt)
}

// ExpireSession истекает session-токен, не трогая refresh-токен.
// Уже истёкшая к моменту at сессия не обновляется (ErrNotFound).
func (s *Storage) ExpireSession(ctx context.Context, id uuid.UUID, sessionToken string, at time.Time) error {
	const op = "storage.postgres.ExpireSession"

	query := `
		UPDATE users
		SET session_expires_at = $3,
		    updated_at = now()
		WHERE id = $1 AND session_token = $2 AND session_expires_at > $3
	`

	return s.execOne(ctx, op, query, id, sessionToken, at)
}

func (s *Storage) userBy(ctx context.Context, op, query string, arg any) (*models.User, error) {
	var user models.User
	err := s.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Session.Token,
		&user.Session.RefreshToken,
		&user.Session.ExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &user, nil
}

// execOne выполняет UPDATE/DELETE, которые должны задеть ровно одну строку.
// 0 строк — ErrNotFound.
func (s *Storage) execOne(ctx context.Context, op, query string, args ...any) error {
	cmdTag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}
