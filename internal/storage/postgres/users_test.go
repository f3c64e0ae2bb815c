package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/pribylovaa/lostfound-auth/internal/models"
	"github.com/pribylovaa/lostfound-auth/internal/storage"
	"github.com/stretchr/testify/require"
)

// Юнит-тесты SQL-слоя поверх pgxmock: проверяем аргументы запросов,
// маппинг pgx.ErrNoRows/UniqueViolation/RowsAffected=0 в ошибки storage.

var userCols = []string{
	"id", "name", "username", "email", "password_hash",
	"session_token", "refresh_token", "session_expires_at",
	"created_at", "updated_at",
}

func newMock(t *testing.T) (*Storage, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})

	return NewWithDB(mock), mock
}

func sampleUser() *models.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.User{
		ID:           uuid.New(),
		Name:         "Alice",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$04$hash",
		Session: models.Session{
			Token:        "sess",
			RefreshToken: "ref",
			ExpiresAt:    now.Add(24 * time.Hour),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func userRow(u *models.User) *pgxmock.Rows {
	return pgxmock.NewRows(userCols).AddRow(
		u.ID, u.Name, u.Username, u.Email, u.PasswordHash,
		u.Session.Token, u.Session.RefreshToken, u.Session.ExpiresAt,
		u.CreatedAt, u.UpdatedAt,
	)
}

// anyArgs — n произвольных аргументов запроса.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestSaveUser_OK(t *testing.T) {
	st, mock := newMock(t)
	u := sampleUser()

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(u.ID, u.Name, u.Username, u.Email, u.PasswordHash,
			u.Session.Token, u.Session.RefreshToken, u.Session.ExpiresAt,
			u.CreatedAt, u.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, st.SaveUser(context.Background(), u))
}

func TestSaveUser_UniqueViolation(t *testing.T) {
	st, mock := newMock(t)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(anyArgs(10)...).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_username_uq"})

	err := st.SaveUser(context.Background(), sampleUser())
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestSaveUser_OtherError(t *testing.T) {
	st, mock := newMock(t)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(anyArgs(10)...).
		WillReturnError(errors.New("connection refused"))

	err := st.SaveUser(context.Background(), sampleUser())
	require.Error(t, err)
	require.NotErrorIs(t, err, storage.ErrAlreadyExists)
	require.Contains(t, err.Error(), "storage.postgres.SaveUser")
}

func TestUserLookups(t *testing.T) {
	u := sampleUser()

	tests := []struct {
		name    string
		pattern string
		arg     any
		call    func(*Storage) (*models.User, error)
	}{
		{"by_id", `FROM users WHERE id = \$1`, u.ID,
			func(s *Storage) (*models.User, error) { return s.UserByID(context.Background(), u.ID) }},
		{"by_username", `FROM users WHERE username = \$1`, u.Username,
			func(s *Storage) (*models.User, error) { return s.UserByUsername(context.Background(), u.Username) }},
		{"by_session_token", `FROM users WHERE session_token = \$1`, u.Session.Token,
			func(s *Storage) (*models.User, error) { return s.UserBySessionToken(context.Background(), u.Session.Token) }},
		{"by_refresh_token", `FROM users WHERE refresh_token = \$1`, u.Session.RefreshToken,
			func(s *Storage) (*models.User, error) { return s.UserByRefreshToken(context.Background(), u.Session.RefreshToken) }},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/found", func(t *testing.T) {
			st, mock := newMock(t)
			mock.ExpectQuery(tt.pattern).WithArgs(tt.arg).WillReturnRows(userRow(u))

			got, err := tt.call(st)
			require.NoError(t, err)
			require.Equal(t, u.ID, got.ID)
			require.Equal(t, u.Username, got.Username)
			require.Equal(t, u.Session, got.Session)
		})

		t.Run(tt.name+"/not_found", func(t *testing.T) {
			st, mock := newMock(t)
			mock.ExpectQuery(tt.pattern).WithArgs(tt.arg).WillReturnError(pgx.ErrNoRows)

			_, err := tt.call(st)
			require.ErrorIs(t, err, storage.ErrNotFound)
		})
	}
}

func TestTokenLookups_EmptyTokenSkipsQuery(t *testing.T) {
	st, _ := newMock(t)

	_, err := st.UserBySessionToken(context.Background(), "")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.UserByRefreshToken(context.Background(), "")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRotateSession(t *testing.T) {
	id := uuid.New()
	next := models.Session{Token: "s2", RefreshToken: "r2", ExpiresAt: time.Now().Add(time.Hour)}

	t.Run("swapped", func(t *testing.T) {
		st, mock := newMock(t)
		mock.ExpectExec(`WHERE id = \$1 AND refresh_token = \$2`).
			WithArgs(id, "r1", next.Token, next.RefreshToken, next.ExpiresAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, st.RotateSession(context.Background(), id, "r1", next))
	})

	t.Run("lost_race", func(t *testing.T) {
		st, mock := newMock(t)
		mock.ExpectExec(`WHERE id = \$1 AND refresh_token = \$2`).
			WithArgs(id, "r1", next.Token, next.RefreshToken, next.ExpiresAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := st.RotateSession(context.Background(), id, "r1", next)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestExpireSession(t *testing.T) {
	id := uuid.New()
	at := time.Now()

	st, mock := newMock(t)
	mock.ExpectExec(`(?s)SET session_expires_at = \$3.+AND session_expires_at > \$3`).
		WithArgs(id, "sess", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`(?s)SET session_expires_at = \$3.+AND session_expires_at > \$3`).
		WithArgs(id, "stale", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, st.ExpireSession(context.Background(), id, "sess", at))
	require.ErrorIs(t, st.ExpireSession(context.Background(), id, "stale", at), storage.ErrNotFound)
}

func TestSaveSessionAndUpdatePassword(t *testing.T) {
	id := uuid.New()
	sess := models.Session{Token: "s", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour)}

	st, mock := newMock(t)
	mock.ExpectExec(`UPDATE users`).
		WithArgs(id, sess.Token, sess.RefreshToken, sess.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`SET password_hash = \$2`).
		WithArgs(id, "newhash", sess.Token, sess.RefreshToken, sess.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`SET password_hash = \$2`).
		WithArgs(id, "newhash", sess.Token, sess.RefreshToken, sess.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, st.SaveSession(context.Background(), id, sess))
	require.NoError(t, st.UpdatePassword(context.Background(), id, "newhash", sess))
	require.ErrorIs(t, st.UpdatePassword(context.Background(), id, "newhash", sess), storage.ErrNotFound)
}

func TestDeleteUser(t *testing.T) {
	id := uuid.New()

	st, mock := newMock(t)
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, st.DeleteUser(context.Background(), id))
	require.ErrorIs(t, st.DeleteUser(context.Background(), id), storage.ErrNotFound)
}

func TestMigrateURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "pgx5://u:p@h:5432/db", migrateURL("postgres://u:p@h:5432/db"))
	require.Equal(t, "pgx5://u:p@h/db", migrateURL("postgresql://u:p@h/db"))
	require.Equal(t, "pgx5://h/db", migrateURL("pgx5://h/db"))
}
