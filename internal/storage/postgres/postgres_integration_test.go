package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/lostfound-auth/internal/models"
	"github.com/pribylovaa/lostfound-auth/internal/storage"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты хранилища:
// - поднимают PostgreSQL через testcontainers-go (postgres:16-alpine);
// - применяют встроенные миграции через Migrate;
// - проверяют уникальность username/email, CAS в RotateSession и
//   то, что ExpireSession не трогает refresh-токен.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

func startPostgres(t *testing.T) *Storage {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	// порт открыт раньше, чем postgres готов принимать запросы.
	require.Eventually(t, func() bool { return Migrate(dsn) == nil }, 30*time.Second, 500*time.Millisecond)
	// повторный прогон — no-op.
	require.NoError(t, Migrate(dsn))

	st, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)

	return st
}

func newUser(t *testing.T, username, email string) *models.User {
	t.Helper()

	u, err := models.NewUser("Name "+username, username, email, "$2a$04$hash")
	require.NoError(t, err)
	u.Session = models.Session{
		Token:        "s-" + username,
		RefreshToken: "r-" + username,
		ExpiresAt:    time.Now().UTC().Add(time.Hour).Truncate(time.Microsecond),
	}

	return u
}

func TestIntegration_UserLifecycle(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	alice := newUser(t, "alice", "alice@example.com")
	require.NoError(t, st.SaveUser(ctx, alice))

	got, err := st.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)
	require.Equal(t, alice.Session.Token, got.Session.Token)
	require.True(t, alice.Session.ExpiresAt.Equal(got.Session.ExpiresAt))

	// точное совпадение: регистр имеет значение.
	_, err = st.UserByUsername(ctx, "Alice")
	require.ErrorIs(t, err, storage.ErrNotFound)

	got, err = st.UserBySessionToken(ctx, "s-alice")
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)

	got, err = st.UserByRefreshToken(ctx, "r-alice")
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)

	// дубликаты username и email.
	dupName := newUser(t, "alice", "other@example.com")
	require.ErrorIs(t, st.SaveUser(ctx, dupName), storage.ErrAlreadyExists)
	dupEmail := newUser(t, "bob", "alice@example.com")
	require.ErrorIs(t, st.SaveUser(ctx, dupEmail), storage.ErrAlreadyExists)

	require.NoError(t, st.DeleteUser(ctx, alice.ID))
	_, err = st.UserByID(ctx, alice.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.ErrorIs(t, st.DeleteUser(ctx, alice.ID), storage.ErrNotFound)
}

func TestIntegration_SessionUpdates(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	u := newUser(t, "carol", "carol@example.com")
	require.NoError(t, st.SaveUser(ctx, u))

	at := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, st.ExpireSession(ctx, u.ID, "s-carol", at))
	require.ErrorIs(t, st.ExpireSession(ctx, u.ID, "s-carol", at), storage.ErrNotFound)
	require.ErrorIs(t, st.ExpireSession(ctx, u.ID, "not-current", at), storage.ErrNotFound)

	got, err := st.UserByRefreshToken(ctx, "r-carol")
	require.NoError(t, err)
	require.True(t, got.Session.ExpiresAt.Equal(at))
	require.Equal(t, "r-carol", got.Session.RefreshToken)

	next := models.Session{Token: "s2", RefreshToken: "r2", ExpiresAt: at.Add(time.Hour)}
	require.NoError(t, st.RotateSession(ctx, u.ID, "r-carol", next))
	require.ErrorIs(t, st.RotateSession(ctx, u.ID, "r-carol", next), storage.ErrNotFound)

	_, err = st.UserBySessionToken(ctx, "s-carol")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, st.UpdatePassword(ctx, u.ID, "$2a$04$other", models.Session{Token: "s3", RefreshToken: "r3", ExpiresAt: at}))
	got, err = st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "$2a$04$other", got.PasswordHash)
	require.Equal(t, "s3", got.Session.Token)

	require.ErrorIs(t, st.SaveSession(ctx, uuid.New(), next), storage.ErrNotFound)
}

func TestIntegration_RotateSession_SingleWinner(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	u := newUser(t, "dave", "dave@example.com")
	require.NoError(t, st.SaveUser(ctx, u))

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := models.Session{
				Token:        fmt.Sprintf("s-%d", i),
				RefreshToken: fmt.Sprintf("r-%d", i),
				ExpiresAt:    time.Now().Add(time.Hour),
			}
			err := st.RotateSession(ctx, u.ID, "r-dave", next)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			if !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, wins)
}
