package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/lostfound-auth/internal/models"
	"github.com/pribylovaa/lostfound-auth/internal/storage"
	"github.com/stretchr/testify/require"
)

func newUser(t *testing.T, username, email string) *models.User {
	t.Helper()

	u, err := models.NewUser("Name", username, email, "hash")
	require.NoError(t, err)
	u.Session = models.Session{
		Token:        "s-" + username,
		RefreshToken: "r-" + username,
		ExpiresAt:    time.Now().Add(time.Hour),
	}

	return u
}

func TestSaveUser_Uniqueness(t *testing.T) {
	t.Parallel()

	st := New()
	ctx := context.Background()
	alice := newUser(t, "alice", "alice@example.com")
	require.NoError(t, st.SaveUser(ctx, alice))

	require.ErrorIs(t, st.SaveUser(ctx, alice), storage.ErrAlreadyExists)
	require.ErrorIs(t, st.SaveUser(ctx, newUser(t, "alice", "x@example.com")), storage.ErrAlreadyExists)
	require.ErrorIs(t, st.SaveUser(ctx, newUser(t, "bob", "alice@example.com")), storage.ErrAlreadyExists)

	// регистр имеет значение.
	require.NoError(t, st.SaveUser(ctx, newUser(t, "Alice", "Alice@example.com")))
}

func TestLookups_ReturnCopies(t *testing.T) {
	t.Parallel()

	st := New()
	ctx := context.Background()
	alice := newUser(t, "alice", "alice@example.com")
	require.NoError(t, st.SaveUser(ctx, alice))

	// мутация исходного значения не влияет на хранилище.
	alice.Name = "mutated"

	got, err := st.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "Name", got.Name)

	got.Session.Token = "tampered"
	got, err = st.UserBySessionToken(ctx, "s-alice")
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)

	got, err = st.UserByRefreshToken(ctx, "r-alice")
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)

	_, err = st.UserByID(ctx, uuid.New())
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = st.UserBySessionToken(ctx, "")
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = st.UserByRefreshToken(ctx, "")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSessionUpdates(t *testing.T) {
	t.Parallel()

	st := New()
	ctx := context.Background()
	u := newUser(t, "carol", "carol@example.com")
	require.NoError(t, st.SaveUser(ctx, u))

	at := time.Now()
	require.ErrorIs(t, st.ExpireSession(ctx, u.ID, "other", at), storage.ErrNotFound)
	require.NoError(t, st.ExpireSession(ctx, u.ID, "s-carol", at))
	// уже истёкшая сессия повторно не истекает.
	require.ErrorIs(t, st.ExpireSession(ctx, u.ID, "s-carol", at), storage.ErrNotFound)
	require.ErrorIs(t, st.ExpireSession(ctx, u.ID, "s-carol", at.Add(time.Second)), storage.ErrNotFound)

	got, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.Session.ExpiresAt.Equal(at))
	require.Equal(t, "r-carol", got.Session.RefreshToken)

	next := models.Session{Token: "s2", RefreshToken: "r2", ExpiresAt: at.Add(time.Hour)}
	require.NoError(t, st.RotateSession(ctx, u.ID, "r-carol", next))
	require.ErrorIs(t, st.RotateSession(ctx, u.ID, "r-carol", next), storage.ErrNotFound)

	require.NoError(t, st.SaveSession(ctx, u.ID, models.Session{Token: "s3", RefreshToken: "r3", ExpiresAt: at}))
	require.NoError(t, st.UpdatePassword(ctx, u.ID, "hash2", next))

	got, err = st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "hash2", got.PasswordHash)
	require.Equal(t, next, got.Session)

	require.ErrorIs(t, st.SaveSession(ctx, uuid.New(), next), storage.ErrNotFound)

	require.NoError(t, st.DeleteUser(ctx, u.ID))
	require.ErrorIs(t, st.DeleteUser(ctx, u.ID), storage.ErrNotFound)
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()

	st := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, st.SaveUser(ctx, newUser(t, "x", "x@example.com")), context.Canceled)
	_, err := st.UserByUsername(ctx, "x")
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, st.SaveSession(ctx, uuid.New(), models.Session{}), context.Canceled)
}

func TestRotateSession_SingleWinner(t *testing.T) {
	t.Parallel()

	st := New()
	ctx := context.Background()
	u := newUser(t, "dave", "dave@example.com")
	require.NoError(t, st.SaveUser(ctx, u))

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := models.Session{Token: fmt.Sprintf("s%d", i), RefreshToken: fmt.Sprintf("r%d", i)}
			if st.RotateSession(ctx, u.ID, "r-dave", next) == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
}
