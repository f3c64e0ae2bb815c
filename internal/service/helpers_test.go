package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pribylovaa/lostfound-auth/internal/config"
	"github.com/pribylovaa/lostfound-auth/internal/pkg/token"
	"github.com/pribylovaa/lostfound-auth/internal/storage"
	"github.com/pribylovaa/lostfound-auth/mocks"
	"golang.org/x/crypto/bcrypt"
)

// fixedNow — момент времени, от которого считаются сроки в тестах.
var fixedNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		SessionTTL:       24 * time.Hour,
		PasswordCost:     bcrypt.MinCost,
		LoginMaxFailures: 3,
		LoginLockout:     time.Minute,
	}
}

// seqTokens выдаёт предсказуемые токены tok-1, tok-2, ...
func seqTokens() token.Generator {
	var n atomic.Int64
	return func() (string, error) {
		return fmt.Sprintf("tok-%d", n.Add(1)), nil
	}
}

// clock — управляемые часы для проверок истечения.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newSvc(t *testing.T) (*Service, *mocks.MockStorage) {
	t.Helper()

	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)

	svc := New(st, testCfg())
	svc.tokens = seqTokens()
	svc.now = func() time.Time { return fixedNow }

	return svc, st
}

func mustHashPW(t *testing.T, svc *Service, pw string) string {
	t.Helper()

	h, err := svc.hasher.Hash(pw)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	return h
}

// fakeLimiter — ограничитель в памяти с возможностью вернуть ошибку.
type fakeLimiter struct {
	mu       sync.Mutex
	max      int64
	failures map[string]int64
	err      error
	resets   int
}

func newFakeLimiter(max int64) *fakeLimiter {
	return &fakeLimiter{max: max, failures: make(map[string]int64)}
}

func (f *fakeLimiter) Blocked(_ context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	return f.failures[username] >= f.max, nil
}

func (f *fakeLimiter) RegisterFailure(_ context.Context, username string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.failures[username]++
	return f.failures[username], nil
}

func (f *fakeLimiter) Reset(_ context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.resets++
	delete(f.failures, username)
	return nil
}

func (f *fakeLimiter) Close() error { return nil }

// wrapNotFound имитирует ошибку хранилища с op-префиксом.
func wrapNotFound() error {
	return fmt.Errorf("storage.postgres.X: %w", storage.ErrNotFound)
}

var errDB = errors.New("db is down")
