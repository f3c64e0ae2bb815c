package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter — счётчик неудачных попыток входа по username.
type LoginLimiter interface {
	// Blocked сообщает, исчерпан ли лимит неудачных попыток.
	Blocked(ctx context.Context, username string) (bool, error)
	// RegisterFailure увеличивает счётчик и возвращает его новое значение.
	RegisterFailure(ctx context.Context, username string) (int64, error)
	// Reset сбрасывает счётчик после успешного входа.
	Reset(ctx context.Context, username string) error
	// Close закрывает клиент Redis.
	Close() error
}

type redisLimiter struct {
	rdb         *redis.Client
	prefix      string
	maxFailures int64
	window      time.Duration
}

// NewRedisLimiter создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "auth:login:".
// Каждая неудача продлевает окно window; после maxFailures неудач вход блокируется до его истечения.
func NewRedisLimiter(ctx context.Context, redisURL, prefix string, maxFailures int, window time.Duration) (LoginLimiter, error) {
	const op = "cache.NewRedisLimiter"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return newRedisLimiter(rdb, prefix, maxFailures, window), nil
}

func newRedisLimiter(rdb *redis.Client, prefix string, maxFailures int, window time.Duration) *redisLimiter {
	if prefix == "" {
		prefix = "auth:login:"
	}

	return &redisLimiter{
		rdb:         rdb,
		prefix:      prefix,
		maxFailures: int64(maxFailures),
		window:      window,
	}
}

func (l *redisLimiter) key(username string) string { return l.prefix + username }

func (l *redisLimiter) Blocked(ctx context.Context, username string) (bool, error) {
	n, err := l.rdb.Get(ctx, l.key(username)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}

		return false, err
	}

	return n >= l.maxFailures, nil
}

func (l *redisLimiter) RegisterFailure(ctx context.Context, username string) (int64, error) {
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, l.key(username))
	pipe.Expire(ctx, l.key(username), l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	return incr.Val(), nil
}

func (l *redisLimiter) Reset(ctx context.Context, username string) error {
	return l.rdb.Del(ctx, l.key(username)).Err()
}

func (l *redisLimiter) Close() error { return l.rdb.Close() }
