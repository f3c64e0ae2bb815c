package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/pribylovaa/lostfound-auth/internal/config"
	"github.com/pribylovaa/lostfound-auth/internal/storage"
	"github.com/pribylovaa/lostfound-auth/internal/storage/memory"
	"github.com/pribylovaa/lostfound-auth/internal/storage/postgres"
)

// connectTimeout ограничивает одну попытку подключения к postgres.
const connectTimeout = 10 * time.Second

// openStorage выбирает реализацию хранилища по db.driver.
// Для postgres подключение повторяется с экспоненциальной паузой
// (db.connect_attempts попыток), затем при db.auto_migrate применяются миграции.
func openStorage(ctx context.Context, cfg config.DBConfig, log *slog.Logger) (storage.Storage, error) {
	const op = "main.openStorage"

	switch cfg.Driver {
	case config.DriverMemory:
		log.Warn("memory_storage_in_use")
		return memory.New(), nil
	case config.DriverPostgres:
	default:
		return nil, fmt.Errorf("%s: unknown driver %q", op, cfg.Driver)
	}

	attempts := cfg.ConnectAttempts
	if attempts == 0 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(500*time.Millisecond))

	var str *postgres.Storage
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		connCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		s, err := postgres.New(connCtx, cfg.DatabaseURL)
		if err != nil {
			log.Warn("postgres_connect_retry", slog.String("err", err.Error()))
			return retry.RetryableError(err)
		}

		str = s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("postgres_connected")

	if cfg.AutoMigrate {
		if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
			str.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		log.Info("postgres_migrated")
	}

	return str, nil
}
