package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pribylovaa/lostfound-auth/internal/models"
	"github.com/pribylovaa/lostfound-auth/internal/pkg/log"
	"github.com/pribylovaa/lostfound-auth/internal/storage"
)

// Profile возвращает актуальную учётную запись по ID.
// Пользователь, удалённый после проверки сессии, даёт ErrInvalidSessionToken.
func (s *Service) Profile(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "service.profile.Profile"

	user, err := s.storage.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidSessionToken)
		}

		log.From(ctx).Error("profile_lookup_failed",
			slog.String("op", op),
			slog.String("user_id", id.String()),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}
