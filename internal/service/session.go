package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/lostfound-auth/internal/metrics"
	"github.com/pribylovaa/lostfound-auth/internal/models"
	"github.com/pribylovaa/lostfound-auth/internal/pkg/log"
	"github.com/pribylovaa/lostfound-auth/internal/storage"
)

// VerifySession — единственная проверка для всех аутентифицированных операций:
// токен совпадает с текущим и срок ещё не наступил.
func (s *Service) VerifySession(user *models.User, token string) bool {
	if user == nil {
		return false
	}

	return user.Session.Valid(token, s.now())
}

// Authenticate находит владельца session-токена и проверяет сессию.
// Неизвестный, чужой и истёкший токен дают одну и ту же ErrInvalidSessionToken.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	const op = "service.session.Authenticate"

	if token == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidSessionToken)
	}

	user, err := s.storage.UserBySessionToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidSessionToken)
		}

		log.From(ctx).Error("authenticate_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !s.VerifySession(user, token) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidSessionToken)
	}

	return user, nil
}

// Logout истекает текущий session-токен пользователя.
// Refresh-токен остаётся действительным: по нему можно получить новую сессию.
func (s *Service) Logout(ctx context.Context, user *models.User) (err error) {
	const op = "service.session.Logout"
	defer func() { record("logout", err) }()

	if user == nil || !s.VerifySession(user, user.Session.Token) {
		return fmt.Errorf("%s: %w", op, ErrInvalidSessionToken)
	}

	// хранилище повторно проверяет, что сессия всё ещё текущая и живая.
	if err := s.storage.ExpireSession(ctx, user.ID, user.Session.Token, s.now()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrInvalidSessionToken)
		}

		log.From(ctx).Error("logout_failed",
			slog.String("op", op),
			slog.String("user_id", user.ID.String()),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("logout", slog.String("user_id", user.ID.String()))

	return nil
}

// RenewSession выпускает новую пару токенов по refresh-токену.
// Текущая сессия не обязана быть истёкшей. Если refresh-токен уже сменился
// (параллельное обновление), результат тот же, что и для неизвестного токена.
func (s *Service) RenewSession(ctx context.Context, refreshToken string) (_ *models.User, err error) {
	const op = "service.session.RenewSession"
	defer func() { record("refresh", err) }()

	if refreshToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	user, err := s.storage.UserByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg := log.From(ctx).With(slog.String("op", op), slog.String("user_id", user.ID.String()))

	session, err := s.issue()
	if err != nil {
		lg.Error("issue_session_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.RotateSession(ctx, user.ID, refreshToken, session); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("refresh_race_lost")
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}

		lg.Error("rotate_session_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user.Session = session
	lg.Info("session_renewed")

	return user, nil
}

// issue выпускает новую сессию: два независимых токена и срок now + session_ttl.
func (s *Service) issue() (models.Session, error) {
	const op = "service.session.issue"

	sessionToken, err := s.tokens()
	if err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := s.tokens()
	if err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.Session{
		Token:        sessionToken,
		RefreshToken: refreshToken,
		ExpiresAt:    s.now().Add(s.cfg.SessionTTL),
	}, nil
}

// record учитывает результат операции в метриках.
func record(event string, err error) {
	switch {
	case err == nil:
		metrics.RecordAuthEvent(event, metrics.ResultSuccess)
	case errors.Is(err, ErrTooManyAttempts):
		metrics.RecordAuthEvent(event, metrics.ResultRateLimited)
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrUserAlreadyExists),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidSessionToken),
		errors.Is(err, ErrInvalidRefreshToken):
		metrics.RecordAuthEvent(event, metrics.ResultRejected)
	default:
		metrics.RecordAuthEvent(event, metrics.ResultError)
	}
}
