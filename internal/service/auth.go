package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/pribylovaa/lostfound-auth/internal/models"
	"github.com/pribylovaa/lostfound-auth/internal/pkg/log"
	"github.com/pribylovaa/lostfound-auth/internal/pkg/password"
	"github.com/pribylovaa/lostfound-auth/internal/pkg/redact"
	"github.com/pribylovaa/lostfound-auth/internal/storage"
)

// RegisterInput — данные для регистрации. Все поля обязательны.
type RegisterInput struct {
	Name     string
	Username string
	Email    string
	Password string
}

// RegisterUser создаёт пользователя и сразу выдаёт ему сессию.
//
// Валидация:
//   - name, username, email, password не пустые;
//   - email в формате addr-spec (без display name);
//   - пароль не длиннее 72 байт.
//
// Поведение:
//   - занятый username или email (в том числе при гонке двух регистраций) —
//     ErrUserAlreadyExists;
//   - значения сохраняются как есть, без нормализации регистра.
func (s *Service) RegisterUser(ctx context.Context, in RegisterInput) (_ *models.User, err error) {
	const op = "service.auth.RegisterUser"
	defer func() { record("register", err) }()

	lg := log.From(ctx).With(slog.String("op", op), slog.String("username", redact.Username(in.Username)))

	if err := validateRegister(in); err != nil {
		lg.Warn("register_invalid_input", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.storage.UserByUsername(ctx, in.Username)
	if err == nil {
		lg.Warn("register_username_taken")
		return nil, fmt.Errorf("%s: %w", op, ErrUserAlreadyExists)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		lg.Error("register_lookup_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	digest, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := models.NewUser(in.Name, in.Username, in.Email, digest)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrValidation, err)
	}

	user.Session, err = s.issue()
	if err != nil {
		lg.Error("issue_session_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			lg.Warn("register_conflict", slog.String("email", redact.Email(in.Email)))
			return nil, fmt.Errorf("%s: %w", op, ErrUserAlreadyExists)
		}

		lg.Error("save_user_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_registered", slog.String("user_id", user.ID.String()))

	return user, nil
}

// LoginUser проверяет пару username/пароль и выдаёт новую сессию.
// Прежняя пара токенов пользователя перестаёт действовать.
//
// Если задан ограничитель попыток, вход после серии неудач отклоняется
// с ErrTooManyAttempts до проверки пароля. Сбои ограничителя не блокируют вход.
func (s *Service) LoginUser(ctx context.Context, username, plain string) (_ *models.User, err error) {
	const op = "service.auth.LoginUser"
	defer func() { record("login", err) }()

	lg := log.From(ctx).With(slog.String("op", op), slog.String("username", redact.Username(username)))

	if strings.TrimSpace(username) == "" || plain == "" {
		return nil, fmt.Errorf("%s: %w: username and password are required", op, ErrValidation)
	}

	if s.limiter != nil {
		blocked, err := s.limiter.Blocked(ctx, username)
		switch {
		case err != nil:
			lg.Warn("login_limiter_unavailable", slog.String("err", err.Error()))
		case blocked:
			lg.Warn("login_blocked")
			return nil, fmt.Errorf("%s: %w", op, ErrTooManyAttempts)
		}
	}

	user, err := s.storage.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// время ответа не должно выдавать, существует ли пользователь.
			s.hasher.VerifyAbsent(plain)
			s.loginFailed(ctx, lg, username)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		lg.Error("login_lookup_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !s.hasher.Verify(plain, user.PasswordHash) {
		s.loginFailed(ctx, lg, username)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	session, err := s.issue()
	if err != nil {
		lg.Error("issue_session_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.SaveSession(ctx, user.ID, session); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// пользователь удалён между чтением и записью.
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		lg.Error("save_session_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, username); err != nil {
			lg.Warn("login_limiter_reset_failed", slog.String("err", err.Error()))
		}
	}

	user.Session = session
	lg.Info("login_succeeded", slog.String("user_id", user.ID.String()))

	return user, nil
}

// ChangePassword меняет пароль аутентифицированного пользователя.
// Старый пароль обязателен; вместе с новым хэшем выдаётся новая сессия,
// поэтому прежние session/refresh токены перестают действовать.
func (s *Service) ChangePassword(ctx context.Context, user *models.User, oldPassword, newPassword string) (_ *models.User, err error) {
	const op = "service.auth.ChangePassword"
	defer func() { record("change_password", err) }()

	if user == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidSessionToken)
	}

	lg := log.From(ctx).With(slog.String("op", op), slog.String("user_id", user.ID.String()))

	if oldPassword == "" || newPassword == "" {
		return nil, fmt.Errorf("%s: %w: old_password and new_password are required", op, ErrValidation)
	}

	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		lg.Warn("change_password_rejected")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	digest, err := s.hashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	session, err := s.issue()
	if err != nil {
		lg.Error("issue_session_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.UpdatePassword(ctx, user.ID, digest, session); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidSessionToken)
		}

		lg.Error("update_password_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	updated := *user
	updated.PasswordHash = digest
	updated.Session = session
	lg.Info("password_changed")

	return &updated, nil
}

// DeleteUser удаляет учётную запись вместе с её сессией.
func (s *Service) DeleteUser(ctx context.Context, user *models.User) (err error) {
	const op = "service.auth.DeleteUser"
	defer func() { record("delete", err) }()

	if user == nil {
		return fmt.Errorf("%s: %w", op, ErrInvalidSessionToken)
	}

	if err := s.storage.DeleteUser(ctx, user.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrInvalidSessionToken)
		}

		log.From(ctx).Error("delete_user_failed",
			slog.String("op", op),
			slog.String("user_id", user.ID.String()),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_deleted", slog.String("user_id", user.ID.String()))

	return nil
}

// hashPassword хэширует пароль; слишком длинный пароль — ошибка валидации.
func (s *Service) hashPassword(plain string) (string, error) {
	digest, err := s.hasher.Hash(plain)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return "", fmt.Errorf("%w: %w", ErrValidation, err)
		}

		return "", err
	}

	return digest, nil
}

// loginFailed учитывает неудачную попытку в ограничителе (если он есть).
func (s *Service) loginFailed(ctx context.Context, lg *slog.Logger, username string) {
	lg.Warn("login_failed")

	if s.limiter == nil {
		return
	}

	if _, err := s.limiter.RegisterFailure(ctx, username); err != nil {
		lg.Warn("login_limiter_unavailable", slog.String("err", err.Error()))
	}
}

// validateRegister проверяет обязательные поля регистрации и формат e-mail.
func validateRegister(in RegisterInput) error {
	const op = "service.auth.validateRegister"

	fields := []struct {
		name  string
		value string
	}{
		{"name", in.Name},
		{"username", in.Username},
		{"email", in.Email},
	}

	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%s: %w: %s is required", op, ErrValidation, f.name)
		}
	}

	// пароль из пробелов допустим; проверяется только наличие, как и при входе.
	if in.Password == "" {
		return fmt.Errorf("%s: %w: password is required", op, ErrValidation)
	}

	addr, err := mail.ParseAddress(in.Email)
	if err != nil || addr.Address != in.Email {
		return fmt.Errorf("%s: %w: email is malformed", op, ErrValidation)
	}

	return nil
}
