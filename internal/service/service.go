// service содержит бизнес-логику сервиса учетных данных:
// регистрацию и вход пользователей, выпуск/проверку/обновление сессий
// и работу с хранилищем через интерфейсы из пакета storage.
//
// Основные аспекты:
//   - Service не хранит состояние запроса и не кэширует пользователей;
//     каждая операция читает актуальную строку из хранилища.
//   - Истечение сессии проверяется лениво, в момент предъявления токена.
//   - Ошибки возвращаются как обёрнутые сентинелы ниже и далее маппятся
//     транспортом на HTTP-статусы (см. transport/http/errors).
package service

import (
	"errors"
	"time"

	"github.com/pribylovaa/lostfound-auth/internal/cache"
	"github.com/pribylovaa/lostfound-auth/internal/config"
	"github.com/pribylovaa/lostfound-auth/internal/pkg/password"
	"github.com/pribylovaa/lostfound-auth/internal/pkg/token"
	"github.com/pribylovaa/lostfound-auth/internal/storage"
)

// defaultSessionTTL используется, если в конфиге не задан auth.session_ttl.
const defaultSessionTTL = 24 * time.Hour

var (
	// ErrValidation — не заполнено обязательное поле или значение некорректно.
	// Транспорт: HTTP 400.
	ErrValidation = errors.New("validation error")

	// ErrUserAlreadyExists — username или e-mail уже заняты.
	// Транспорт: HTTP 400.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrInvalidCredentials — пользователь не найден или пароль не совпал.
	// Транспорт: HTTP 400.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidSessionToken — session-токен неизвестен, не совпадает или истёк.
	// Причины намеренно не различаются. Транспорт: HTTP 401.
	ErrInvalidSessionToken = errors.New("invalid session token")

	// ErrInvalidRefreshToken — refresh-токен не принадлежит ни одному пользователю.
	// Транспорт: HTTP 400.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrTooManyAttempts — вход временно заблокирован после серии неудач.
	// Транспорт: HTTP 429.
	ErrTooManyAttempts = errors.New("too many login attempts")
)

// Service описывает бизнес-логику сервиса учетных данных.
type Service struct {
	storage storage.Storage
	cfg     config.AuthConfig
	hasher  *password.Hasher
	tokens  token.Generator
	now     func() time.Time
	limiter cache.LoginLimiter // может быть nil, если Redis не сконфигурирован
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, cfg config.AuthConfig) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}

	return &Service{
		storage: storage,
		cfg:     cfg,
		hasher:  password.NewHasher(cfg.PasswordCost),
		tokens:  token.Generate,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetLoginLimiter устанавливает ограничитель попыток входа (опционально).
func (s *Service) SetLoginLimiter(l cache.LoginLimiter) {
	s.limiter = l
}
