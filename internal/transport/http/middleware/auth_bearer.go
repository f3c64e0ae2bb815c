package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pribylovaa/lostfound-auth/internal/models"
	logctx "github.com/pribylovaa/lostfound-auth/internal/pkg/log"
	apierrors "github.com/pribylovaa/lostfound-auth/internal/transport/http/errors"
)

var (
	// ErrMissingAuthHeader — заголовок Authorization отсутствует.
	ErrMissingAuthHeader = apierrors.ErrMissingAuthHeader
	// ErrMalformedAuthHeader — схема не Bearer или токен пустой.
	ErrMalformedAuthHeader = apierrors.ErrMalformedAuthHeader
)

// Authenticator проверяет session-токен и возвращает его владельца.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

type userKey struct{}

// ExtractBearerToken достаёт токен из "Authorization: Bearer <token>".
// Схема сравнивается без учёта регистра, пробелы вокруг токена отбрасываются.
//
// Ошибки:
//   - заголовка нет совсем — ErrMissingAuthHeader;
//   - пустой заголовок, другая схема, пустой остаток или
//     лишние части после токена — ErrMalformedAuthHeader.
func ExtractBearerToken(h http.Header) (string, error) {
	values := h.Values("Authorization")
	if len(values) == 0 {
		return "", ErrMissingAuthHeader
	}

	parts := strings.Fields(values[0])
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrMalformedAuthHeader
	}

	return parts[1], nil
}

// RequireSession пускает запрос дальше только с действующим session-токеном.
// Владелец токена кладётся в контекст (см. UserFrom); отказ пишется через
// errors.WriteError как есть.
func RequireSession(auth Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := ExtractBearerToken(r.Header)
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), userKey{}, user)
			ctx = logctx.With(ctx, slog.String("user_id", user.ID.String()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFrom возвращает пользователя, положенного RequireSession.
func UserFrom(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey{}).(*models.User)
	return u, ok && u != nil
}
