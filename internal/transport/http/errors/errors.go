// errors стандартизирует ответы об ошибках HTTP-слоя.
// На вход принимает ошибку сервисного слоя или middleware,
// на выход даёт:
//   - корректный HTTP-статус;
//   - короткий стабильный код и безопасное message без утечки деталей.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/lostfound-auth/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

var (
	// ErrMissingAuthHeader — заголовок Authorization отсутствует.
	ErrMissingAuthHeader = errors.New("missing authorization header")
	// ErrMalformedAuthHeader — заголовок есть, но это не "Bearer <token>".
	ErrMalformedAuthHeader = errors.New("malformed authorization header")
	// ErrBadRequest — тело запроса не разбирается как ожидаемый JSON.
	ErrBadRequest = errors.New("bad request body")
)

// APIError — единый формат для клиентов.
// Code — короткий стабильный код для машиночитаемой обработки.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal,
//     чтобы не послать "200 OK" с телом ошибки;
//   - известные сентинелы (errors.Is) — см. таблицу в fromSentinel;
//   - всё остальное — 500/internal без деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := fromSentinel(err)

	return status, ErrorResponse{
		Error: APIError{
			Code:    code,
			Message: msg,
		},
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// fromSentinel — маппинг ошибок на HTTP-статус/код/сообщение:
//   - ErrBadRequest, service.ErrValidation -> 400
//   - service.ErrUserAlreadyExists -> 400
//   - service.ErrInvalidCredentials -> 400
//   - service.ErrInvalidRefreshToken -> 400
//   - ErrMissingAuthHeader, ErrMalformedAuthHeader -> 401
//   - service.ErrInvalidSessionToken -> 401
//   - service.ErrTooManyAttempts -> 429
//   - context.Canceled -> 499, context.DeadlineExceeded -> 504
//   - прочее -> 500/internal
func fromSentinel(err error) (int, string, string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, "internal", "internal error"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request", "malformed request body"
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "validation_error", "missing or invalid field"
	case errors.Is(err, service.ErrUserAlreadyExists):
		return http.StatusBadRequest, "user_already_exists", "user already exists"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusBadRequest, "invalid_credentials", "invalid credentials"
	case errors.Is(err, service.ErrInvalidRefreshToken):
		return http.StatusBadRequest, "invalid_refresh_token", "invalid refresh token"
	case errors.Is(err, ErrMissingAuthHeader):
		return http.StatusUnauthorized, "missing_auth_header", "authorization header is required"
	case errors.Is(err, ErrMalformedAuthHeader):
		return http.StatusUnauthorized, "malformed_auth_header", "authorization header must be 'Bearer <token>'"
	case errors.Is(err, service.ErrInvalidSessionToken):
		return http.StatusUnauthorized, "invalid_session_token", "invalid session token"
	case errors.Is(err, service.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "too_many_attempts", "too many login attempts, try again later"
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
