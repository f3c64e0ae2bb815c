// redact маскирует чувствительные данные перед записью в логи.
// Токены и пароли в логи не попадают вовсе; e-mail и username
// сокращаются до префикса, которого хватает для отладки.
package redact

import "strings"

// Email маскирует e-mail для логирования.
//
// Примеры:
//
//	"foobar@example.com" -> "fo***@example.com"
//	"ab@ex.com"          -> "***@ex.com"
//	"no-at"              -> "***"
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	return prefix(s[:i]) + "@" + s[i+1:]
}

// Username оставляет первые два символа имени пользователя.
func Username(s string) string {
	return prefix(s)
}

// Token возвращает литерал-заглушку для токена в логах.
func Token() string { return "[REDACTED_TOKEN]" }

// Password возвращает литерал-заглушку для пароля в логах.
func Password() string { return "[REDACTED_PASSWORD]" }

func prefix(s string) string {
	r := []rune(s)
	if len(r) > 2 {
		return string(r[:2]) + "***"
	}

	return "***"
}
