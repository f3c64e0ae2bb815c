package models

import "time"

// Session — пара токенов пользователя и срок действия session-токена.
//
// Описание:
//   - Token — короткоживущий непрозрачный токен для доступа к API;
//   - RefreshToken — долгоживущий токен, годный только для выпуска новой пары;
//   - ExpiresAt — момент, начиная с которого Token недействителен (UTC).
type Session struct {
	Token        string
	RefreshToken string
	ExpiresAt    time.Time
}

// Valid сообщает, принимается ли предъявленный токен в момент now.
// Пустой токен не принимается никогда.
func (s Session) Valid(token string, now time.Time) bool {
	if token == "" || s.Token == "" {
		return false
	}

	return token == s.Token && now.Before(s.ExpiresAt)
}

// Expire возвращает копию сессии, истёкшую в момент at.
func (s Session) Expire(at time.Time) Session {
	s.ExpiresAt = at
	return s
}
