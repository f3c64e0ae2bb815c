// token выпускает непрозрачные session/refresh токены.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// entropyBytes — объём случайных данных на один токен.
const entropyBytes = 64

// Generator выпускает один токен. Сервис принимает его как зависимость,
// чтобы тесты могли подставлять предсказуемые значения.
type Generator func() (string, error)

// Generate берёт 64 байта из crypto/rand и возвращает hex SHA-256 от них
// (64 символа [0-9a-f]).
func Generate() (string, error) {
	const op = "token.Generate"

	buf := make([]byte, entropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:]), nil
}
