// password хэширует и проверяет пароли пользователей через bcrypt.
package password

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrTooLong — bcrypt не принимает пароли длиннее 72 байт.
var ErrTooLong = errors.New("password exceeds 72 bytes")

// Hasher считает bcrypt-дайджесты с фиксированной стоимостью.
type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummy     string
}

// NewHasher возвращает Hasher со стоимостью cost.
// 0 означает bcrypt.DefaultCost; значения вне [MinCost, MaxCost] прижимаются к границам.
func NewHasher(cost int) *Hasher {
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}

	return &Hasher{cost: cost}
}

// Cost возвращает используемую стоимость.
func (h *Hasher) Cost() int { return h.cost }

// Hash возвращает bcrypt-дайджест пароля (соль генерируется bcrypt).
func (h *Hasher) Hash(plain string) (string, error) {
	const op = "password.Hash"

	digest, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%s: %w", op, ErrTooLong)
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(digest), nil
}

// Verify сообщает, соответствует ли пароль дайджесту.
// Повреждённый дайджест даёт false.
func (h *Hasher) Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

// VerifyAbsent выполняет сравнение той же стоимости, что и Verify,
// для пользователя, которого нет. Всегда возвращает false.
func (h *Hasher) VerifyAbsent(plain string) bool {
	_ = h.Verify(plain, h.dummyDigest())
	return false
}

// dummyDigest — дайджест случайного значения со стоимостью h.cost, считается один раз.
func (h *Hasher) dummyDigest() string {
	h.dummyOnce.Do(func() {
		digest, err := bcrypt.GenerateFromPassword([]byte("absent-user-placeholder"), h.cost)
		if err == nil {
			h.dummy = string(digest)
		}
	})

	return h.dummy
}
