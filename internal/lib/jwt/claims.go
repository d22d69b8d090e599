// Package jwt реализует генерацию и парсинг JWT токенов с пользовательскими claim полями.
//
// Maker определяет интерфейс для создания и проверки JWT токенов с username,
// ролью и уникальным идентификатором пользователя.
// MakerImpl — конкретная реализация с использованием секретного ключа и срока жизни.
package jwt

import (
	"time"
)

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
type Maker interface {
	// GenerateToken создаёт токен с username, ролью и user_uid
	GenerateToken(username, role, userUID string) (string, error)
	// ParseToken возвращает *CustomClaims с данными пользователя
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует интерфейс Maker с использованием секретного ключа
// и времени жизни токена (TTL).
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewMaker создает новый MakerImpl.
func NewMaker(secretKey string, tokenTTL time.Duration) *MakerImpl {
	return &MakerImpl{secretKey: secretKey, tokenTTL: tokenTTL}
}
