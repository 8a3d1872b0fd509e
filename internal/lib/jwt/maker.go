// Package jwt реализует генерацию и парсинг JWT токенов с пользовательскими claim полями.
//
// Токены используются в двух местах: как bearer-токен мобильного приложения
// после парольного входа и как подписанная cookie сессии администратора.
package jwt

import (
	"time"
)

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
type Maker interface {
	// GenerateAppToken создаёт токен мобильного пользователя с id, логином и приложением.
	GenerateAppToken(userID int64, userIdentifier, appID string) (string, error)
	// GenerateAdminToken создаёт токен администратора панели.
	GenerateAdminToken(adminID int64, email string) (string, error)
	// ParseToken разбирает токен и возвращает *CustomClaims, если подпись и срок валидны.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует интерфейс Maker с использованием секретного ключа
// и отдельных сроков жизни для токенов приложения и админки.
type MakerImpl struct {
	secretKey   string        // Секретный ключ для подписи токенов.
	appTokenTTL time.Duration // Время жизни токена мобильного пользователя.
	adminTTL    time.Duration // Время жизни токена администратора.
}

// NewJWTMaker создаёт новый экземпляр MakerImpl.
func NewJWTMaker(secretKey string, appTTL, adminTTL time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey:   secretKey,
		appTokenTTL: appTTL,
		adminTTL:    adminTTL,
	}
}
