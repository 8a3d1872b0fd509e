package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Субъекты токенов: мобильный пользователь приложения и администратор панели.
const (
	SubjectApp   = "app"
	SubjectAdmin = "admin"
)

// CustomClaims описывает пользовательские данные, хранящиеся в JWT.
type CustomClaims struct {
	UserID               int64  `json:"user_id"`         // Идентификатор пользователя или администратора
	Username             string `json:"username"`        // Логин пользователя (email для администратора)
	AppID                string `json:"app_id,omitempty"` // Приложение; пусто для администратора
	jwt.RegisteredClaims        // Встроенные стандартные claims JWT (ExpiresAt, IssuedAt и пр.)
}

// GenerateAppToken создаёт JWT токен мобильного пользователя,
// подписывая его секретным ключом. Время жизни определяется appTokenTTL.
func (j *MakerImpl) GenerateAppToken(userID int64, userIdentifier, appID string) (string, error) {
	return j.generate(userID, userIdentifier, appID, SubjectApp, j.appTokenTTL)
}

// GenerateAdminToken создаёт JWT токен администратора панели.
func (j *MakerImpl) GenerateAdminToken(adminID int64, email string) (string, error) {
	return j.generate(adminID, email, "", SubjectAdmin, j.adminTTL)
}

func (j *MakerImpl) generate(id int64, username, appID, subject string, ttl time.Duration) (string, error) {
	claims := CustomClaims{
		UserID:   id,
		Username: username,
		AppID:    appID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

// ParseToken парсит JWT токен, проверяет его подпись и валидность,
// возвращает CustomClaims с данными, если токен корректен.
func (j *MakerImpl) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	return claims, nil
}
