// Package token генерирует непрозрачные токены сессий мобильных приложений.
//
// Токен — 32 криптографически случайных байта в hex-представлении
// (64 символа). Токены непредсказуемы и не подлежат перебору.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Length длина токена сессии в байтах до hex-кодирования.
const Length = 32

// NewSessionToken возвращает новый случайный токен сессии.
func NewSessionToken() (string, error) {
	const op = "token.NewSessionToken"
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return hex.EncodeToString(buf), nil
}
