// Package models содержит доменные модели пользователей мобильных приложений,
// их подписок и сессий. Структуры используются в бизнес-логике и при работе
// с хранилищем.
package models

import "time"

// Статусы учётной записи пользователя.
const (
	UserStatusActive    = "active"
	UserStatusInactive  = "inactive"
	UserStatusSuspended = "suspended"
)

// User представляет пользователя мобильного приложения.
// Пара (AppID, UserIdentifier) уникальна: один идентификатор
// регистрируется в приложении только один раз.
type User struct {
	ID             int64      // Уникальный идентификатор пользователя
	AppID          string     // Приложение, которому принадлежит учётная запись
	UserIdentifier string     // Логин пользователя внутри приложения
	PasswordHash   *string    // Хэш пароля; nil для учёток без парольного входа
	Name           *string    // Имя пользователя
	Email          *string    // Электронная почта
	Phone          *string    // Контактный телефон
	Status         string     // Статус учётной записи: active, inactive, suspended
	Notes          *string    // Заметки администратора
	CreatedAt      time.Time  // Дата регистрации
	UpdatedAt      *time.Time // Дата последнего изменения
}
