package models

import "time"

// AdminUser представляет администратора панели управления.
// Администраторы не связаны с приложениями и их подписками.
type AdminUser struct {
	ID           int64     // Уникальный идентификатор администратора
	Email        string    // Электронная почта, используется как логин
	PasswordHash string    // Хэш пароля
	Name         string    // Отображаемое имя
	CreatedAt    time.Time // Дата создания учётной записи
}
