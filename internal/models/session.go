package models

import "time"

// Session представляет эксклюзивную сессию пользователя на одном устройстве.
// Живая (неистёкшая) сессия у пользователя может быть только одна —
// это гарантирует уникальный индекс user_sessions(user_id) в хранилище.
type Session struct {
	ID             int64     // Уникальный идентификатор сессии
	SubscriptionID int64     // Подписка, в рамках которой выдана сессия
	UserID         int64     // Владелец сессии
	SessionToken   string    // Непрозрачный случайный токен, уникален глобально
	DeviceInfo     *string   // Описание устройства, переданное клиентом
	IPAddress      *string   // Адрес, с которого выполнен вход
	LastActive     time.Time // Время последней активности
	ExpiresAt      time.Time // Срок действия: время создания + 30 суток
	CreatedAt      time.Time // Время создания
}

// IsExpired сообщает, истекла ли сессия к моменту now.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
