package models

import "time"

// Статусы подписки.
const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusExpired   = "expired"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusSuspended = "suspended"
)

// Subscription представляет запись о праве пользователя на доступ к приложению.
// У пользователя может быть не более одной подписки, владелец определяется
// полем UserID; поиск по (app_id, user_identifier) выполняется через join
// с таблицей users и не является самостоятельным источником истины.
// EndDate равный nil означает бессрочную подписку.
type Subscription struct {
	ID               int64      // Уникальный идентификатор подписки
	AppID            string     // Приложение, в рамках которого действует подписка
	UserID           int64      // Владелец подписки
	SubscriptionType string     // Тариф: free, basic, premium, enterprise
	Status           string     // Статус: active, expired, cancelled, suspended
	StartDate        time.Time  // Дата начала действия
	EndDate          *time.Time // Дата окончания; nil — без ограничения
	Notes            *string    // Заметки администратора
	CreatedAt        time.Time  // Дата создания записи
}

// IsEnded сообщает, истекла ли подписка к моменту now по дате окончания.
// Бессрочные подписки не истекают.
func (s *Subscription) IsEnded(now time.Time) bool {
	return s.EndDate != nil && s.EndDate.Before(now)
}

// SubscriptionSummary краткая информация о подписке, возвращаемая
// мобильному клиенту в ответах на проверку доступа и вход.
type SubscriptionSummary struct {
	Type    string     `json:"type"`
	Status  string     `json:"status"`
	EndDate *time.Time `json:"end_date"`
}
