// Package audit публикует события аудита (входы, отказы, принудительные
// выходы) в RabbitMQ. Хранение и просмотр журнала — забота внешнего
// потребителя очереди, сервис только отправляет события.
package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	librabbit "github.com/nanacrew/appgate/internal/lib/rabbitmq"
)

// Event событие аудита.
type Event struct {
	ID        string         `json:"id"`
	Category  string         `json:"category"` // auth, session
	Action    string         `json:"action"`   // gate_allowed, gate_denied, force_logout, ...
	AppID     string         `json:"app_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewEvent создаёт событие с заполненными идентификатором и временем.
func NewEvent(category, action, appID string, details map[string]any) Event {
	return Event{
		ID:        uuid.New().String(),
		Category:  category,
		Action:    action,
		AppID:     appID,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
}

// Publisher описывает отправку событий аудита.
type Publisher interface {
	Publish(event Event) error
}

// RabbitPublisher публикует события в exchange RabbitMQ.
type RabbitPublisher struct {
	ch       *amqp.Channel
	exchange string
}

// NewRabbitPublisher создаёт публикатор поверх открытого канала.
func NewRabbitPublisher(ch *amqp.Channel, exchange string) *RabbitPublisher {
	return &RabbitPublisher{ch: ch, exchange: exchange}
}

// Publish отправляет событие с ключом маршрутизации "audit".
func (p *RabbitPublisher) Publish(event Event) error {
	return librabbit.PublishMessage(p.ch, p.exchange, "audit", event)
}
