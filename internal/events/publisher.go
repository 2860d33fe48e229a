// Package events публикует события об активации подписки в RabbitMQ.
// Публикация идёт в пути запроса после успешной реконсиляции и
// выполняется по принципу best effort: недоступный брокер не должен
// ронять обработку платежа.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"github.com/legalwise/subscription-backend/internal/models"
)

const (
	exchange   = "subscriptions"
	queueName  = "subscription_events"
	routingKey = "subscription.activated"
)

// SubscriptionActivated тело события активации подписки.
type SubscriptionActivated struct {
	Email      string    `json:"email"`
	Plan       string    `json:"plan"`
	Reference  string    `json:"reference"`
	ExpiryDate time.Time `json:"expiry_date"`
}

// Publisher публикует события в RabbitMQ.
type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Connect подключается к брокеру с повторами и объявляет exchange и очередь.
func Connect(connection string, retries int, delay time.Duration) (*Publisher, error) {
	const op = "events.Connect"

	var conn *amqp.Connection
	var err error
	for range retries {
		conn, err = amqp.Dial(connection)
		if err == nil {
			break
		}
		time.Sleep(delay)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.QueueBind(queueName, routingKey, exchange, false, nil); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Publisher{conn: conn, ch: ch}, nil
}

// PublishActivated публикует событие активации подписки.
// Вызов на nil-паблишере безопасен: сервис может работать без брокера.
func (p *Publisher) PublishActivated(sub models.Subscription) error {
	const op = "events.PublishActivated"
	if p == nil {
		return nil
	}

	body, err := json.Marshal(SubscriptionActivated{
		Email:      sub.Email,
		Plan:       string(sub.Plan),
		Reference:  sub.LastPayment.Reference,
		ExpiryDate: sub.ExpiryDate,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = p.ch.Publish(
		exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close закрывает канал и соединение с брокером.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	_ = p.ch.Close()
	_ = p.conn.Close()
}
