package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher публикует задачи и результаты.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{conn: conn, logger: logger}
}

// PublishTaskReady отправляет задачу в tasks.ready. Результат воркер вернёт
// в очередь сессии replyTo.
func (p *Publisher) PublishTaskReady(ctx context.Context, taskID, runID uuid.UUID, replyTo string, payload []byte) error {
	msg := NewMessage(MessageTypeTaskReady, taskID, payload)
	msg.RunID = runID
	msg.ReplyTo = replyTo
	return p.Publish(ctx, ExchangeTasks, RoutingKeyReady, msg)
}

// PublishTaskResult отправляет результат задачи сессии replyTo.
func (p *Publisher) PublishTaskResult(ctx context.Context, taskID uuid.UUID, replyTo string, payload []byte) error {
	if replyTo == "" {
		return fmt.Errorf("%w: task %s has no reply_to", ErrPermanent, taskID)
	}
	msg := NewMessage(MessageTypeTaskResult, taskID, payload)
	return p.Publish(ctx, ExchangeResults, RoutingKey(replyTo), msg)
}

// Publish отправляет произвольное сообщение.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, key RoutingKey, msg *Message) error {
	pub, err := publishing(msg)
	if err != nil {
		return err
	}

	err = p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		return ch.PublishWithContext(ctx, string(exchange), string(key), false, false, pub)
	})
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", exchange, key, err)
	}

	p.logger.Debug("published message",
		"exchange", exchange,
		"routing_key", key,
		"message_id", msg.ID,
		"type", msg.Type,
		"task_id", msg.TaskID,
	)
	return nil
}

// publishing собирает AMQP-сообщение. Задачи persistent: они переживают
// рестарт брокера. Результаты идут в эксклюзивную очередь и без сессии
// не нужны.
func publishing(msg *Message) (amqp.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal message: %w", err)
	}

	mode := amqp.Persistent
	if msg.Type == MessageTypeTaskResult {
		mode = amqp.Transient
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: mode,
		MessageId:    msg.ID,
		Type:         string(msg.Type),
		ReplyTo:      msg.ReplyTo,
		Timestamp:    msg.Timestamp,
		Body:         body,
	}, nil
}
