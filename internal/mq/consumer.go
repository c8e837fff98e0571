package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler обрабатывает одно сообщение. Ошибка ведёт к nack: с requeue,
// если она не оборачивает ErrPermanent.
type Handler func(ctx context.Context, msg *Delivery) error

// Delivery — разобранное сообщение из очереди.
type Delivery struct {
	Message     Message
	Redelivered bool
}

// ConsumerConfig — конфигурация Consumer.
type ConsumerConfig struct {
	Queue   string
	Handler Handler

	// Concurrency — сколько сообщений обрабатывается одновременно.
	// По умолчанию 1.
	Concurrency int

	// Prefetch — сколько сообщений брокер отдаёт без ack. По умолчанию
	// равен Concurrency.
	Prefetch int

	// Declare вызывается перед каждым Consume, в том числе после reconnect.
	// Нужен для эксклюзивных очередей.
	Declare func(ch *amqp.Channel) error
}

// Consumer читает очередь и переподписывается после каждого reconnect.
type Consumer struct {
	conn   *Connection
	logger *slog.Logger
	cfg    ConsumerConfig

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Prefetch < cfg.Concurrency {
		cfg.Prefetch = cfg.Concurrency
	}
	return &Consumer{
		conn:   conn,
		logger: logger.With("queue", cfg.Queue),
		cfg:    cfg,
	}
}

// Start читает очередь до отмены ctx или Stop.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	for {
		reconnected := c.conn.ReconnectNotify()
		deliveries, err := c.subscribe()
		if err != nil {
			c.logger.Error("failed to subscribe", "error", err)
		} else {
			c.logger.Info("consumer started")
			c.drain(ctx, deliveries)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("waiting for reconnect")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-reconnected:
		}
	}
}

// Stop останавливает Start.
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Consumer) subscribe() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}
	if c.cfg.Declare != nil {
		if err := c.cfg.Declare(ch); err != nil {
			return nil, err
		}
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	// ack ручной, тег генерирует брокер
	deliveries, err := ch.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", c.cfg.Queue, err)
	}
	return deliveries, nil
}

// drain обрабатывает сообщения в Concurrency горутин, пока канал доставки
// открыт. Возвращается, когда все горутины закончили текущее сообщение.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) {
	var wg sync.WaitGroup
	for range c.cfg.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case raw, ok := <-deliveries:
					if !ok {
						return
					}
					c.settle(raw, c.handle(ctx, raw))
				}
			}
		}()
	}
	wg.Wait()
}

// outcome — чем закончилась обработка сообщения.
type outcome int

const (
	outcomeAck outcome = iota
	outcomeRequeue
	outcomeReject
)

func (c *Consumer) handle(ctx context.Context, raw amqp.Delivery) outcome {
	d, err := parseDelivery(raw)
	if err != nil {
		c.logger.Error("failed to unmarshal message", "error", err, "body", string(raw.Body))
		return outcomeReject
	}

	log := c.logger.With("message_id", d.Message.ID, "type", d.Message.Type, "task_id", d.Message.TaskID)
	log.Debug("received message", "redelivered", d.Redelivered)

	err = c.cfg.Handler(ctx, d)
	res := outcomeFor(err)
	if res != outcomeAck {
		log.Error("handler failed", "requeue", res == outcomeRequeue, "error", err)
	}
	return res
}

func (c *Consumer) settle(raw amqp.Delivery, res outcome) {
	var err error
	switch res {
	case outcomeAck:
		err = raw.Ack(false)
	case outcomeRequeue:
		err = raw.Nack(false, true)
	default:
		// без requeue сообщение уходит в DLQ очереди
		err = raw.Nack(false, false)
	}
	if err != nil {
		c.logger.Warn("failed to settle delivery", "tag", raw.DeliveryTag, "error", err)
	}
}

func outcomeFor(err error) outcome {
	switch {
	case err == nil:
		return outcomeAck
	case errors.Is(err, ErrPermanent):
		return outcomeReject
	default:
		return outcomeRequeue
	}
}

func parseDelivery(raw amqp.Delivery) (*Delivery, error) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		return nil, err
	}
	return &Delivery{Message: msg, Redelivered: raw.Redelivered}, nil
}
