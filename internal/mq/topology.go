package mq

import (
	"context"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

const (
	ExchangeTasks   Exchange = "binet.tasks"
	ExchangeResults Exchange = "binet.results"
	ExchangeDLQ     Exchange = "binet.dlq"
)

const (
	QueueTasksReady Queue = "tasks.ready"
	QueueDLQTasks   Queue = "dlq.tasks"
)

const (
	RoutingKeyReady    RoutingKey = "ready"
	RoutingKeyDLQTasks RoutingKey = "tasks"
)

// durableQueue — постоянная очередь с единственной привязкой.
type durableQueue struct {
	name     Queue
	exchange Exchange
	key      RoutingKey
	dlq      Exchange
	dlqKey   RoutingKey
	consumer string
}

func (q durableQueue) args() amqp.Table {
	if q.dlq == "" {
		return nil
	}
	return amqp.Table{
		"x-dead-letter-exchange":    string(q.dlq),
		"x-dead-letter-routing-key": string(q.dlqKey),
	}
}

// Все обменники direct и durable.
var exchanges = []Exchange{ExchangeTasks, ExchangeResults, ExchangeDLQ}

var durableQueues = []durableQueue{
	{
		name:     QueueTasksReady,
		exchange: ExchangeTasks,
		key:      RoutingKeyReady,
		dlq:      ExchangeDLQ,
		dlqKey:   RoutingKeyDLQTasks,
		consumer: "binet-worker",
	},
	{
		name:     QueueDLQTasks,
		exchange: ExchangeDLQ,
		key:      RoutingKeyDLQTasks,
		consumer: "manual",
	},
}

// SetupTopology объявляет постоянную часть топологии. Очереди результатов
// объявляет каждый планировщик сам, см. DeclareResultQueue.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, declareTopology)
}

func declareTopology(ch *amqp.Channel) error {
	for _, ex := range exchanges {
		if err := ch.ExchangeDeclare(string(ex), amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex, err)
		}
	}
	for _, q := range durableQueues {
		if _, err := ch.QueueDeclare(string(q.name), true, false, false, false, q.args()); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
		if err := ch.QueueBind(string(q.name), string(q.key), string(q.exchange), false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", q.name, q.exchange, err)
		}
	}
	return nil
}

// ResultQueue возвращает имя очереди результатов сессии.
func ResultQueue(session string) Queue {
	return Queue("results." + session)
}

// DeclareResultQueue объявляет эксклюзивную очередь результатов сессии и
// привязывает её к binet.results по ключу session. Очередь живёт, пока
// живо соединение: после reconnect её объявляют заново.
func DeclareResultQueue(ch *amqp.Channel, session string) error {
	q := ResultQueue(session)
	// auto-delete + exclusive, не durable
	if _, err := ch.QueueDeclare(string(q), false, true, true, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", q, err)
	}
	if err := ch.QueueBind(string(q), session, string(ExchangeResults), false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", q, ExchangeResults, err)
	}
	return nil
}

// TopologyInfo описывает топологию для отладочного лога.
func TopologyInfo() string {
	var b strings.Builder
	for _, ex := range exchanges {
		fmt.Fprintf(&b, "%s (direct)\n", ex)
		for _, q := range durableQueues {
			if q.exchange != ex {
				continue
			}
			fmt.Fprintf(&b, "  %s [key=%s, consumer=%s", q.name, q.key, q.consumer)
			if q.dlq != "" {
				fmt.Fprintf(&b, ", dlq=%s", q.dlq)
			}
			b.WriteString("]\n")
		}
		if ex == ExchangeResults {
			b.WriteString("  results.<session> [key=<session>, consumer=remote scheduler, exclusive]\n")
		}
	}
	return b.String()
}
