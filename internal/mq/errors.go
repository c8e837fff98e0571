package mq

import "errors"

var (
	// ErrNoChannel — канал AMQP недоступен (нет соединения).
	ErrNoChannel = errors.New("no channel available")

	// ErrPermanent — обработчик не сможет обработать сообщение повторно.
	// Такие сообщения уходят в DLQ без requeue.
	ErrPermanent = errors.New("permanent message failure")
)
