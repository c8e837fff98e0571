// Package mq — транспорт задач flow поверх RabbitMQ.
//
// Connection держит одно соединение и один канал и переподключается с
// экспоненциальной задержкой. Publisher отправляет задачи в binet.tasks
// (очередь tasks.ready, битые сообщения уходят в dlq.tasks), результаты
// в binet.results. У каждой сессии удалённого планировщика своя
// эксклюзивная очередь results.<session>, routing key равен сессии.
//
// Payload сообщений — байты parallel.Codec, mq их не разбирает.
package mq
