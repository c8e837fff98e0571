// Package worker выполняет задачи flow, полученные из RabbitMQ.
//
// Worker берёт TaskEnvelope из tasks.ready, выполняет задачу (обучение
// снимка узла, отрезок стадий или шаг BiFlow) и отправляет ResultEnvelope
// в binet.results с routing key reply_to. Config.Concurrency задаёт число
// задач, которые один процесс выполняет одновременно.
//
// # Использование
//
//	codec := parallel.NewCodec(engine.Registry())
//	biflow.RegisterCodec(codec)
//
//	w := worker.New(worker.Config{
//	    Codec:       codec,
//	    Publisher:   mq.NewPublisher(conn, logger),
//	    Conn:        conn,
//	    Tasks:       repo.NewTaskRepo(pool),
//	    Concurrency: 4,
//	    Logger:      logger,
//	})
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// # Ошибки
//
// Ошибка задачи (размерность, паника, таймаут) не ломает обработку
// сообщения: она уходит планировщику в ResultEnvelope.Error, а сообщение
// подтверждается. Сообщение возвращается в очередь, только если результат
// не удалось опубликовать. Сообщение без reply_to уходит в DLQ.
//
// Retry задач нет: упавшая задача прерывает фазу на стороне планировщика.
package worker
