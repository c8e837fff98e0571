// Package remote — планировщик, отправляющий задачи воркерам через RabbitMQ.
//
// # Схема
//
//	Submit → parallel.Codec.EncodeTask → binet.tasks/ready → binet-worker
//	binet-worker → binet.results/<session> → handleResult → Collect
//
// У каждого Scheduler своя сессия: эксклюзивная очередь results.<session>,
// которая живёт, пока живёт соединение. Задачи, ожидающие результата,
// хранятся в памяти (pending). Повторный результат той же задачи
// игнорируется, результат чужой задачи подтверждается и отбрасывается.
//
// # Журнал
//
// Если заданы RunJournal и TaskJournal, планировщик записывает run
// (StartRun/FinishRun) и каждую отправленную задачу в статусе QUEUED.
// Статусы RUNNING/SUCCEEDED/FAILED пишет воркер.
//
// # Использование
//
//	s := remote.New(remote.Config{
//	    Codec:     codec,
//	    Publisher: mq.NewPublisher(conn, logger),
//	    Conn:      conn,
//	    Logger:    logger,
//	})
//	if err := s.Start(ctx); err != nil { ... }
//	defer s.Shutdown(ctx)
//
//	err := pf.Train(ctx, data, s)
package remote
