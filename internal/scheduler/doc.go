// Package scheduler описывает контракт планировщика задач и локальные
// реализации.
//
// Flow раскладывает фазу обучения (или execute по чанкам) на независимые
// задачи и отдаёт их планировщику. Планировщик ничего не знает об узлах:
// он получает Task, выполняет Run и возвращает Result.
//
//	sched := scheduler.NewPool(scheduler.PoolConfig{Workers: 4})
//	defer sched.Shutdown(ctx)
//
//	h, err := sched.Submit(ctx, task)
//	results, err := sched.Collect(ctx, []scheduler.Handle{h})
//
// Collect может вернуть результаты в любом порядке; вызывающий сопоставляет
// их по TaskID. Ошибка задачи лежит в Result.Err, ошибка Collect — это
// отмена контекста или неизвестный handle.
//
// Реализации:
//   - sequential.go — Sequential, выполняет задачу прямо в Submit
//   - pool.go       — Pool, N горутин поверх errgroup
//
// Удалённый планировщик поверх RabbitMQ — в пакете remote.
package scheduler
