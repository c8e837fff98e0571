// Package parallel раскладывает обучение и execute flow на задачи
// планировщика.
//
// # Обучение
//
// Для каждой пары (стадия, фаза):
//
//  1. Генерация задач: если узел Forkable, на каждый чанк создаётся
//     TrainingTask со своим снимком (Fork) и ссылками на уже обученные
//     стадии выше по потоку.
//  2. Отправка: все задачи уходят в Scheduler.Submit.
//  3. Слияние: Collect, сопоставление по TaskID, ForkContainer. Любая
//     ошибка задачи отменяет фазу целиком: Join не вызывается.
//     Иначе Join вызывается ровно один раз.
//  4. Переход: StopTraining, следующая фаза или стадия.
//
// Стадии, которые не форкаются, обучаются последовательно. Следующая фаза
// строится только по узлу после join.
//
//	pf, err := parallel.New(nodes.NewStandardization(), nodes.NewPolynomial(2), nodes.NewVarianceSelection(5))
//	sched := scheduler.NewPool(scheduler.PoolConfig{Workers: 4})
//	err = pf.Train(ctx, data, sched)
//	y, err := pf.ExecuteChunks(ctx, chunks, sched)
//
// nil вместо планировщика означает обычный последовательный Flow.
//
// # Execute
//
// Стадии делятся на отрезки: подряд идущие stateless стадии выполняются
// одной ExecuteTask на чанк, stateful стадии — в вызывающей горутине.
// Результаты собираются в OrderedContainer по индексу чанка.
//
// # ParallelFlowNode
//
// FlowNode, который умеет Fork/Join: снимок содержит обученные вложенные
// стадии и снимок текущей.
//
// # Codec
//
// Codec переводит задачи и их результаты в JSON для удалённых воркеров.
package parallel
