// Package node описывает контракт обучаемого узла и его возможности.
//
// # Обзор
//
// Node — единица преобразования данных. Узел может иметь несколько фаз
// обучения; каждая фаза принимает данные через Train и завершается
// StopTraining. Пока остаются незавершённые фазы, Execute недоступен.
//
//	n := nodes.NewStandardization()
//	for n.IsTraining() {
//	    for _, chunk := range chunks {
//	        if err := n.Train(chunk); err != nil { ... }
//	    }
//	    if err := n.StopTraining(); err != nil { ... }
//	}
//	y, err := n.Execute(x)
//
// # Возможности
//
// Дополнительные возможности проверяются через type assertion, а не по
// конкретному типу:
//   - Forkable — узел умеет делать снимок текущей фазы (Fork) и сливать
//     обученные снимки обратно (Join). Только такие узлы обучаются параллельно.
//   - BiNode — узел получает и возвращает Message, управляющий маршрутом в BiFlow.
//   - StatefulExecutor — Execute узла нельзя дробить на параллельные задачи.
//
// # Base
//
// Base хранит размерности, счётчик фаз и флаги. Конкретные узлы встраивают
// Base и вызывают PrepareTrain / FinishPhase / PrepareExecute.
//
// # Registry
//
// Registry сопоставляет kind узла с фабрикой. Через него узлы кодируются
// в Envelope {kind, state} для передачи удалённым воркерам.
package node
