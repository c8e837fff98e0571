// Package biflow реализует BiFlow — flow, в котором узлы могут менять
// маршрут выполнения через node.Message.
//
// # Маршрутизация
//
// Execute — явный автомат: курсор начинает с 0, на каждом шаге выполняется
// стадия под курсором (BiExecute для BiNode, Execute для остальных), затем
// по сообщению выбирается следующая стадия:
//   - nil или относительное +1 — следующая стадия
//   - относительное k — курсор + k
//   - абсолютное t — стадия t
//
// Payload сообщения заменяет данные для целевой стадии. Values сообщения
// переносятся до конца execute и передаются каждому BiNode. Выход за
// последнюю стадию относительным ходом завершает execute.
//
// Каждое выполнение стадии — один hop. Больше MaxHops — *RoutingLoopError.
//
//	bf, err := biflow.New([]node.Node{a, router, c}, biflow.WithMaxHops(200))
//	y, err := bf.Execute(ctx, x)
//
// Обучение BiFlow такое же, как у flow.Flow.
//
// # ParallelBiFlow
//
// Обучение — как у parallel.ParallelFlow. Execute по чанкам идёт «шеренгой»:
// на каждом шаге все чанки выполняют одну и ту же стадию как задачи
// планировщика, а решение о маршруте принимается в вызывающей горутине.
// Пока все чанки идут в одну стадию, шеренга сохраняется; иначе каждый чанк
// дорабатывает свой маршрут последовательно.
//
// # Вложенные BiFlow
//
// FlowNode и ParallelFlowNode (kind'ы biflow и parallel-biflow) заворачивают
// BiFlow в узел. Маршрут внутри узла ведётся отдельно, со своим лимитом
// hop'ов; наружу уходят данные и накопленные Values, а внешний маршрут
// идёт на +1. Ошибки вложенных стадий приходят как flow.NestedError внутри
// FlowError внешней стадии.
package biflow
