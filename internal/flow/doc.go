// Package flow реализует последовательный Flow и адаптер FlowNode.
//
// # Flow
//
// Flow — упорядоченный список узлов. Выход стадии i подаётся на вход
// стадии i+1; размерности сверяются при создании и после обучения
// каждой стадии, неизвестные размерности пробрасываются вперёд.
//
// Обучение идёт стадия за стадией:
//
//	f, err := flow.New(nodes.NewStandardization(), nodes.NewPolynomial(2), nodes.NewVarianceSelection(5))
//	err = f.Train(ctx, [][]*array.Matrix{chunks, nil, chunks})
//	y, err := f.Execute(ctx, x)
//
// nil вместо списка чанков — маркер «для этой стадии данных нет». Он
// допустим только для стадий, которым обучение не нужно.
//
// Каждый чанк стадии i сначала проходит через уже обученные стадии [0, i).
//
// # FlowNode
//
// FlowNode заворачивает Flow в node.Node: фазы вложенного flow идут
// подряд, размерности берутся с первой и последней стадии.
//
// # Ошибки
//
// Любая ошибка узла оборачивается в *FlowError с индексом стадии, фазы
// и чанка; исходная ошибка доступна через errors.As.
package flow
