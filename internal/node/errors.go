package node

import (
	"errors"
	"fmt"
)

// Базовые виды ошибок узлов. Типизированные ошибки ниже разворачиваются
// в них, так что работает и errors.Is, и errors.As.
var (
	// ErrInvalidDimension — размерность данных не совпадает с размерностью узла.
	ErrInvalidDimension = errors.New("invalid dimension")

	// ErrTrainingOrder — нарушен порядок train / stop_training.
	ErrTrainingOrder = errors.New("training order violation")

	// ErrUntrainedNode — execute на узле, у которого остались фазы обучения.
	ErrUntrainedNode = errors.New("node is not trained")

	// ErrNotForkable — узел не поддерживает fork/join.
	ErrNotForkable = errors.New("node is not forkable")

	// ErrUnknownKind — kind не зарегистрирован в Registry.
	ErrUnknownKind = errors.New("unknown node kind")

	// ErrInvalidParam — неверный параметр фабрики узла.
	ErrInvalidParam = errors.New("invalid node parameter")

	// ErrForkMismatch — снимок не совместим с живым узлом.
	ErrForkMismatch = errors.New("fork does not match node")
)

// InvalidDimensionError — несовпадение размерности.
type InvalidDimensionError struct {
	Side     string // "input" или "output"
	Expected int
	Got      int
}

// Error реализует интерфейс error.
func (e *InvalidDimensionError) Error() string {
	return fmt.Sprintf("invalid dimension: expected %s dim %d, got %d", e.Side, e.Expected, e.Got)
}

// Unwrap возвращает ErrInvalidDimension.
func (e *InvalidDimensionError) Unwrap() error {
	return ErrInvalidDimension
}

// TrainingOrderError — train или stop_training вызваны не вовремя.
type TrainingOrderError struct {
	Op     string // "train" или "stop_training"
	Phase  int
	Reason string
}

// Error реализует интерфейс error.
func (e *TrainingOrderError) Error() string {
	return fmt.Sprintf("training order violation: %s in phase %d: %s", e.Op, e.Phase, e.Reason)
}

// Unwrap возвращает ErrTrainingOrder.
func (e *TrainingOrderError) Unwrap() error {
	return ErrTrainingOrder
}

// UntrainedNodeError — execute до завершения всех фаз.
type UntrainedNodeError struct {
	Kind   string
	Phase  int
	Phases int
}

// Error реализует интерфейс error.
func (e *UntrainedNodeError) Error() string {
	return fmt.Sprintf("node %s is not trained: %d of %d phases complete", e.Kind, e.Phase, e.Phases)
}

// Unwrap возвращает ErrUntrainedNode.
func (e *UntrainedNodeError) Unwrap() error {
	return ErrUntrainedNode
}
