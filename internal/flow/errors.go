package flow

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyFlow — flow без узлов.
	ErrEmptyFlow = errors.New("flow has no nodes")

	// ErrDataLength — данных для обучения больше, чем стадий.
	ErrDataLength = errors.New("training data does not match flow length")
)

// FlowError — ошибка с контекстом стадии.
type FlowError struct {
	Op    string // build, train, stop_training, execute
	Stage int
	Phase int // -1, если не применимо
	Chunk int // -1, если не применимо
	Err   error
}

// Error реализует интерфейс error.
func (e *FlowError) Error() string {
	msg := fmt.Sprintf("flow: %s stage %d", e.Op, e.Stage)
	if e.Phase >= 0 {
		msg += fmt.Sprintf(" phase %d", e.Phase)
	}
	if e.Chunk >= 0 {
		msg += fmt.Sprintf(" chunk %d", e.Chunk)
	}
	return msg + ": " + e.Err.Error()
}

// Unwrap возвращает исходную ошибку.
func (e *FlowError) Unwrap() error {
	return e.Err
}

// NewFlowError создаёт FlowError. FlowError того же flow возвращается как
// есть. Ошибки вложенного flow приходят завёрнутыми в NestedError и
// получают внешний FlowError со стадией FlowNode.
func NewFlowError(op string, stage, phase, chunk int, err error) error {
	if _, ok := err.(*FlowError); ok {
		return err
	}
	return &FlowError{Op: op, Stage: stage, Phase: phase, Chunk: chunk, Err: err}
}

// NestedError — ошибка внутри FlowNode. Err содержит FlowError со
// стадией вложенного flow.
type NestedError struct {
	Kind string
	Err  error
}

// Error реализует интерфейс error.
func (e *NestedError) Error() string {
	return "inside " + e.Kind + ": " + e.Err.Error()
}

// Unwrap возвращает ошибку вложенного flow.
func (e *NestedError) Unwrap() error {
	return e.Err
}

// Nested отделяет FlowError вложенного flow kind от ошибок внешнего.
// Остальные ошибки возвращаются как есть.
func Nested(kind string, err error) error {
	if _, ok := err.(*FlowError); ok {
		return &NestedError{Kind: kind, Err: err}
	}
	return err
}
