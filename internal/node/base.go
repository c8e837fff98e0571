package node

import (
	"fmt"

	"github.com/shaiso/binet/internal/array"
)

// Base — общая бухгалтерия узла: размерности, фазы, флаги.
//
// Поля экспортированы ради JSON (отправка узла воркеру).
type Base struct {
	KindName string `json:"-"`
	In       int    `json:"input_dim"`
	Out      int    `json:"output_dim"`
	Total    int    `json:"phases"`
	Done     int    `json:"phase"`

	// Open — текущая фаза получила данные и ещё не завершена.
	Open bool `json:"phase_open"`
	// Closed — последняя фаза завершена, новых данных не было.
	Closed bool `json:"phase_closed"`
}

// NewBase создаёт бухгалтерию узла с заданным числом фаз.
func NewBase(kind string, phases int) Base {
	return Base{KindName: kind, Total: phases}
}

func (b *Base) Kind() string      { return b.KindName }
func (b *Base) InputDim() int     { return b.In }
func (b *Base) OutputDim() int    { return b.Out }
func (b *Base) Phases() int       { return b.Total }
func (b *Base) Phase() int        { return b.Done }
func (b *Base) IsTrainable() bool { return b.Total > 0 }
func (b *Base) IsTraining() bool  { return b.Done < b.Total }

// SetInputDim фиксирует входную размерность.
func (b *Base) SetInputDim(d int) error {
	return b.FixDims(d, 0)
}

// FixDims фиксирует размерности; 0 означает «не менять».
func (b *Base) FixDims(in, out int) error {
	if in < 0 || out < 0 {
		return fmt.Errorf("%w: negative dimension", ErrInvalidParam)
	}
	if in != 0 && b.In != 0 && b.In != in {
		return &InvalidDimensionError{Side: "input", Expected: b.In, Got: in}
	}
	if out != 0 && b.Out != 0 && b.Out != out {
		return &InvalidDimensionError{Side: "output", Expected: b.Out, Got: out}
	}
	if in != 0 {
		b.In = in
	}
	if out != 0 {
		b.Out = out
	}
	return nil
}

// PrepareTrain проверяет порядок вызовов и размерность x, затем открывает фазу.
// setDim вызывается для ещё не установленной входной размерности.
func (b *Base) PrepareTrain(x *array.Matrix, setDim func(int) error) error {
	if !b.IsTrainable() {
		return &TrainingOrderError{Op: "train", Phase: b.Done, Reason: "node is not trainable"}
	}
	if !b.IsTraining() {
		return &TrainingOrderError{Op: "train", Phase: b.Done, Reason: "all phases are complete"}
	}
	if err := checkInput(b.In, x, setDim); err != nil {
		return err
	}
	b.Open = true
	b.Closed = false
	return nil
}

// FinishPhase завершает текущую фазу.
func (b *Base) FinishPhase() error {
	if !b.IsTrainable() {
		return &TrainingOrderError{Op: "stop_training", Phase: b.Done, Reason: "node is not trainable"}
	}
	if !b.IsTraining() {
		return &TrainingOrderError{Op: "stop_training", Phase: b.Done, Reason: "all phases are complete"}
	}
	if !b.Open {
		reason := "no data received in this phase"
		if b.Closed {
			reason = "phase already finalized"
		}
		return &TrainingOrderError{Op: "stop_training", Phase: b.Done, Reason: reason}
	}
	b.Done++
	b.Open = false
	b.Closed = true
	return nil
}

// PrepareExecute проверяет, что обучение завершено, и сверяет размерность x.
func (b *Base) PrepareExecute(x *array.Matrix, setDim func(int) error) error {
	if b.IsTraining() {
		return &UntrainedNodeError{Kind: b.KindName, Phase: b.Done, Phases: b.Total}
	}
	return checkInput(b.In, x, setDim)
}

// ForkBase возвращает копию бухгалтерии для снимка текущей фазы.
func (b *Base) ForkBase() Base {
	c := *b
	c.Open = false
	c.Closed = false
	return c
}

// JoinBase сливает бухгалтерию снимка в живой узел.
func (b *Base) JoinBase(f *Base) error {
	if f.Done != b.Done || f.Total != b.Total {
		return fmt.Errorf("%w: fork at phase %d/%d, node at %d/%d",
			ErrForkMismatch, f.Done, f.Total, b.Done, b.Total)
	}
	if err := b.FixDims(f.In, f.Out); err != nil {
		return err
	}
	if f.Open {
		b.Open = true
		b.Closed = false
	}
	return nil
}

func checkInput(in int, x *array.Matrix, setDim func(int) error) error {
	if x == nil {
		return fmt.Errorf("%w: nil input", ErrInvalidDimension)
	}
	if in == 0 {
		return setDim(x.Cols)
	}
	if in != x.Cols {
		return &InvalidDimensionError{Side: "input", Expected: in, Got: x.Cols}
	}
	return nil
}
