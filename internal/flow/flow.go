package flow

import (
	"context"
	"fmt"

	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/node"
	"github.com/shaiso/binet/internal/telemetry"
)

// Flow — последовательность узлов.
type Flow struct {
	nodes []node.Node
}

// New создаёт Flow и сверяет известные размерности соседних стадий.
func New(nodes ...node.Node) (*Flow, error) {
	if len(nodes) == 0 {
		return nil, ErrEmptyFlow
	}
	f := &Flow{nodes: append([]node.Node(nil), nodes...)}
	for i := range f.nodes {
		if err := f.Propagate(i); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Len возвращает число стадий.
func (f *Flow) Len() int { return len(f.nodes) }

// Node возвращает стадию i.
func (f *Flow) Node(i int) node.Node { return f.nodes[i] }

// Nodes возвращает копию списка стадий.
func (f *Flow) Nodes() []node.Node {
	return append([]node.Node(nil), f.nodes...)
}

// InputDim — входная размерность первой стадии.
func (f *Flow) InputDim() int { return f.nodes[0].InputDim() }

// OutputDim — выходная размерность последней стадии.
func (f *Flow) OutputDim() int { return f.nodes[len(f.nodes)-1].OutputDim() }

// IsTraining сообщает, что хотя бы одна стадия ещё обучается.
func (f *Flow) IsTraining() bool {
	return f.TrainingStage() >= 0
}

// TrainingStage возвращает индекс первой обучающейся стадии или -1.
func (f *Flow) TrainingStage() int {
	for i, n := range f.nodes {
		if n.IsTraining() {
			return i
		}
	}
	return -1
}

// Propagate пробрасывает выходную размерность стадии i вперёд по flow,
// пока размерности известны.
func (f *Flow) Propagate(i int) error {
	for j := i; j < len(f.nodes)-1; j++ {
		out := f.nodes[j].OutputDim()
		if out == 0 {
			return nil
		}
		next := f.nodes[j+1]
		switch in := next.InputDim(); {
		case in == 0:
			if err := next.SetInputDim(out); err != nil {
				return NewFlowError("build", j+1, -1, -1, err)
			}
		case in != out:
			return NewFlowError("build", j+1, -1, -1,
				&node.InvalidDimensionError{Side: "input", Expected: in, Got: out})
		}
	}
	return nil
}

// Train обучает flow. data[i] — чанки для стадии i; nil — данных нет.
func (f *Flow) Train(ctx context.Context, data [][]*array.Matrix) error {
	if len(data) > len(f.nodes) {
		return fmt.Errorf("%w: %d data entries for %d stages", ErrDataLength, len(data), len(f.nodes))
	}
	for i := range f.nodes {
		if err := f.TrainStage(ctx, i, StageData(data, i)); err != nil {
			return err
		}
	}
	return nil
}

// StageData возвращает чанки стадии i; недостающие записи — nil.
func StageData(data [][]*array.Matrix, i int) []*array.Matrix {
	if i < len(data) {
		return data[i]
	}
	return nil
}

// SkipStage проверяет, нужна ли стадии i обучение. Возвращает true, если
// стадию можно пропустить; ошибка — если стадия обучается, а данных нет.
func (f *Flow) SkipStage(ctx context.Context, i int, chunks []*array.Matrix) (bool, error) {
	n := f.nodes[i]
	if !n.IsTraining() {
		if len(chunks) > 0 {
			telemetry.FromContext(ctx).Warn("ignoring data for a stage that needs no training",
				"stage", i, "chunks", len(chunks))
		}
		return true, f.Propagate(i)
	}
	if len(chunks) == 0 {
		return false, NewFlowError("train", i, n.Phase(), -1, &node.TrainingOrderError{
			Op: "train", Phase: n.Phase(), Reason: "no data for a stage that is still training",
		})
	}
	return false, nil
}

// TrainStage обучает стадию i всеми её фазами.
func (f *Flow) TrainStage(ctx context.Context, i int, chunks []*array.Matrix) error {
	skip, err := f.SkipStage(ctx, i, chunks)
	if skip || err != nil {
		return err
	}

	n := f.nodes[i]
	for n.IsTraining() {
		if err := f.TrainPhase(ctx, i, chunks); err != nil {
			return err
		}
	}

	telemetry.FromContext(ctx).Info("stage trained", "stage", i, "phases", n.Phases())
	return f.Propagate(i)
}

// TrainPhase проводит одну фазу стадии i: каждый чанк проходит через
// стадии [0, i) и подаётся в Train, затем вызывается StopTraining.
func (f *Flow) TrainPhase(ctx context.Context, i int, chunks []*array.Matrix) error {
	n := f.nodes[i]
	phase := n.Phase()
	upstream := f.nodes[:i]

	for c, x := range chunks {
		if err := ctx.Err(); err != nil {
			return NewFlowError("train", i, phase, c, err)
		}
		y, err := Run(upstream, 0, x)
		if err != nil {
			return NewFlowError("train", i, phase, c, err)
		}
		if err := n.Train(y); err != nil {
			return NewFlowError("train", i, phase, c, err)
		}
	}
	if err := n.StopTraining(); err != nil {
		return NewFlowError("stop_training", i, phase, -1, err)
	}

	telemetry.WithStage(telemetry.FromContext(ctx), i, phase).Debug("phase complete", "chunks", len(chunks))
	return nil
}

// ResolveInput фиксирует входную размерность flow по первому чанку и
// пробрасывает известные размерности. Нужен перед параллельной работой,
// чтобы задачи не меняли общие узлы.
func (f *Flow) ResolveInput(x *array.Matrix) error {
	if x == nil {
		return nil
	}
	if f.nodes[0].InputDim() == 0 {
		if err := f.nodes[0].SetInputDim(x.Cols); err != nil {
			return NewFlowError("build", 0, -1, -1, err)
		}
	}
	return f.Propagate(0)
}

// Execute прогоняет x через все стадии.
func (f *Flow) Execute(ctx context.Context, x *array.Matrix) (*array.Matrix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Run(f.nodes, 0, x)
}

// ExecuteChunks выполняет каждый чанк и склеивает результаты в исходном порядке.
func (f *Flow) ExecuteChunks(ctx context.Context, chunks []*array.Matrix) (*array.Matrix, error) {
	outs := make([]*array.Matrix, len(chunks))
	for c, x := range chunks {
		y, err := f.Execute(ctx, x)
		if err != nil {
			if fe, ok := err.(*FlowError); ok && fe.Chunk < 0 {
				fe.Chunk = c
			}
			return nil, err
		}
		outs[c] = y
	}
	return array.VStack(outs...)
}

// Run прогоняет x через nodes. offset — индекс первой стадии во flow,
// нужен только для сообщений об ошибках.
func Run(nodes []node.Node, offset int, x *array.Matrix) (*array.Matrix, error) {
	y := x
	for i, n := range nodes {
		out, err := n.Execute(y)
		if err != nil {
			return nil, NewFlowError("execute", offset+i, -1, -1, err)
		}
		y = out
	}
	return y, nil
}
