package parallel

import (
	"context"

	"github.com/google/uuid"
	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/flow"
	"github.com/shaiso/binet/internal/node"
)

// Виды задач.
const (
	KindTrain   = "train"
	KindExecute = "execute"
)

// TrainingTask обучает снимок узла на одном чанке.
//
// Upstream — обученные стадии [0, Stage), только для чтения.
// Node — снимок, принадлежащий задаче. Результат задачи — обученный снимок.
type TrainingTask struct {
	TaskID   uuid.UUID
	Stage    int
	Phase    int
	Index    int
	Chunk    *array.Matrix
	Upstream []node.Node
	Node     node.Node
}

func (t *TrainingTask) ID() uuid.UUID { return t.TaskID }
func (t *TrainingTask) Kind() string  { return KindTrain }

func (t *TrainingTask) Run(ctx context.Context) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	y, err := flow.Run(t.Upstream, 0, t.Chunk)
	if err != nil {
		return nil, err
	}
	if err := t.Node.Train(y); err != nil {
		return nil, err
	}
	return t.Node, nil
}

// ExecuteTask выполняет отрезок стадий [Offset, Offset+len(Nodes)) на одном чанке.
type ExecuteTask struct {
	TaskID uuid.UUID
	Index  int
	Offset int
	Chunk  *array.Matrix
	Nodes  []node.Node
}

func (t *ExecuteTask) ID() uuid.UUID { return t.TaskID }
func (t *ExecuteTask) Kind() string  { return KindExecute }

func (t *ExecuteTask) Run(ctx context.Context) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return flow.Run(t.Nodes, t.Offset, t.Chunk)
}
