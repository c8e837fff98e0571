package engine

import (
	"context"
	"fmt"

	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/biflow"
	"github.com/shaiso/binet/internal/flow"
	"github.com/shaiso/binet/internal/node"
	"github.com/shaiso/binet/internal/parallel"
	"github.com/shaiso/binet/internal/scheduler"
)

// Runner — собранный flow: ParallelFlow или ParallelBiFlow.
type Runner interface {
	Len() int
	Node(i int) node.Node
	Nodes() []node.Node
	InputDim() int
	OutputDim() int
	IsTraining() bool
	Train(ctx context.Context, data [][]*array.Matrix, sched scheduler.Scheduler) error
	ExecuteChunks(ctx context.Context, chunks []*array.Matrix, sched scheduler.Scheduler) (*array.Matrix, error)
}

var (
	_ Runner = (*parallel.ParallelFlow)(nil)
	_ Runner = (*biflow.ParallelBiFlow)(nil)
)

// Build валидирует описание и собирает по нему flow.
func Build(spec *FlowSpec, reg *node.Registry) (Runner, error) {
	if err := Validate(spec, reg); err != nil {
		return nil, err
	}

	stages, err := BuildStages("stages", spec.Stages, reg)
	if err != nil {
		return nil, err
	}

	if spec.FlowType() == TypeBiFlow {
		var opts []biflow.Option
		if spec.MaxHops > 0 {
			opts = append(opts, biflow.WithMaxHops(spec.MaxHops))
		}
		return biflow.NewParallel(stages, opts...)
	}
	return parallel.New(stages...)
}

// BuildStages создаёт узлы для списка стадий.
func BuildStages(path string, defs []StageDef, reg *node.Registry) ([]node.Node, error) {
	out := make([]node.Node, 0, len(defs))
	for i, def := range defs {
		n, err := buildStage(fmt.Sprintf("%s[%d]", path, i), def, reg)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func buildStage(path string, def StageDef, reg *node.Registry) (node.Node, error) {
	if !isFlowKind(def.Kind) {
		n, err := reg.New(def.Kind, node.Params(def.Params))
		if err != nil {
			return nil, NewValidationError(path, "params", err.Error(), fmt.Errorf("%w: %w", ErrInvalidParams, err))
		}
		return n, nil
	}

	children, err := BuildStages(path+".stages", def.Stages, reg)
	if err != nil {
		return nil, err
	}
	inner, err := flow.New(children...)
	if err != nil {
		return nil, NewValidationError(path, "stages", err.Error(), err)
	}

	switch def.Kind {
	case parallel.KindParallelFlow:
		return parallel.NewFlowNode(inner, reg), nil
	case biflow.KindBiFlow, biflow.KindParallelBiFlow:
		hops, _ := node.Params(def.Params).Int("max_hops", 0)
		opts := []biflow.Option{biflow.WithMaxHops(hops)}
		if def.Kind == biflow.KindParallelBiFlow {
			return biflow.NewParallelFlowNode(inner, reg, opts...), nil
		}
		return biflow.NewFlowNode(inner, reg, opts...), nil
	}
	return flow.NewFlowNode(inner, reg), nil
}
