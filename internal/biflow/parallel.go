package biflow

import (
	"context"

	"github.com/google/uuid"
	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/flow"
	"github.com/shaiso/binet/internal/node"
	"github.com/shaiso/binet/internal/parallel"
	"github.com/shaiso/binet/internal/scheduler"
	"github.com/shaiso/binet/internal/telemetry"
)

// ParallelBiFlow — BiFlow с параллельным обучением и execute.
type ParallelBiFlow struct {
	*parallel.ParallelFlow
	maxHops int
}

// NewParallel создаёт ParallelBiFlow.
func NewParallel(nodes []node.Node, opts ...Option) (*ParallelBiFlow, error) {
	pf, err := parallel.New(nodes...)
	if err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &ParallelBiFlow{ParallelFlow: pf, maxHops: o.maxHops}, nil
}

// MaxHops возвращает лимит hop'ов.
func (p *ParallelBiFlow) MaxHops() int { return p.maxHops }

// Execute прогоняет x по маршруту в вызывающей горутине.
func (p *ParallelBiFlow) Execute(ctx context.Context, x *array.Matrix) (*array.Matrix, error) {
	r := newRoute(-1, x)
	if err := runRoute(ctx, p.Nodes(), r, p.maxHops); err != nil {
		return nil, err
	}
	return r.data, nil
}

// ExecuteChunks выполняет чанки шеренгой через планировщик. nil-планировщик —
// последовательное выполнение.
func (p *ParallelBiFlow) ExecuteChunks(ctx context.Context, chunks []*array.Matrix, sched scheduler.Scheduler) (*array.Matrix, error) {
	nodes := p.Nodes()
	routes := make([]*route, len(chunks))
	for c, x := range chunks {
		routes[c] = newRoute(c, x)
	}
	if len(chunks) == 0 {
		return array.New(0, 0), nil
	}

	if sched != nil {
		if i := p.TrainingStage(); i >= 0 {
			n := p.Node(i)
			return nil, flow.NewFlowError("execute", i, -1, -1,
				&node.UntrainedNodeError{Kind: n.Kind(), Phase: n.Phase(), Phases: n.Phases()})
		}
		if err := p.ResolveInput(chunks[0]); err != nil {
			return nil, err
		}
		if err := p.executeJoint(ctx, nodes, routes, sched); err != nil {
			return nil, err
		}
	}

	// Дорабатываем маршруты, разошедшиеся с шеренгой
	for _, r := range routes {
		if err := runRoute(ctx, nodes, r, p.maxHops); err != nil {
			return nil, err
		}
	}

	outs := make([]*array.Matrix, len(routes))
	for c, r := range routes {
		outs[c] = r.data
	}
	return array.VStack(outs...)
}

// executeJoint двигает все маршруты вместе, пока они указывают на одну стадию.
func (p *ParallelBiFlow) executeJoint(ctx context.Context, nodes []node.Node, routes []*route, sched scheduler.Scheduler) error {
	logger := telemetry.FromContext(ctx)

	for !routes[0].finished(len(nodes)) {
		stage := routes[0].cursor
		for _, r := range routes {
			if err := r.checkBudget(p.maxHops); err != nil {
				return err
			}
		}

		results, err := p.step(ctx, nodes[stage], stage, routes, sched)
		if err != nil {
			return err
		}
		for c, r := range routes {
			if err := r.advance(results[c].Data, results[c].Message, len(nodes)); err != nil {
				return err
			}
		}

		if !together(routes) {
			logger.Debug("chunk routes diverged, continuing sequentially", "stage", stage, "chunks", len(routes))
			return nil
		}
	}

	for _, r := range routes {
		r.observe()
	}
	return nil
}

// step выполняет стадию на всех чанках. Stateful стадии — в вызывающей горутине.
func (p *ParallelBiFlow) step(ctx context.Context, n node.Node, stage int, routes []*route, sched scheduler.Scheduler) ([]*BiResult, error) {
	results := make([]*BiResult, len(routes))

	if node.IsStateful(n) {
		for c, r := range routes {
			y, msg, err := executeStage(n, r.data, r.delivered())
			if err != nil {
				return nil, flow.NewFlowError("execute", stage, -1, c, err)
			}
			results[c] = &BiResult{Data: y, Message: msg}
		}
		return results, nil
	}

	tasks := make([]scheduler.Task, 0, len(routes))
	for c, r := range routes {
		tasks = append(tasks, &BiExecuteTask{
			TaskID:  uuid.New(),
			Index:   c,
			Stage:   stage,
			Chunk:   r.data,
			Node:    n,
			Message: r.delivered(),
		})
	}

	add := func(i int, v any) error {
		res, ok := v.(*BiResult)
		if !ok {
			return flow.NewFlowError("execute", stage, -1, i, parallel.ErrUnexpectedResult)
		}
		results[i] = res
		return nil
	}
	if c, err := parallel.Dispatch(ctx, sched, tasks, add); err != nil {
		return nil, flow.NewFlowError("execute", stage, -1, c, err)
	}
	return results, nil
}

// together сообщает, что все маршруты стоят на одной стадии.
func together(routes []*route) bool {
	for _, r := range routes[1:] {
		if r.cursor != routes[0].cursor {
			return false
		}
	}
	return true
}
