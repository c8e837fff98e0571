package parallel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/flow"
	"github.com/shaiso/binet/internal/node"
	"github.com/shaiso/binet/internal/scheduler"
	"github.com/shaiso/binet/internal/telemetry"
)

// ParallelFlow — Flow, который обучается и выполняется через Scheduler.
type ParallelFlow struct {
	*flow.Flow
}

// New создаёт ParallelFlow.
func New(nodes ...node.Node) (*ParallelFlow, error) {
	f, err := flow.New(nodes...)
	if err != nil {
		return nil, err
	}
	return &ParallelFlow{Flow: f}, nil
}

// Wrap делает ParallelFlow поверх существующего Flow.
func Wrap(f *flow.Flow) *ParallelFlow {
	return &ParallelFlow{Flow: f}
}

// Train обучает flow. nil-планировщик — последовательное обучение.
func (p *ParallelFlow) Train(ctx context.Context, data [][]*array.Matrix, sched scheduler.Scheduler) error {
	if sched == nil {
		return p.Flow.Train(ctx, data)
	}
	if len(data) > p.Len() {
		return fmt.Errorf("%w: %d data entries for %d stages", flow.ErrDataLength, len(data), p.Len())
	}
	for i := 0; i < p.Len(); i++ {
		if err := p.TrainStage(ctx, i, flow.StageData(data, i), sched); err != nil {
			return err
		}
	}
	return nil
}

// TrainStage обучает стадию i всеми фазами через планировщик.
func (p *ParallelFlow) TrainStage(ctx context.Context, i int, chunks []*array.Matrix, sched scheduler.Scheduler) error {
	skip, err := p.SkipStage(ctx, i, chunks)
	if skip || err != nil {
		return err
	}
	if err := p.ResolveInput(chunks[0]); err != nil {
		return err
	}

	n := p.Node(i)
	for n.IsTraining() {
		fn, ok := node.AsForkable(n)
		if !ok {
			telemetry.WithStage(telemetry.FromContext(ctx), i, n.Phase()).
				Debug("stage phase is not forkable, training sequentially")
			if err := p.TrainPhase(ctx, i, chunks); err != nil {
				return err
			}
			continue
		}
		if err := p.trainPhase(ctx, i, fn, chunks, sched); err != nil {
			return err
		}
	}

	telemetry.FromContext(ctx).Info("stage trained", "stage", i, "phases", n.Phases())
	return p.Propagate(i)
}

// trainPhase — одна фаза: fork на каждый чанк, dispatch, join, stop_training.
func (p *ParallelFlow) trainPhase(ctx context.Context, i int, fn node.Forkable, chunks []*array.Matrix, sched scheduler.Scheduler) error {
	start := time.Now()
	phase := fn.Phase()
	logger := telemetry.WithStage(telemetry.FromContext(ctx), i, phase)
	upstream := p.Nodes()[:i]

	tasks := make([]scheduler.Task, 0, len(chunks))
	for c, x := range chunks {
		fork, err := fn.Fork()
		if err != nil {
			return flow.NewFlowError("fork", i, phase, c, err)
		}
		tasks = append(tasks, &TrainingTask{
			TaskID:   uuid.New(),
			Stage:    i,
			Phase:    phase,
			Index:    c,
			Chunk:    x,
			Upstream: upstream,
			Node:     fork,
		})
	}

	// Результат, который нельзя положить в контейнер, тоже не сливается.
	container := NewForkContainer(len(tasks))
	addFork := func(c int, v any) error {
		if err := container.Add(c, v); err != nil {
			return &JoinError{Stage: i, Phase: phase, Err: err}
		}
		return nil
	}
	if c, err := Dispatch(ctx, sched, tasks, addFork); err != nil {
		op := "train"
		if _, ok := err.(*JoinError); ok {
			op = "join"
		}
		return flow.NewFlowError(op, i, phase, c, err)
	}

	forks, err := container.Forks()
	if err != nil {
		return flow.NewFlowError("join", i, phase, -1, &JoinError{Stage: i, Phase: phase, Err: err})
	}
	if err := fn.Join(forks); err != nil {
		return flow.NewFlowError("join", i, phase, -1, &JoinError{Stage: i, Phase: phase, Err: err})
	}
	telemetry.Joins.Inc()

	if err := fn.StopTraining(); err != nil {
		return flow.NewFlowError("stop_training", i, phase, -1, err)
	}

	telemetry.PhaseDuration.Observe(time.Since(start).Seconds())
	logger.Debug("parallel phase complete", "tasks", len(tasks), "duration", time.Since(start))
	return nil
}

// ExecuteChunks выполняет чанки через планировщик и склеивает результат
// в исходном порядке. nil-планировщик — последовательное выполнение.
func (p *ParallelFlow) ExecuteChunks(ctx context.Context, chunks []*array.Matrix, sched scheduler.Scheduler) (*array.Matrix, error) {
	if sched == nil {
		return p.Flow.ExecuteChunks(ctx, chunks)
	}
	if len(chunks) == 0 {
		return array.New(0, 0), nil
	}
	if i := p.TrainingStage(); i >= 0 {
		n := p.Node(i)
		return nil, flow.NewFlowError("execute", i, -1, -1,
			&node.UntrainedNodeError{Kind: n.Kind(), Phase: n.Phase(), Phases: n.Phases()})
	}
	if err := p.ResolveInput(chunks[0]); err != nil {
		return nil, err
	}

	current := chunks
	for _, seg := range Segments(p.Nodes()) {
		var err error
		if seg.Stateful {
			current, err = executeLocal(ctx, seg, current)
		} else {
			current, err = executeRemote(ctx, seg, current, sched)
		}
		if err != nil {
			return nil, err
		}
	}
	return array.VStack(current...)
}

// Segment — отрезок стадий [Offset, Offset+len(Nodes)).
type Segment struct {
	Offset   int
	Nodes    []node.Node
	Stateful bool
}

// Segments делит стадии на отрезки: подряд идущие stateless стадии
// объединяются, каждая stateful стадия — отдельный отрезок.
func Segments(nodes []node.Node) []Segment {
	var out []Segment
	for i, n := range nodes {
		if node.IsStateful(n) {
			out = append(out, Segment{Offset: i, Nodes: []node.Node{n}, Stateful: true})
			continue
		}
		if k := len(out) - 1; k >= 0 && !out[k].Stateful {
			out[k].Nodes = append(out[k].Nodes, n)
			continue
		}
		out = append(out, Segment{Offset: i, Nodes: []node.Node{n}})
	}
	return out
}

func executeLocal(ctx context.Context, seg Segment, chunks []*array.Matrix) ([]*array.Matrix, error) {
	out := make([]*array.Matrix, len(chunks))
	for c, x := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		y, err := flow.Run(seg.Nodes, seg.Offset, x)
		if err != nil {
			if fe, ok := err.(*flow.FlowError); ok && fe.Chunk < 0 {
				fe.Chunk = c
			}
			return nil, err
		}
		out[c] = y
	}
	return out, nil
}

func executeRemote(ctx context.Context, seg Segment, chunks []*array.Matrix, sched scheduler.Scheduler) ([]*array.Matrix, error) {
	tasks := make([]scheduler.Task, 0, len(chunks))
	for c, x := range chunks {
		tasks = append(tasks, &ExecuteTask{
			TaskID: uuid.New(),
			Index:  c,
			Offset: seg.Offset,
			Chunk:  x,
			Nodes:  seg.Nodes,
		})
	}

	container := NewOrderedContainer(len(tasks))
	if c, err := Dispatch(ctx, sched, tasks, container.Add); err != nil {
		return nil, flow.NewFlowError("execute", seg.Offset, -1, c, err)
	}
	return container.Parts()
}
