package biflow

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/flow"
	"github.com/shaiso/binet/internal/node"
	"github.com/shaiso/binet/internal/nodes"
	"github.com/shaiso/binet/internal/parallel"
	"github.com/shaiso/binet/internal/scheduler"
)

// counting — Identity, который считает вызовы Execute.
type counting struct {
	*nodes.Identity
	calls *atomic.Int32
}

func newCounting() counting {
	return counting{Identity: nodes.NewIdentity(), calls: new(atomic.Int32)}
}

func (c counting) Execute(x *array.Matrix) (*array.Matrix, error) {
	c.calls.Add(1)
	return c.Identity.Execute(x)
}

func TestFlowNode_NestedRouterKeepsRoute(t *testing.T) {
	ctx := context.Background()
	x := array.New(2, 2)

	flat := newCounting()
	bf, _ := New([]node.Node{flat, nodes.NewRouter(0, 2, "")})
	if _, err := bf.Execute(ctx, x); err != nil {
		t.Fatalf("execute flat: %v", err)
	}

	nested := newCounting()
	inner, _ := flow.New(nested, nodes.NewRouter(0, 2, ""))
	outer, _ := New([]node.Node{NewFlowNode(inner, nil)})
	if _, err := outer.Execute(ctx, x); err != nil {
		t.Fatalf("execute nested: %v", err)
	}

	if flat.calls.Load() != 3 {
		t.Errorf("expected 3 executions of stage 0, got %d", flat.calls.Load())
	}
	if nested.calls.Load() != flat.calls.Load() {
		t.Errorf("expected nested route to match flat route, got %d vs %d", nested.calls.Load(), flat.calls.Load())
	}
}

func TestFlowNode_NestedValuesLeave(t *testing.T) {
	inner, _ := flow.New(nodes.NewIdentity(), nodes.NewRouter(0, 2, "inner"))

	var seen float64
	last := newScripted(func(_ *array.Matrix, msg *node.Message) *node.Message {
		seen = msg.Values["inner"]
		return nil
	})
	bf, _ := New([]node.Node{NewFlowNode(inner, nil), last})

	if _, err := bf.Execute(context.Background(), array.New(1, 2)); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if seen != 2 {
		t.Errorf("expected inner router count 2 outside, got %v", seen)
	}
}

func TestFlowNode_NestedRoutingLoop(t *testing.T) {
	inner, _ := flow.New(nodes.NewIdentity(), nodes.NewRouter(0, -1, ""))
	bf, _ := New([]node.Node{nodes.NewIdentity(), NewFlowNode(inner, nil, WithMaxHops(4))})

	_, err := bf.Execute(context.Background(), array.New(2, 2))
	var loop *RoutingLoopError
	if !errors.As(err, &loop) || loop.MaxHops != 4 {
		t.Fatalf("expected RoutingLoopError with 4 hops, got %v", err)
	}
	var fe *flow.FlowError
	if !errors.As(err, &fe) || fe.Stage != 1 {
		t.Errorf("expected FlowError at outer stage 1, got %v", err)
	}
}

func TestFlowNode_NestedInvalidTarget(t *testing.T) {
	inner, _ := flow.New(nodes.NewIdentity(), nodes.NewRouter(5, 1, ""))
	bf, _ := New([]node.Node{nodes.NewIdentity(), nodes.NewIdentity(), NewFlowNode(inner, nil)})

	_, err := bf.Execute(context.Background(), array.New(2, 2))
	if !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
	var fe *flow.FlowError
	if !errors.As(err, &fe) || fe.Stage != 2 {
		t.Errorf("expected FlowError at outer stage 2, got %v", err)
	}
	var nested *flow.NestedError
	if !errors.As(err, &nested) || nested.Kind != KindBiFlow {
		t.Errorf("expected NestedError of kind %s, got %v", KindBiFlow, err)
	}
}

func TestFlowNode_Untrained(t *testing.T) {
	inner, _ := flow.New(nodes.NewCentering())
	_, err := NewFlowNode(inner, nil).Execute(array.New(1, 1))
	if !errors.Is(err, node.ErrUntrainedNode) {
		t.Errorf("expected ErrUntrainedNode, got %v", err)
	}
}

// multiphase — standardize (2 фазы) и center, затем возврат на стадию 0.
func multiphase(t *testing.T, par bool, reg *node.Registry) node.Node {
	t.Helper()
	inner, err := flow.New(nodes.NewStandardization(), nodes.NewCentering(), nodes.NewRouter(0, 1, ""))
	if err != nil {
		t.Fatalf("inner: %v", err)
	}
	if par {
		return NewParallelFlowNode(inner, reg)
	}
	return NewFlowNode(inner, reg)
}

func TestParallelFlowNode_MatchesSequential(t *testing.T) {
	ctx := context.Background()
	chunks := randomChunks(21, 6, 20, 10)
	x := array.Random(rand.New(rand.NewSource(22)), 30, 10)

	seq, _ := NewParallel([]node.Node{multiphase(t, false, nil), nodes.NewPolynomial(2)})
	if err := seq.Train(ctx, [][]*array.Matrix{chunks}, nil); err != nil {
		t.Fatalf("sequential train: %v", err)
	}
	want, err := seq.Execute(ctx, x)
	if err != nil {
		t.Fatalf("sequential execute: %v", err)
	}

	par, _ := NewParallel([]node.Node{multiphase(t, true, nil), nodes.NewPolynomial(2)})
	pool := scheduler.NewPool(scheduler.PoolConfig{Workers: 3})
	defer pool.Shutdown(ctx)

	if err := par.Train(ctx, [][]*array.Matrix{chunks}, pool); err != nil {
		t.Fatalf("parallel train: %v", err)
	}
	if got := par.Node(0).Phase(); got != 3 {
		t.Errorf("expected 3 nested phases, got %d", got)
	}

	got, err := par.ExecuteChunks(ctx, x.Split(3), pool)
	if err != nil {
		t.Fatalf("parallel execute: %v", err)
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestParallelFlowNode_ForkKeepsKind(t *testing.T) {
	n := multiphase(t, true, nil).(*ParallelFlowNode)
	fork, err := n.Fork()
	if err != nil {
		t.Fatalf("fork: %v", err)
	}
	if _, ok := fork.(*ParallelFlowNode); !ok {
		t.Fatalf("expected *ParallelFlowNode fork, got %T", fork)
	}
	if err := n.Join([]node.Node{nodes.NewIdentity()}); !errors.Is(err, node.ErrForkMismatch) {
		t.Errorf("expected ErrForkMismatch, got %v", err)
	}
}

func TestFlowNode_RegistryRoundTrip(t *testing.T) {
	reg := nodes.DefaultRegistry()
	flow.Register(reg)
	parallel.Register(reg)
	Register(reg)

	for _, par := range []bool{false, true} {
		inner, _ := flow.New(nodes.NewCentering(), nodes.NewRouter(0, 1, ""))
		var n node.Node = NewFlowNode(inner, reg, WithMaxHops(9))
		if par {
			n = NewParallelFlowNode(inner, reg, WithMaxHops(9))
		}
		for _, c := range randomChunks(23, 2, 5, 3) {
			_ = n.Train(c)
		}
		if err := n.StopTraining(); err != nil {
			t.Fatalf("stop_training: %v", err)
		}

		env, err := reg.Encode(n)
		if err != nil {
			t.Fatalf("encode %s: %v", n.Kind(), err)
		}
		back, err := reg.Decode(env)
		if err != nil {
			t.Fatalf("decode %s: %v", n.Kind(), err)
		}
		if back.Kind() != n.Kind() {
			t.Errorf("expected kind %s, got %s", n.Kind(), back.Kind())
		}
		if h, ok := back.(interface{ MaxHops() int }); !ok || h.MaxHops() != 9 {
			t.Errorf("expected max hops 9 after decode of %s", n.Kind())
		}

		x := randomChunks(24, 1, 4, 3)[0]
		want, _ := n.Execute(x)
		got, err := back.Execute(x)
		if err != nil {
			t.Fatalf("execute decoded %s: %v", n.Kind(), err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("decoded %s output mismatch (-want +got):\n%s", n.Kind(), diff)
		}
	}
}

func TestCodec_NestedBiFlowAndRoutingErrors(t *testing.T) {
	ctx := context.Background()
	reg := nodes.DefaultRegistry()
	flow.Register(reg)
	Register(reg)
	codec := parallel.NewCodec(reg)
	RegisterCodec(codec)

	inner, _ := flow.New(nodes.NewIdentity(), nodes.NewRouter(0, -1, ""))
	task := &BiExecuteTask{
		TaskID: uuid.New(),
		Chunk:  array.New(2, 2),
		Node:   NewFlowNode(inner, reg, WithMaxHops(6)),
	}
	data, err := codec.EncodeTask(task)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := codec.DecodeTask(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	_, runErr := decoded.Run(ctx)
	var loop *RoutingLoopError
	if !errors.As(runErr, &loop) || loop.MaxHops != 6 {
		t.Fatalf("expected RoutingLoopError after 6 hops, got %v", runErr)
	}

	raw, err := codec.EncodeResult(KindBiExecute, scheduler.Result{TaskID: task.ID(), Err: runErr})
	if err != nil {
		t.Fatalf("encode result: %v", err)
	}
	res, err := codec.DecodeResult(raw)
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !errors.Is(res.Err, ErrRoutingLoop) {
		t.Errorf("expected ErrRoutingLoop through the codec, got %v", res.Err)
	}
}
