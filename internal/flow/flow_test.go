package flow

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/node"
	"github.com/shaiso/binet/internal/nodes"
)

func randomChunks(seed int64, n, rows, cols int) []*array.Matrix {
	rnd := rand.New(rand.NewSource(seed))
	out := make([]*array.Matrix, n)
	for i := range out {
		out[i] = array.Random(rnd, rows, cols)
	}
	return out
}

func TestNew_Empty(t *testing.T) {
	if _, err := New(); !errors.Is(err, ErrEmptyFlow) {
		t.Errorf("expected ErrEmptyFlow, got %v", err)
	}
}

func TestNew_DimensionMismatch(t *testing.T) {
	a := nodes.NewPolynomial(2)
	_ = a.SetInputDim(2) // выход 5

	b := nodes.NewIdentity()
	_ = b.SetInputDim(3)

	_, err := New(a, b)
	var dim *node.InvalidDimensionError
	if !errors.As(err, &dim) {
		t.Fatalf("expected InvalidDimensionError, got %v", err)
	}
	var fe *FlowError
	if !errors.As(err, &fe) || fe.Stage != 1 {
		t.Errorf("expected FlowError at stage 1, got %v", err)
	}
}

func TestNew_PropagatesDims(t *testing.T) {
	a := nodes.NewIdentity()
	_ = a.SetInputDim(4)
	b := nodes.NewPolynomial(2)

	f, err := New(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.OutputDim() != nodes.ExpandedDim(4, 2) {
		t.Errorf("expected output dim %d, got %d", nodes.ExpandedDim(4, 2), f.OutputDim())
	}
}

func TestFlow_TrainAndExecute(t *testing.T) {
	ctx := context.Background()
	chunks := randomChunks(1, 6, 20, 10)

	f, err := New(nodes.NewStandardization(), nodes.NewPolynomial(2), nodes.NewVarianceSelection(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Для polynomial данных нет
	if err := f.Train(ctx, [][]*array.Matrix{chunks, nil, chunks}); err != nil {
		t.Fatalf("train: %v", err)
	}
	if f.IsTraining() {
		t.Error("flow should be trained")
	}
	if f.Node(0).Phase() != 2 {
		t.Errorf("expected 2 phases on stage 0, got %d", f.Node(0).Phase())
	}

	x := array.Random(rand.New(rand.NewSource(2)), 100, 10)
	y, err := f.Execute(ctx, x)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if y.Rows != 100 || y.Cols != 5 {
		t.Errorf("expected (100, 5), got (%d, %d)", y.Rows, y.Cols)
	}

	// ExecuteChunks склеивает в исходном порядке
	byChunks, err := f.ExecuteChunks(ctx, x.Split(4))
	if err != nil {
		t.Fatalf("execute chunks: %v", err)
	}
	if diff := cmp.Diff(y, byChunks, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("chunked output mismatch (-want +got):\n%s", diff)
	}
}

func TestFlow_MissingDataForTrainingStage(t *testing.T) {
	f, _ := New(nodes.NewIdentity(), nodes.NewCentering())

	err := f.Train(context.Background(), [][]*array.Matrix{nil, nil})
	var order *node.TrainingOrderError
	if !errors.As(err, &order) {
		t.Fatalf("expected TrainingOrderError, got %v", err)
	}
	var fe *FlowError
	if !errors.As(err, &fe) || fe.Stage != 1 {
		t.Errorf("expected FlowError at stage 1, got %v", err)
	}
}

func TestFlow_DataLength(t *testing.T) {
	f, _ := New(nodes.NewCentering())
	chunks := randomChunks(1, 1, 5, 2)

	err := f.Train(context.Background(), [][]*array.Matrix{chunks, chunks})
	if !errors.Is(err, ErrDataLength) {
		t.Errorf("expected ErrDataLength, got %v", err)
	}
}

func TestFlow_ShortDataMeansNil(t *testing.T) {
	f, _ := New(nodes.NewCentering(), nodes.NewIdentity())
	if err := f.Train(context.Background(), [][]*array.Matrix{randomChunks(1, 2, 5, 3)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFlow_ChunkDimensionError(t *testing.T) {
	f, _ := New(nodes.NewCentering())
	chunks := []*array.Matrix{array.New(3, 4), array.New(3, 5)}

	err := f.Train(context.Background(), [][]*array.Matrix{chunks})
	var fe *FlowError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FlowError, got %v", err)
	}
	if fe.Stage != 0 || fe.Phase != 0 || fe.Chunk != 1 {
		t.Errorf("expected stage 0 phase 0 chunk 1, got %d/%d/%d", fe.Stage, fe.Phase, fe.Chunk)
	}
	if !errors.Is(err, node.ErrInvalidDimension) {
		t.Errorf("expected ErrInvalidDimension, got %v", err)
	}
}

func TestFlow_ExecuteUntrained(t *testing.T) {
	f, _ := New(nodes.NewCentering())
	_, err := f.Execute(context.Background(), array.New(2, 2))
	if !errors.Is(err, node.ErrUntrainedNode) {
		t.Errorf("expected ErrUntrainedNode, got %v", err)
	}
}

func TestFlow_CancelledContext(t *testing.T) {
	f, _ := New(nodes.NewCentering())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.Train(ctx, [][]*array.Matrix{randomChunks(1, 2, 5, 3)})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFlowNode_Phases(t *testing.T) {
	inner, _ := New(nodes.NewStandardization(), nodes.NewPolynomial(2), nodes.NewCentering())
	fn := NewFlowNode(inner, nil)

	if fn.Phases() != 3 {
		t.Fatalf("expected 3 phases, got %d", fn.Phases())
	}

	chunks := randomChunks(3, 3, 10, 2)
	for fn.IsTraining() {
		for _, x := range chunks {
			if err := fn.Train(x); err != nil {
				t.Fatalf("train: %v", err)
			}
		}
		if err := fn.StopTraining(); err != nil {
			t.Fatalf("stop_training: %v", err)
		}
	}

	if fn.Phase() != 3 {
		t.Errorf("expected 3 completed phases, got %d", fn.Phase())
	}
	if fn.InputDim() != 2 || fn.OutputDim() != 5 {
		t.Errorf("expected dims 2/5, got %d/%d", fn.InputDim(), fn.OutputDim())
	}

	// Повторный stop_training
	err := fn.StopTraining()
	if !errors.Is(err, node.ErrTrainingOrder) {
		t.Errorf("expected ErrTrainingOrder, got %v", err)
	}
}

func TestFlowNode_DoubleStopInsidePhase(t *testing.T) {
	inner, _ := New(nodes.NewStandardization())
	fn := NewFlowNode(inner, nil)

	_ = fn.Train(array.New(4, 2))
	if err := fn.StopTraining(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fn.StopTraining(); !errors.Is(err, node.ErrTrainingOrder) {
		t.Errorf("expected ErrTrainingOrder, got %v", err)
	}
}

func TestFlowNode_InsideFlow(t *testing.T) {
	ctx := context.Background()
	inner, _ := New(nodes.NewCentering(), nodes.NewPolynomial(2))
	outer, err := New(NewFlowNode(inner, nil), nodes.NewVarianceSelection(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	chunks := randomChunks(4, 4, 10, 3)
	if err := outer.Train(ctx, [][]*array.Matrix{chunks, chunks}); err != nil {
		t.Fatalf("train: %v", err)
	}

	y, err := outer.Execute(ctx, chunks[0])
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if y.Cols != 3 {
		t.Errorf("expected 3 columns, got %d", y.Cols)
	}
}

func TestFlowNode_JSON(t *testing.T) {
	reg := nodes.DefaultRegistry()
	Register(reg)

	inner, _ := New(nodes.NewCentering(), nodes.NewPolynomial(2))
	fn := NewFlowNode(inner, reg)
	for _, x := range randomChunks(5, 2, 6, 2) {
		_ = fn.Train(x)
	}
	_ = fn.StopTraining()

	env, err := reg.Encode(fn)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	raw, _ := json.Marshal(env)

	var back node.Envelope
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	n, err := reg.Decode(back)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	x := randomChunks(6, 1, 3, 2)[0]
	want, _ := fn.Execute(x)
	got, err := n.Execute(x)
	if err != nil {
		t.Fatalf("execute decoded: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decoded flow node output mismatch (-want +got):\n%s", diff)
	}
}

var errBoom = errors.New("boom")

// failingCenter падает на первом же чанке.
type failingCenter struct {
	*nodes.Centering
}

func (failingCenter) Train(*array.Matrix) error { return errBoom }

func TestFlowNode_InnerErrorReportsOuterStage(t *testing.T) {
	inner, _ := New(failingCenter{nodes.NewCentering()})
	outer, err := New(nodes.NewIdentity(), nodes.NewIdentity(), NewFlowNode(inner, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = outer.Train(context.Background(), [][]*array.Matrix{nil, nil, randomChunks(9, 2, 5, 3)})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var fe *FlowError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FlowError, got %v", err)
	}
	if fe.Stage != 2 || fe.Phase != 0 || fe.Chunk != 0 {
		t.Errorf("expected stage 2 phase 0 chunk 0, got %d/%d/%d", fe.Stage, fe.Phase, fe.Chunk)
	}

	var nested *NestedError
	if !errors.As(fe.Err, &nested) {
		t.Fatalf("expected NestedError under the outer stage, got %v", fe.Err)
	}
	var innerErr *FlowError
	if !errors.As(nested.Err, &innerErr) || innerErr.Stage != 0 || innerErr.Op != "train" {
		t.Errorf("expected inner train error at stage 0, got %v", nested.Err)
	}
}

func TestFlowNode_InnerExecuteErrorReportsOuterStage(t *testing.T) {
	ctx := context.Background()
	inner, _ := New(nodes.NewCentering())
	fn := NewFlowNode(inner, nil)
	for _, x := range randomChunks(10, 2, 5, 3) {
		_ = fn.Train(x)
	}
	if err := fn.StopTraining(); err != nil {
		t.Fatalf("stop_training: %v", err)
	}
	outer, _ := New(nodes.NewIdentity(), fn)

	// Вложенная центровка обучена на 3 столбцах
	_, err := outer.Execute(ctx, array.New(2, 4))
	var fe *FlowError
	if !errors.As(err, &fe) || fe.Stage != 1 || fe.Op != "execute" {
		t.Fatalf("expected outer execute error at stage 1, got %v", err)
	}
	var nested *NestedError
	if !errors.As(err, &nested) {
		t.Fatalf("expected NestedError, got %v", err)
	}
	if !errors.Is(err, node.ErrInvalidDimension) {
		t.Errorf("expected ErrInvalidDimension, got %v", err)
	}
}
