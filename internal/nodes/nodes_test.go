package nodes

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/node"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func chunks(seed int64, n, rows, cols int) []*array.Matrix {
	rnd := rand.New(rand.NewSource(seed))
	out := make([]*array.Matrix, n)
	for i := range out {
		out[i] = array.Random(rnd, rows, cols)
	}
	return out
}

// trainSequential обучает узел на всех чанках, фаза за фазой.
func trainSequential(t *testing.T, n node.Node, data []*array.Matrix) {
	t.Helper()
	for n.IsTraining() {
		for _, x := range data {
			if err := n.Train(x); err != nil {
				t.Fatalf("train: %v", err)
			}
		}
		if err := n.StopTraining(); err != nil {
			t.Fatalf("stop_training: %v", err)
		}
	}
}

// trainForked обучает узел через fork/join, сливая снимки в порядке order.
func trainForked(t *testing.T, n node.Forkable, data []*array.Matrix, order []int) {
	t.Helper()
	for n.IsTraining() {
		forks := make([]node.Node, len(data))
		for i, x := range data {
			f, err := n.Fork()
			if err != nil {
				t.Fatalf("fork: %v", err)
			}
			if err := f.Train(x); err != nil {
				t.Fatalf("train fork: %v", err)
			}
			forks[i] = f
		}
		ordered := make([]node.Node, 0, len(forks))
		for _, i := range order {
			ordered = append(ordered, forks[i])
		}
		if err := n.Join(ordered); err != nil {
			t.Fatalf("join: %v", err)
		}
		if err := n.StopTraining(); err != nil {
			t.Fatalf("stop_training: %v", err)
		}
	}
}

func TestExpandedDim(t *testing.T) {
	tests := []struct {
		d, degree, want int
	}{
		{10, 1, 10},
		{10, 2, 65},
		{10, 3, 285},
		{2, 2, 5},
	}
	for _, tt := range tests {
		if got := ExpandedDim(tt.d, tt.degree); got != tt.want {
			t.Errorf("ExpandedDim(%d, %d): expected %d, got %d", tt.d, tt.degree, tt.want, got)
		}
	}
}

func TestPolynomial_Execute(t *testing.T) {
	n := NewPolynomial(2)
	x, _ := array.FromRows([][]float64{{2, 3}})

	y, err := n.Execute(x)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// x0, x1, x0², x0·x1, x1²
	want := []float64{2, 3, 4, 6, 9}
	if diff := cmp.Diff(want, y.Data); diff != "" {
		t.Errorf("expansion mismatch (-want +got):\n%s", diff)
	}
	if n.OutputDim() != 5 {
		t.Errorf("expected output dim 5, got %d", n.OutputDim())
	}
}

func TestPolynomial_NotTrainable(t *testing.T) {
	n := NewPolynomial(2)
	if n.IsTrainable() || n.IsTraining() {
		t.Error("polynomial must not be trainable")
	}
	if err := n.Train(array.New(1, 2)); !errors.Is(err, node.ErrTrainingOrder) {
		t.Errorf("expected ErrTrainingOrder, got %v", err)
	}
}

func TestStandardization(t *testing.T) {
	data := chunks(1, 4, 25, 3)
	n := NewStandardization()
	trainSequential(t, n, data)

	if n.Phase() != 2 {
		t.Fatalf("expected 2 completed phases, got %d", n.Phase())
	}

	all, _ := array.VStack(data...)
	y, err := n.Execute(all)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mean := y.ColumnSums()
	for j := range mean {
		mean[j] /= float64(y.Rows)
	}
	if diff := cmp.Diff([]float64{0, 0, 0}, mean, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("mean should be zero (-want +got):\n%s", diff)
	}

	sq := make([]float64, y.Cols)
	for i := 0; i < y.Rows; i++ {
		for j, v := range y.Row(i) {
			sq[j] += v * v
		}
	}
	for j := range sq {
		if math.Abs(sq[j]/float64(y.Rows)-1) > 1e-9 {
			t.Errorf("column %d: expected unit variance, got %v", j, sq[j]/float64(y.Rows))
		}
	}
}

func TestForkJoin_EqualsSequential(t *testing.T) {
	data := chunks(7, 6, 20, 10)

	tests := []struct {
		name string
		make func() node.Forkable
	}{
		{"center", func() node.Forkable { return NewCentering() }},
		{"standardize", func() node.Forkable { return NewStandardization() }},
		{"select", func() node.Forkable { return NewVarianceSelection(4) }},
	}

	orders := [][]int{
		{0, 1, 2, 3, 4, 5},
		{5, 4, 3, 2, 1, 0},
		{3, 0, 5, 1, 4, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := tt.make()
			trainSequential(t, seq, data)

			all, _ := array.VStack(data...)
			want, err := seq.Execute(all)
			if err != nil {
				t.Fatalf("execute: %v", err)
			}

			for _, order := range orders {
				par := tt.make()
				trainForked(t, par, data, order)

				got, err := par.Execute(all)
				if err != nil {
					t.Fatalf("execute: %v", err)
				}
				if diff := cmp.Diff(want, got, approx); diff != "" {
					t.Errorf("order %v: output mismatch (-want +got):\n%s", order, diff)
				}
			}
		})
	}
}

func TestForkJoin_WrongType(t *testing.T) {
	n := NewCentering()
	err := n.Join([]node.Node{NewIdentity()})
	if !errors.Is(err, node.ErrForkMismatch) {
		t.Errorf("expected ErrForkMismatch, got %v", err)
	}
}

func TestVarianceSelection_PicksWidestColumns(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	x := array.New(200, 3)
	scale := []float64{0.1, 10, 1}
	for i := 0; i < x.Rows; i++ {
		for j := 0; j < 3; j++ {
			x.Set(i, j, rnd.NormFloat64()*scale[j])
		}
	}

	n := NewVarianceSelection(2)
	trainSequential(t, n, []*array.Matrix{x})

	if diff := cmp.Diff([]int{1, 2}, n.Columns); diff != "" {
		t.Errorf("selected columns mismatch (-want +got):\n%s", diff)
	}
}

func TestVarianceSelection_TooFewColumns(t *testing.T) {
	n := NewVarianceSelection(5)
	if err := n.Train(array.New(3, 2)); !errors.Is(err, ErrTooFewColumns) {
		t.Errorf("expected ErrTooFewColumns, got %v", err)
	}
}

func TestRouter_BiExecute(t *testing.T) {
	r := NewRouter(0, 2, "loop")
	x := array.New(1, 2)

	_, msg, err := r.BiExecute(x, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Resolve(3) != 0 || msg.Values["loop"] != 1 {
		t.Fatalf("expected route to 0 with count 1, got %+v", msg)
	}

	_, msg, _ = r.BiExecute(x, msg)
	if msg.Values["loop"] != 2 {
		t.Fatalf("expected count 2, got %+v", msg)
	}

	// Лимит исчерпан — прямой ход
	_, msg, _ = r.BiExecute(x, msg)
	if !msg.IsForward() {
		t.Errorf("expected forward message, got %+v", msg)
	}
}

func TestRegistry_RoundTrip(t *testing.T) {
	r := DefaultRegistry()

	n, err := r.New(KindStandardize, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	trainSequential(t, n, chunks(2, 2, 10, 3))

	env, err := r.Encode(n)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := r.Decode(env)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(n, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	if _, err := r.New(KindPolynomial, node.Params{"degree": 0}); !errors.Is(err, node.ErrInvalidParam) {
		t.Errorf("expected ErrInvalidParam, got %v", err)
	}
}
