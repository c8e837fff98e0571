package array

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFromRows(t *testing.T) {
	m, err := FromRows([][]float64{{1, 2}, {3, 4}, {5, 6}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Rows != 3 || m.Cols != 2 {
		t.Fatalf("expected (3, 2), got (%d, %d)", m.Rows, m.Cols)
	}
	if m.At(2, 1) != 6 {
		t.Errorf("expected 6, got %v", m.At(2, 1))
	}

	// Строки разной длины
	_, err = FromRows([][]float64{{1, 2}, {3}})
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestFromData_InvalidLength(t *testing.T) {
	_, err := FromData(2, 2, []float64{1, 2, 3})
	if !errors.Is(err, ErrInvalidShape) {
		t.Errorf("expected ErrInvalidShape, got %v", err)
	}
}

func TestSplitAndVStack(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	m := Random(rnd, 23, 4)

	parts := m.Split(5)
	if len(parts) != 5 {
		t.Fatalf("expected 5 parts, got %d", len(parts))
	}

	// 23 = 5+5+5+4+4
	sizes := make([]int, 0, len(parts))
	for _, p := range parts {
		sizes = append(sizes, p.Rows)
	}
	if diff := cmp.Diff([]int{5, 5, 5, 4, 4}, sizes); diff != "" {
		t.Errorf("part sizes mismatch (-want +got):\n%s", diff)
	}

	back, err := VStack(parts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(m, back); diff != "" {
		t.Errorf("vstack mismatch (-want +got):\n%s", diff)
	}
}

func TestVStack_Mismatch(t *testing.T) {
	_, err := VStack(New(2, 3), New(1, 4))
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestVStack_SkipsEmpty(t *testing.T) {
	out, err := VStack(nil, New(0, 0), New(2, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Rows != 2 || out.Cols != 3 {
		t.Errorf("expected (2, 3), got (%d, %d)", out.Rows, out.Cols)
	}
}

func TestSelectColumns(t *testing.T) {
	m, _ := FromRows([][]float64{{1, 2, 3}, {4, 5, 6}})
	got := m.SelectColumns([]int{2, 0})
	want, _ := FromRows([][]float64{{3, 1}, {6, 4}})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("select mismatch (-want +got):\n%s", diff)
	}
}

func TestAllClose(t *testing.T) {
	a, _ := FromRows([][]float64{{1, 2}})
	b, _ := FromRows([][]float64{{1 + 1e-12, 2}})
	if !AllClose(a, b, 1e-9, 0) {
		t.Error("expected close matrices")
	}
	c, _ := FromRows([][]float64{{1.1, 2}})
	if AllClose(a, c, 1e-9, 0) {
		t.Error("expected different matrices")
	}
	if AllClose(a, New(2, 1), 1, 1) {
		t.Error("different shapes must not be close")
	}
}

func TestClone_Independent(t *testing.T) {
	m, _ := FromRows([][]float64{{1, 2}})
	c := m.Clone()
	c.Set(0, 0, 42)
	if m.At(0, 0) != 1 {
		t.Error("clone must not share data")
	}
}
