package nodes

import (
	"fmt"
	"math"
	"sort"

	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/node"
)

// varianceResolution — шаг, с которым сравниваются дисперсии столбцов.
// Без него порядок столбцов с равной дисперсией зависел бы от порядка
// суммирования.
const varianceResolution = 1e-9

// VarianceSelection оставляет OutputDim центрированных столбцов с
// наибольшей дисперсией.
type VarianceSelection struct {
	node.Base
	Stats   moments   `json:"stats"`
	Mean    []float64 `json:"mean,omitempty"`
	Columns []int     `json:"columns,omitempty"`
}

// NewVarianceSelection создаёт узел с фиксированной выходной размерностью.
func NewVarianceSelection(outputDim int) *VarianceSelection {
	n := &VarianceSelection{Base: node.NewBase(KindSelect, 1)}
	n.Out = outputDim
	return n
}

func (n *VarianceSelection) SetInputDim(d int) error {
	if n.Out != 0 && d < n.Out {
		return fmt.Errorf("%w: %d < %d", ErrTooFewColumns, d, n.Out)
	}
	return n.FixDims(d, 0)
}

func (n *VarianceSelection) Train(x *array.Matrix) error {
	if err := n.PrepareTrain(x, n.SetInputDim); err != nil {
		return err
	}
	n.Stats.add(x, nil)
	return nil
}

func (n *VarianceSelection) StopTraining() error {
	if !n.Open || !n.IsTraining() {
		return n.FinishPhase()
	}
	mean, err := n.Stats.mean()
	if err != nil {
		return err
	}
	variance, err := n.Stats.variance()
	if err != nil {
		return err
	}

	cols := make([]int, len(variance))
	for j := range cols {
		cols[j] = j
	}
	// по убыванию дисперсии; дисперсии, совпадающие с точностью
	// varianceResolution, упорядочены по индексу
	key := make([]float64, len(variance))
	for j, v := range variance {
		key[j] = math.Round(v / varianceResolution)
	}
	sort.SliceStable(cols, func(a, b int) bool {
		return key[cols[a]] > key[cols[b]]
	})

	n.Mean = mean
	n.Columns = cols[:n.Out]
	n.Stats = moments{}
	return n.FinishPhase()
}

func (n *VarianceSelection) Execute(x *array.Matrix) (*array.Matrix, error) {
	if err := n.PrepareExecute(x, n.SetInputDim); err != nil {
		return nil, err
	}
	return subtract(x, n.Mean).SelectColumns(n.Columns), nil
}

func (n *VarianceSelection) Fork() (node.Node, error) {
	return &VarianceSelection{Base: n.ForkBase()}, nil
}

// Join атомарен: при ошибке живой узел не меняется.
func (n *VarianceSelection) Join(forks []node.Node) error {
	base, stats := n.Base, n.Stats.clone()
	for i, f := range forks {
		s, ok := f.(*VarianceSelection)
		if !ok {
			return forkTypeError(i, KindSelect, f)
		}
		if err := base.JoinBase(&s.Base); err != nil {
			return err
		}
		if err := stats.merge(s.Stats); err != nil {
			return err
		}
	}
	n.Base, n.Stats = base, stats
	return nil
}
