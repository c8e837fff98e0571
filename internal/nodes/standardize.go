package nodes

import (
	"math"

	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/node"
)

// Standardization приводит столбцы к нулевому среднему и единичной дисперсии.
//
// Фаза 0 копит среднее, фаза 1 — квадраты отклонений от уже найденного
// среднего. Вторая фаза видит результат первой только после join.
type Standardization struct {
	node.Base
	Stats moments   `json:"stats"`
	Mean  []float64 `json:"mean,omitempty"`
	Std   []float64 `json:"std,omitempty"`
}

// NewStandardization создаёт Standardization.
func NewStandardization() *Standardization {
	return &Standardization{Base: node.NewBase(KindStandardize, 2)}
}

func (n *Standardization) SetInputDim(d int) error { return n.FixDims(d, d) }

func (n *Standardization) Train(x *array.Matrix) error {
	if err := n.PrepareTrain(x, n.SetInputDim); err != nil {
		return err
	}
	switch n.Phase() {
	case 0:
		n.Stats.add(x, nil)
	case 1:
		n.Stats.add(x, n.Mean)
	}
	return nil
}

func (n *Standardization) StopTraining() error {
	if !n.Open || !n.IsTraining() {
		return n.FinishPhase()
	}

	switch n.Phase() {
	case 0:
		mean, err := n.Stats.mean()
		if err != nil {
			return err
		}
		n.Mean = mean
	case 1:
		if n.Stats.Count == 0 {
			return ErrEmptyStatistics
		}
		n.Std = make([]float64, len(n.Stats.SqSum))
		for j, s := range n.Stats.SqSum {
			std := math.Sqrt(s / float64(n.Stats.Count))
			if std == 0 {
				std = 1
			}
			n.Std[j] = std
		}
	}
	n.Stats = moments{}
	return n.FinishPhase()
}

func (n *Standardization) Execute(x *array.Matrix) (*array.Matrix, error) {
	if err := n.PrepareExecute(x, n.SetInputDim); err != nil {
		return nil, err
	}
	out := subtract(x, n.Mean)
	for i := 0; i < out.Rows; i++ {
		row := out.Row(i)
		for j := range row {
			row[j] /= n.Std[j]
		}
	}
	return out, nil
}

func (n *Standardization) Fork() (node.Node, error) {
	return &Standardization{Base: n.ForkBase(), Mean: n.Mean}, nil
}

// Join атомарен: при ошибке живой узел не меняется.
func (n *Standardization) Join(forks []node.Node) error {
	base, stats := n.Base, n.Stats.clone()
	for i, f := range forks {
		s, ok := f.(*Standardization)
		if !ok {
			return forkTypeError(i, KindStandardize, f)
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
