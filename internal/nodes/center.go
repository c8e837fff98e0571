package nodes

import (
	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/node"
)

// Centering вычитает среднее, найденное за одну фазу обучения.
type Centering struct {
	node.Base
	Stats moments   `json:"stats"`
	Mean  []float64 `json:"mean,omitempty"`
}

// NewCentering создаёт Centering.
func NewCentering() *Centering {
	return &Centering{Base: node.NewBase(KindCenter, 1)}
}

func (n *Centering) SetInputDim(d int) error { return n.FixDims(d, d) }

func (n *Centering) Train(x *array.Matrix) error {
	if err := n.PrepareTrain(x, n.SetInputDim); err != nil {
		return err
	}
	n.Stats.add(x, nil)
	return nil
}

func (n *Centering) StopTraining() error {
	if !n.Open || !n.IsTraining() {
		return n.FinishPhase()
	}
	mean, err := n.Stats.mean()
	if err != nil {
		return err
	}
	n.Mean = mean
	n.Stats = moments{}
	return n.FinishPhase()
}

func (n *Centering) Execute(x *array.Matrix) (*array.Matrix, error) {
	if err := n.PrepareExecute(x, n.SetInputDim); err != nil {
		return nil, err
	}
	return subtract(x, n.Mean), nil
}

func (n *Centering) Fork() (node.Node, error) {
	return &Centering{Base: n.ForkBase()}, nil
}

// Join атомарен: при ошибке живой узел не меняется.
func (n *Centering) Join(forks []node.Node) error {
	base, stats := n.Base, n.Stats.clone()
	for i, f := range forks {
		c, ok := f.(*Centering)
		if !ok {
			return forkTypeError(i, KindCenter, f)
		}
		if err := base.JoinBase(&c.Base); err != nil {
			return err
		}
		if err := stats.merge(c.Stats); err != nil {
			return err
		}
	}
	n.Base, n.Stats = base, stats
	return nil
}

func subtract(x *array.Matrix, center []float64) *array.Matrix {
	out := x.Clone()
	for i := 0; i < out.Rows; i++ {
		row := out.Row(i)
		for j := range row {
			row[j] -= center[j]
		}
	}
	return out
}
