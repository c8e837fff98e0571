package nodes

import (
	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/node"
)

// Identity передаёт данные без изменений.
type Identity struct {
	node.Base
}

// NewIdentity создаёт Identity.
func NewIdentity() *Identity {
	return &Identity{Base: node.NewBase(KindIdentity, 0)}
}

func (n *Identity) SetInputDim(d int) error { return n.FixDims(d, d) }

func (n *Identity) Train(x *array.Matrix) error {
	return n.PrepareTrain(x, n.SetInputDim)
}

func (n *Identity) StopTraining() error { return n.FinishPhase() }

func (n *Identity) Execute(x *array.Matrix) (*array.Matrix, error) {
	if err := n.PrepareExecute(x, n.SetInputDim); err != nil {
		return nil, err
	}
	return x.Clone(), nil
}
