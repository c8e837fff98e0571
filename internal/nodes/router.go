package nodes

import (
	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/node"
)

// Router — BiNode, который отправляет данные на стадию Target.
//
// Число возвратов за один execute хранится в Message.Values[Key];
// после Limit возвратов поток идёт дальше. Limit < 0 — без ограничения.
type Router struct {
	node.Base
	Target int    `json:"target"`
	Limit  int    `json:"limit"`
	Key    string `json:"key"`
}

// NewRouter создаёт Router.
func NewRouter(target, limit int, key string) *Router {
	if key == "" {
		key = KindRouter
	}
	return &Router{Base: node.NewBase(KindRouter, 0), Target: target, Limit: limit, Key: key}
}

func (n *Router) SetInputDim(d int) error { return n.FixDims(d, d) }

func (n *Router) Train(x *array.Matrix) error {
	return n.PrepareTrain(x, n.SetInputDim)
}

func (n *Router) StopTraining() error { return n.FinishPhase() }

func (n *Router) Execute(x *array.Matrix) (*array.Matrix, error) {
	if err := n.PrepareExecute(x, n.SetInputDim); err != nil {
		return nil, err
	}
	return x.Clone(), nil
}

func (n *Router) BiExecute(x *array.Matrix, msg *node.Message) (*array.Matrix, *node.Message, error) {
	y, err := n.Execute(x)
	if err != nil {
		return nil, nil, err
	}

	var seen float64
	if msg != nil {
		seen = msg.Values[n.Key]
	}
	if n.Limit >= 0 && seen >= float64(n.Limit) {
		return y, nil, nil
	}

	out := node.To(n.Target)
	out.Values = map[string]float64{n.Key: seen + 1}
	return y, out, nil
}
