package parallel

import (
	"fmt"

	"github.com/shaiso/binet/internal/flow"
	"github.com/shaiso/binet/internal/node"
)

// KindParallelFlow — kind ParallelFlowNode в реестре.
const KindParallelFlow = "parallel-flow"

// ParallelFlowNode — FlowNode с поддержкой Fork/Join.
//
// Снимок — это FlowNode над обученными вложенными стадиями (общими, только
// для чтения) и снимком текущей стадии. Join сливает последние стадии
// снимков в текущую вложенную стадию.
type ParallelFlowNode struct {
	*flow.FlowNode
	reg *node.Registry
}

// NewFlowNode создаёт ParallelFlowNode. reg нужен для отправки воркерам.
func NewFlowNode(f *flow.Flow, reg *node.Registry) *ParallelFlowNode {
	return &ParallelFlowNode{FlowNode: flow.NewFlowNode(f, reg), reg: reg}
}

// Register добавляет kind "parallel-flow" в реестр.
func Register(r *node.Registry) {
	r.Register(KindParallelFlow, func(node.Params) (node.Node, error) {
		return &ParallelFlowNode{FlowNode: flow.NewFlowNode(nil, r), reg: r}, nil
	})
}

func (n *ParallelFlowNode) Kind() string { return KindParallelFlow }

// CanFork сообщает, форкается ли текущая вложенная стадия.
func (n *ParallelFlowNode) CanFork() bool {
	i := n.Cursor()
	if i < 0 {
		return false
	}
	_, ok := node.AsForkable(n.Flow().Node(i))
	return ok
}

func (n *ParallelFlowNode) Fork() (node.Node, error) {
	i := n.Cursor()
	if i < 0 {
		return nil, fmt.Errorf("%w: no nested stage is training", node.ErrNotForkable)
	}
	fn, ok := node.AsForkable(n.Flow().Node(i))
	if !ok {
		return nil, fmt.Errorf("%w: nested stage %d (%s)", node.ErrNotForkable, i, n.Flow().Node(i).Kind())
	}
	fork, err := fn.Fork()
	if err != nil {
		return nil, err
	}

	stages := append(n.Flow().Nodes()[:i:i], fork)
	sub, err := flow.New(stages...)
	if err != nil {
		return nil, err
	}
	return NewFlowNode(sub, n.reg), nil
}

func (n *ParallelFlowNode) Join(forks []node.Node) error {
	i := n.Cursor()
	if i < 0 {
		return fmt.Errorf("%w: no nested stage is training", node.ErrNotForkable)
	}
	fn, ok := node.AsForkable(n.Flow().Node(i))
	if !ok {
		return fmt.Errorf("%w: nested stage %d", node.ErrNotForkable, i)
	}

	inner := make([]node.Node, 0, len(forks))
	for k, f := range forks {
		pf, ok := f.(*ParallelFlowNode)
		if !ok {
			return fmt.Errorf("%w: fork %d is %T", node.ErrForkMismatch, k, f)
		}
		sub := pf.Flow()
		if sub.Len() != i+1 {
			return fmt.Errorf("%w: fork %d has %d stages, expected %d", node.ErrForkMismatch, k, sub.Len(), i+1)
		}
		inner = append(inner, sub.Node(i))
	}
	return fn.Join(inner)
}
