package biflow

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/flow"
	"github.com/shaiso/binet/internal/node"
	"github.com/shaiso/binet/internal/parallel"
)

// Kind'ы вложенных BiFlow в реестре.
const (
	KindBiFlow         = "biflow"
	KindParallelBiFlow = "parallel-biflow"
)

// FlowNode — BiFlow, завёрнутый в node.Node.
//
// Обучение как у flow.FlowNode. Execute ведёт маршрут по вложенным
// стадиям со своим лимитом hop'ов, так что сообщения вложенных BiNode не
// теряются. Снаружи узел — BiNode: Values входящего сообщения доступны
// внутри, накопленные Values уходят дальше, маршрут снаружи идёт на +1.
type FlowNode struct {
	*flow.FlowNode
	maxHops int
}

// NewFlowNode создаёт FlowNode. reg нужен только для сериализации.
func NewFlowNode(f *flow.Flow, reg *node.Registry, opts ...Option) *FlowNode {
	o := buildOptions(opts)
	return &FlowNode{FlowNode: flow.NewFlowNode(f, reg), maxHops: o.maxHops}
}

func (n *FlowNode) Kind() string { return KindBiFlow }

// MaxHops возвращает лимит hop'ов вложенного маршрута.
func (n *FlowNode) MaxHops() int { return n.maxHops }

func (n *FlowNode) Execute(x *array.Matrix) (*array.Matrix, error) {
	y, _, err := n.BiExecute(x, nil)
	return y, err
}

func (n *FlowNode) BiExecute(x *array.Matrix, msg *node.Message) (*array.Matrix, *node.Message, error) {
	return executeNested(KindBiFlow, n.FlowNode, n.maxHops, x, msg)
}

func (n *FlowNode) MarshalJSON() ([]byte, error) {
	return marshalNested(n.FlowNode, n.maxHops)
}

func (n *FlowNode) UnmarshalJSON(data []byte) error {
	return unmarshalNested(n.FlowNode, &n.maxHops, data)
}

// ParallelFlowNode — FlowNode с Fork/Join от parallel.ParallelFlowNode.
type ParallelFlowNode struct {
	*parallel.ParallelFlowNode
	reg     *node.Registry
	maxHops int
}

// NewParallelFlowNode создаёт ParallelFlowNode.
func NewParallelFlowNode(f *flow.Flow, reg *node.Registry, opts ...Option) *ParallelFlowNode {
	o := buildOptions(opts)
	return &ParallelFlowNode{ParallelFlowNode: parallel.NewFlowNode(f, reg), reg: reg, maxHops: o.maxHops}
}

func (n *ParallelFlowNode) Kind() string { return KindParallelBiFlow }

// MaxHops возвращает лимит hop'ов вложенного маршрута.
func (n *ParallelFlowNode) MaxHops() int { return n.maxHops }

func (n *ParallelFlowNode) Execute(x *array.Matrix) (*array.Matrix, error) {
	y, _, err := n.BiExecute(x, nil)
	return y, err
}

func (n *ParallelFlowNode) BiExecute(x *array.Matrix, msg *node.Message) (*array.Matrix, *node.Message, error) {
	return executeNested(KindParallelBiFlow, n.FlowNode, n.maxHops, x, msg)
}

// Fork возвращает снимок того же kind, чтобы он пережил кодек.
func (n *ParallelFlowNode) Fork() (node.Node, error) {
	fork, err := n.ParallelFlowNode.Fork()
	if err != nil {
		return nil, err
	}
	pf, ok := fork.(*parallel.ParallelFlowNode)
	if !ok {
		return nil, fmt.Errorf("%w: fork is %T", node.ErrForkMismatch, fork)
	}
	return &ParallelFlowNode{ParallelFlowNode: pf, reg: n.reg, maxHops: n.maxHops}, nil
}

func (n *ParallelFlowNode) Join(forks []node.Node) error {
	inner := make([]node.Node, 0, len(forks))
	for k, f := range forks {
		bf, ok := f.(*ParallelFlowNode)
		if !ok {
			return fmt.Errorf("%w: fork %d is %T", node.ErrForkMismatch, k, f)
		}
		inner = append(inner, bf.ParallelFlowNode)
	}
	return n.ParallelFlowNode.Join(inner)
}

func (n *ParallelFlowNode) MarshalJSON() ([]byte, error) {
	return marshalNested(n.FlowNode, n.maxHops)
}

func (n *ParallelFlowNode) UnmarshalJSON(data []byte) error {
	return unmarshalNested(n.FlowNode, &n.maxHops, data)
}

// Register добавляет kind'ы "biflow" и "parallel-biflow" в реестр.
func Register(r *node.Registry) {
	r.Register(KindBiFlow, func(node.Params) (node.Node, error) {
		return &FlowNode{FlowNode: flow.NewFlowNode(nil, r), maxHops: DefaultMaxHops}, nil
	})
	r.Register(KindParallelBiFlow, func(node.Params) (node.Node, error) {
		return &ParallelFlowNode{ParallelFlowNode: parallel.NewFlowNode(nil, r), reg: r, maxHops: DefaultMaxHops}, nil
	})
}

func executeNested(kind string, fn *flow.FlowNode, maxHops int, x *array.Matrix, msg *node.Message) (*array.Matrix, *node.Message, error) {
	if fn.IsTraining() {
		return nil, nil, &node.UntrainedNodeError{Kind: kind, Phase: fn.Phase(), Phases: fn.Phases()}
	}
	r := newRoute(-1, x)
	if msg != nil {
		maps.Copy(r.values, msg.Values)
	}
	if err := runRoute(context.Background(), fn.Flow().Nodes(), r, maxHops); err != nil {
		return nil, nil, flow.Nested(kind, err)
	}
	out := node.Forward()
	if len(r.values) > 0 {
		out.Values = r.values
	}
	return r.data, out, nil
}

type nestedJSON struct {
	Flow    json.RawMessage `json:"flow"`
	MaxHops int             `json:"max_hops"`
}

func marshalNested(fn *flow.FlowNode, maxHops int) ([]byte, error) {
	inner, err := fn.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(nestedJSON{Flow: inner, MaxHops: maxHops})
}

func unmarshalNested(fn *flow.FlowNode, maxHops *int, data []byte) error {
	var raw nestedJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := fn.UnmarshalJSON(raw.Flow); err != nil {
		return err
	}
	*maxHops = raw.MaxHops
	if *maxHops <= 0 {
		*maxHops = DefaultMaxHops
	}
	return nil
}
