package flow

import (
	"encoding/json"
	"fmt"

	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/node"
)

// KindFlow — kind узла FlowNode в реестре.
const KindFlow = "flow"

// FlowNode — Flow, завёрнутый в node.Node.
//
// Фазы FlowNode — это фазы всех вложенных стадий подряд. Train прогоняет
// данные через обученные стадии и учит первую необученную.
type FlowNode struct {
	flow *Flow
	reg  *node.Registry
}

// NewFlowNode создаёт FlowNode. reg нужен только для сериализации.
func NewFlowNode(f *Flow, reg *node.Registry) *FlowNode {
	return &FlowNode{flow: f, reg: reg}
}

// Register добавляет kind "flow" в реестр. Фабрика создаёт пустой узел,
// который заполняется при декодировании.
func Register(r *node.Registry) {
	r.Register(KindFlow, func(node.Params) (node.Node, error) {
		return &FlowNode{reg: r}, nil
	})
}

// Flow возвращает вложенный flow.
func (n *FlowNode) Flow() *Flow { return n.flow }

func (n *FlowNode) Kind() string   { return KindFlow }
func (n *FlowNode) InputDim() int  { return n.flow.InputDim() }
func (n *FlowNode) OutputDim() int { return n.flow.OutputDim() }

func (n *FlowNode) SetInputDim(d int) error {
	if err := n.flow.nodes[0].SetInputDim(d); err != nil {
		return err
	}
	return Nested(KindFlow, n.flow.Propagate(0))
}

func (n *FlowNode) Phases() int {
	total := 0
	for _, s := range n.flow.nodes {
		total += s.Phases()
	}
	return total
}

func (n *FlowNode) Phase() int {
	done := 0
	for _, s := range n.flow.nodes {
		done += s.Phase()
	}
	return done
}

func (n *FlowNode) IsTrainable() bool {
	for _, s := range n.flow.nodes {
		if s.IsTrainable() {
			return true
		}
	}
	return false
}

func (n *FlowNode) IsTraining() bool { return n.flow.IsTraining() }

// Cursor возвращает индекс обучающейся вложенной стадии или -1.
func (n *FlowNode) Cursor() int { return n.flow.TrainingStage() }

func (n *FlowNode) Train(x *array.Matrix) error {
	i := n.flow.TrainingStage()
	if i < 0 {
		return n.orderError("train")
	}
	y, err := Run(n.flow.nodes[:i], 0, x)
	if err != nil {
		return Nested(KindFlow, err)
	}
	if err := n.flow.nodes[i].Train(y); err != nil {
		return Nested(KindFlow, NewFlowError("train", i, n.flow.nodes[i].Phase(), -1, err))
	}
	return nil
}

func (n *FlowNode) StopTraining() error {
	i := n.flow.TrainingStage()
	if i < 0 {
		return n.orderError("stop_training")
	}
	s := n.flow.nodes[i]
	if err := s.StopTraining(); err != nil {
		return Nested(KindFlow, NewFlowError("stop_training", i, s.Phase(), -1, err))
	}
	if !s.IsTraining() {
		return Nested(KindFlow, n.flow.Propagate(i))
	}
	return nil
}

func (n *FlowNode) Execute(x *array.Matrix) (*array.Matrix, error) {
	if n.IsTraining() {
		return nil, &node.UntrainedNodeError{Kind: KindFlow, Phase: n.Phase(), Phases: n.Phases()}
	}
	y, err := Run(n.flow.nodes, 0, x)
	if err != nil {
		return nil, Nested(KindFlow, err)
	}
	return y, nil
}

// ExecutesStatefully — вложенная стадия может быть stateful.
func (n *FlowNode) ExecutesStatefully() bool {
	for _, s := range n.flow.nodes {
		if node.IsStateful(s) {
			return true
		}
	}
	return false
}

func (n *FlowNode) orderError(op string) error {
	reason := "all phases are complete"
	if !n.IsTrainable() {
		reason = "node is not trainable"
	}
	return &node.TrainingOrderError{Op: op, Phase: n.Phase(), Reason: reason}
}

type flowNodeJSON struct {
	Nodes []node.Envelope `json:"nodes"`
}

// MarshalJSON кодирует вложенные стадии через реестр.
func (n *FlowNode) MarshalJSON() ([]byte, error) {
	if n.reg == nil {
		return nil, fmt.Errorf("%w: flow node has no registry", node.ErrUnknownKind)
	}
	envs, err := n.reg.EncodeAll(n.flow.nodes)
	if err != nil {
		return nil, err
	}
	return json.Marshal(flowNodeJSON{Nodes: envs})
}

// UnmarshalJSON восстанавливает вложенные стадии через реестр.
func (n *FlowNode) UnmarshalJSON(data []byte) error {
	if n.reg == nil {
		return fmt.Errorf("%w: flow node has no registry", node.ErrUnknownKind)
	}
	var raw flowNodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	nodes, err := n.reg.DecodeAll(raw.Nodes)
	if err != nil {
		return err
	}
	f, err := New(nodes...)
	if err != nil {
		return err
	}
	n.flow = f
	return nil
}
