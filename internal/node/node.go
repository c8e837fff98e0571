package node

import (
	"github.com/shaiso/binet/internal/array"
)

// Node — обучаемая (или необучаемая) единица преобразования данных.
//
// Размерности равны 0, пока не известны. Один раз установленная
// размерность неизменна.
type Node interface {
	Kind() string
	InputDim() int
	OutputDim() int
	SetInputDim(d int) error

	// Phases — число фаз обучения (0 — узел не обучается).
	Phases() int
	// Phase — число завершённых фаз.
	Phase() int
	IsTrainable() bool
	IsTraining() bool

	Train(x *array.Matrix) error
	StopTraining() error
	Execute(x *array.Matrix) (*array.Matrix, error)
}

// Forkable — узел, текущую фазу которого можно обучать на снимках.
//
// Fork возвращает независимый снимок для одной задачи. Join сливает
// обученные снимки в живой узел; результат не зависит от порядка снимков.
type Forkable interface {
	Node
	Fork() (Node, error)
	Join(forks []Node) error
}

// ForkChecker позволяет составному узлу сообщить, что его текущая фаза
// не форкается, хотя сам тип реализует Forkable.
type ForkChecker interface {
	CanFork() bool
}

// BiNode — узел, участвующий в маршрутизации BiFlow.
type BiNode interface {
	Node
	BiExecute(x *array.Matrix, msg *Message) (*array.Matrix, *Message, error)
}

// StatefulExecutor помечает узлы, чей Execute нельзя дробить на задачи.
type StatefulExecutor interface {
	ExecutesStatefully() bool
}

// AsForkable возвращает Forkable, если текущую фазу узла можно обучать параллельно.
func AsForkable(n Node) (Forkable, bool) {
	f, ok := n.(Forkable)
	if !ok {
		return nil, false
	}
	if c, ok := n.(ForkChecker); ok && !c.CanFork() {
		return nil, false
	}
	return f, true
}

// IsStateful сообщает, что Execute узла должен выполняться последовательно.
func IsStateful(n Node) bool {
	s, ok := n.(StatefulExecutor)
	return ok && s.ExecutesStatefully()
}

// Message — побочный канал BiFlow.
//
// Target — абсолютный индекс стадии либо относительное смещение (Relative).
// Payload, если задан, заменяет данные для целевой стадии.
// Values переносится между стадиями на протяжении одного execute.
type Message struct {
	Target   int                `json:"target"`
	Relative bool               `json:"relative"`
	Payload  *array.Matrix      `json:"payload,omitempty"`
	Values   map[string]float64 `json:"values,omitempty"`
}

// Forward — сообщение обычного прямого хода (+1).
func Forward() *Message {
	return &Message{Target: 1, Relative: true}
}

// To — сообщение с абсолютной целью.
func To(stage int) *Message {
	return &Message{Target: stage}
}

// By — сообщение с относительным смещением.
func By(offset int) *Message {
	return &Message{Target: offset, Relative: true}
}

// Resolve возвращает абсолютный индекс цели относительно текущей стадии.
// nil означает прямой ход.
func (m *Message) Resolve(current int) int {
	if m == nil {
		return current + 1
	}
	if m.Relative {
		return current + m.Target
	}
	return m.Target
}

// IsForward сообщает, что сообщение не меняет маршрут.
func (m *Message) IsForward() bool {
	return m == nil || (m.Relative && m.Target == 1)
}
