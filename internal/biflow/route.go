package biflow

import (
	"context"
	"fmt"
	"maps"

	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/flow"
	"github.com/shaiso/binet/internal/node"
	"github.com/shaiso/binet/internal/telemetry"
)

// route — состояние маршрута одного execute.
type route struct {
	chunk   int
	cursor  int
	hops    int
	data    *array.Matrix
	arrived *node.Message // сообщение, которое привело к текущей стадии
	values  map[string]float64

	observed bool
}

func newRoute(chunk int, x *array.Matrix) *route {
	return &route{chunk: chunk, data: x, values: make(map[string]float64)}
}

func (r *route) finished(length int) bool {
	return r.cursor >= length
}

// delivered — сообщение для BiNode под курсором.
func (r *route) delivered() *node.Message {
	msg := &node.Message{Target: 1, Relative: true, Values: maps.Clone(r.values)}
	if r.arrived != nil {
		msg.Target, msg.Relative = r.arrived.Target, r.arrived.Relative
	}
	return msg
}

// checkBudget проверяет, что ещё один hop допустим.
func (r *route) checkBudget(maxHops int) error {
	if r.hops >= maxHops {
		return &RoutingLoopError{MaxHops: maxHops, Stage: r.cursor, Chunk: r.chunk}
	}
	return nil
}

// advance применяет результат стадии под курсором.
func (r *route) advance(y *array.Matrix, out *node.Message, length int) error {
	r.hops++
	target := out.Resolve(r.cursor)

	valid := target >= 0 && target < length
	if target == length && (out == nil || out.Relative) {
		valid = true
	}
	if !valid {
		return flow.NewFlowError("route", r.cursor, -1, r.chunk,
			fmt.Errorf("%w: %d (flow has %d stages)", ErrInvalidTarget, target, length))
	}

	r.data = y
	if out != nil {
		if out.Payload != nil {
			r.data = out.Payload
		}
		maps.Copy(r.values, out.Values)
	}
	r.arrived = out
	r.cursor = target
	return nil
}

// executeStage выполняет одну стадию с учётом BiNode.
func executeStage(n node.Node, x *array.Matrix, msg *node.Message) (*array.Matrix, *node.Message, error) {
	if bn, ok := n.(node.BiNode); ok {
		return bn.BiExecute(x, msg)
	}
	y, err := n.Execute(x)
	return y, nil, err
}

// runRoute доводит маршрут до конца в текущей горутине.
func runRoute(ctx context.Context, nodes []node.Node, r *route, maxHops int) error {
	for !r.finished(len(nodes)) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.checkBudget(maxHops); err != nil {
			return err
		}
		y, out, err := executeStage(nodes[r.cursor], r.data, r.delivered())
		if err != nil {
			return flow.NewFlowError("execute", r.cursor, -1, r.chunk, err)
		}
		if err := r.advance(y, out, len(nodes)); err != nil {
			return err
		}
	}
	r.observe()
	return nil
}

// observe записывает число hop'ов завершённого маршрута один раз.
func (r *route) observe() {
	if r.observed {
		return
	}
	r.observed = true
	telemetry.RoutingHops.Observe(float64(r.hops))
}
