package biflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/node"
	"github.com/shaiso/binet/internal/parallel"
	"github.com/shaiso/binet/internal/scheduler"
)

// KindBiExecute — вид задачи одного шага маршрута.
const KindBiExecute = "bi-execute"

// BiExecuteTask выполняет одну стадию BiFlow на одном чанке.
type BiExecuteTask struct {
	TaskID  uuid.UUID
	Index   int
	Stage   int
	Chunk   *array.Matrix
	Node    node.Node
	Message *node.Message
}

// BiResult — выход стадии и её сообщение.
type BiResult struct {
	Data    *array.Matrix `json:"data"`
	Message *node.Message `json:"message,omitempty"`
}

func (t *BiExecuteTask) ID() uuid.UUID { return t.TaskID }
func (t *BiExecuteTask) Kind() string  { return KindBiExecute }

func (t *BiExecuteTask) Run(ctx context.Context) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	y, msg, err := executeStage(t.Node, t.Chunk, t.Message)
	if err != nil {
		return nil, err
	}
	return &BiResult{Data: y, Message: msg}, nil
}

// RegisterCodec добавляет вид bi-execute и ошибки маршрута в codec.
func RegisterCodec(c *parallel.Codec) {
	c.RegisterError("routing_loop", ErrRoutingLoop)
	c.RegisterError("invalid_target", ErrInvalidTarget)
	c.Register(KindBiExecute, parallel.TaskCodec{
		Encode: func(reg *node.Registry, t scheduler.Task) (*parallel.TaskEnvelope, error) {
			bt, ok := t.(*BiExecuteTask)
			if !ok {
				return nil, fmt.Errorf("%w: %T", parallel.ErrUnknownTaskKind, t)
			}
			env, err := reg.Encode(bt.Node)
			if err != nil {
				return nil, err
			}
			return &parallel.TaskEnvelope{
				Stage:   bt.Stage,
				Index:   bt.Index,
				Chunk:   bt.Chunk,
				Node:    &env,
				Message: bt.Message,
			}, nil
		},
		Decode: func(reg *node.Registry, env *parallel.TaskEnvelope) (scheduler.Task, error) {
			if env.Node == nil {
				return nil, fmt.Errorf("%w: bi-execute task without node", parallel.ErrUnexpectedResult)
			}
			n, err := reg.Decode(*env.Node)
			if err != nil {
				return nil, err
			}
			return &BiExecuteTask{
				TaskID:  env.ID,
				Index:   env.Index,
				Stage:   env.Stage,
				Chunk:   env.Chunk,
				Node:    n,
				Message: env.Message,
			}, nil
		},
		EncodeValue: func(_ *node.Registry, v any) (json.RawMessage, error) {
			res, ok := v.(*BiResult)
			if !ok {
				return nil, fmt.Errorf("%w: %T", parallel.ErrUnexpectedResult, v)
			}
			return json.Marshal(res)
		},
		DecodeValue: func(_ *node.Registry, raw json.RawMessage) (any, error) {
			var res BiResult
			if err := json.Unmarshal(raw, &res); err != nil {
				return nil, err
			}
			return &res, nil
		},
	})
}
