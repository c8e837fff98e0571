package parallel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/node"
	"github.com/shaiso/binet/internal/scheduler"
)

// TaskEnvelope — задача в JSON для удалённого воркера.
type TaskEnvelope struct {
	ID      uuid.UUID       `json:"id"`
	Kind    string          `json:"kind"`
	Stage   int             `json:"stage"`
	Phase   int             `json:"phase"`
	Index   int             `json:"index"`
	Chunk   *array.Matrix   `json:"chunk"`
	Nodes   []node.Envelope `json:"nodes,omitempty"`
	Node    *node.Envelope  `json:"node,omitempty"`
	Message *node.Message   `json:"message,omitempty"`
}

// ResultEnvelope — результат задачи в JSON.
type ResultEnvelope struct {
	TaskID uuid.UUID       `json:"task_id"`
	Kind   string          `json:"kind"`
	Value  json.RawMessage `json:"value,omitempty"`
	Error  string          `json:"error,omitempty"`

	// ErrorKind — имя зарегистрированного sentinel, если ошибка к нему
	// сводится.
	ErrorKind string `json:"error_kind,omitempty"`
}

// TaskCodec описывает один вид задачи.
type TaskCodec struct {
	Encode      func(reg *node.Registry, t scheduler.Task) (*TaskEnvelope, error)
	Decode      func(reg *node.Registry, env *TaskEnvelope) (scheduler.Task, error)
	EncodeValue func(reg *node.Registry, v any) (json.RawMessage, error)
	DecodeValue func(reg *node.Registry, raw json.RawMessage) (any, error)
}

// Codec переводит задачи и результаты в JSON и обратно.
//
// Потокобезопасен.
type Codec struct {
	reg   *node.Registry
	mu    sync.RWMutex
	kinds map[string]TaskCodec
	errs  []errorKind
}

type errorKind struct {
	name     string
	sentinel error
}

// NewCodec создаёт Codec с видами train и execute и sentinel'ами узлов.
func NewCodec(reg *node.Registry) *Codec {
	c := &Codec{reg: reg, kinds: make(map[string]TaskCodec)}
	c.RegisterError("invalid_dimension", node.ErrInvalidDimension)
	c.RegisterError("training_order", node.ErrTrainingOrder)
	c.RegisterError("untrained_node", node.ErrUntrainedNode)
	c.RegisterError("not_forkable", node.ErrNotForkable)
	c.RegisterError("fork_mismatch", node.ErrForkMismatch)
	c.RegisterError("unknown_node_kind", node.ErrUnknownKind)
	c.RegisterError("invalid_param", node.ErrInvalidParam)
	c.RegisterError("unexpected_result", ErrUnexpectedResult)
	c.RegisterError("deadline_exceeded", context.DeadlineExceeded)
	c.RegisterError("canceled", context.Canceled)
	c.Register(KindTrain, TaskCodec{
		Encode:      encodeTraining,
		Decode:      decodeTraining,
		EncodeValue: encodeNodeValue,
		DecodeValue: decodeNodeValue,
	})
	c.Register(KindExecute, TaskCodec{
		Encode:      encodeExecute,
		Decode:      decodeExecute,
		EncodeValue: encodeMatrixValue,
		DecodeValue: decodeMatrixValue,
	})
	return c
}

// Registry возвращает реестр узлов кодека.
func (c *Codec) Registry() *node.Registry { return c.reg }

// Register добавляет вид задачи.
func (c *Codec) Register(kind string, tc TaskCodec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kinds[kind] = tc
}

// RegisterError добавляет sentinel, который переживает передачу
// результата: errors.Is на стороне планировщика найдёт его в RemoteError.
// При совпадении нескольких побеждает зарегистрированный раньше.
func (c *Codec) RegisterError(name string, sentinel error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, k := range c.errs {
		if k.name == name {
			c.errs[i].sentinel = sentinel
			return
		}
	}
	c.errs = append(c.errs, errorKind{name: name, sentinel: sentinel})
}

func (c *Codec) errorKind(err error) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, k := range c.errs {
		if errors.Is(err, k.sentinel) {
			return k.name
		}
	}
	return ""
}

func (c *Codec) sentinel(name string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, k := range c.errs {
		if k.name == name {
			return k.sentinel
		}
	}
	return nil
}

func (c *Codec) get(kind string) (TaskCodec, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tc, ok := c.kinds[kind]
	if !ok {
		return TaskCodec{}, fmt.Errorf("%w: %s", ErrUnknownTaskKind, kind)
	}
	return tc, nil
}

// EncodeTask кодирует задачу.
func (c *Codec) EncodeTask(t scheduler.Task) ([]byte, error) {
	tc, err := c.get(t.Kind())
	if err != nil {
		return nil, err
	}
	env, err := tc.Encode(c.reg, t)
	if err != nil {
		return nil, fmt.Errorf("encode %s task %s: %w", t.Kind(), t.ID(), err)
	}
	env.ID, env.Kind = t.ID(), t.Kind()
	return json.Marshal(env)
}

// DecodeTask восстанавливает задачу.
func (c *Codec) DecodeTask(data []byte) (scheduler.Task, error) {
	var env TaskEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode task envelope: %w", err)
	}
	tc, err := c.get(env.Kind)
	if err != nil {
		return nil, err
	}
	t, err := tc.Decode(c.reg, &env)
	if err != nil {
		return nil, fmt.Errorf("decode %s task %s: %w", env.Kind, env.ID, err)
	}
	return t, nil
}

// EncodeResult кодирует результат задачи вида kind.
func (c *Codec) EncodeResult(kind string, res scheduler.Result) ([]byte, error) {
	env := ResultEnvelope{TaskID: res.TaskID, Kind: kind}
	if res.Err != nil {
		env.Error = res.Err.Error()
		env.ErrorKind = c.errorKind(res.Err)
		return json.Marshal(env)
	}
	tc, err := c.get(kind)
	if err != nil {
		return nil, err
	}
	env.Value, err = tc.EncodeValue(c.reg, res.Value)
	if err != nil {
		return nil, fmt.Errorf("encode %s result %s: %w", kind, res.TaskID, err)
	}
	return json.Marshal(env)
}

// DecodeResult восстанавливает результат. Ошибка задачи приходит строкой
// и превращается в RemoteError; известный error_kind становится её Unwrap.
func (c *Codec) DecodeResult(data []byte) (scheduler.Result, error) {
	var env ResultEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return scheduler.Result{}, fmt.Errorf("decode result envelope: %w", err)
	}
	res := scheduler.Result{TaskID: env.TaskID}
	if env.Error != "" {
		res.Err = &RemoteError{Message: env.Error, Kind: env.ErrorKind, cause: c.sentinel(env.ErrorKind)}
		return res, nil
	}
	tc, err := c.get(env.Kind)
	if err != nil {
		return scheduler.Result{}, err
	}
	res.Value, err = tc.DecodeValue(c.reg, env.Value)
	if err != nil {
		return scheduler.Result{}, fmt.Errorf("decode %s result %s: %w", env.Kind, env.TaskID, err)
	}
	return res, nil
}

// RemoteError — ошибка, произошедшая на удалённом воркере.
type RemoteError struct {
	Message string
	Kind    string // пусто, если ошибка не сводится к известному sentinel

	cause error
}

// Error реализует интерфейс error.
func (e *RemoteError) Error() string {
	return "remote: " + e.Message
}

// Unwrap возвращает sentinel по Kind или nil.
func (e *RemoteError) Unwrap() error {
	return e.cause
}

func encodeTraining(reg *node.Registry, t scheduler.Task) (*TaskEnvelope, error) {
	tt, ok := t.(*TrainingTask)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnknownTaskKind, t)
	}
	upstream, err := reg.EncodeAll(tt.Upstream)
	if err != nil {
		return nil, err
	}
	fork, err := reg.Encode(tt.Node)
	if err != nil {
		return nil, err
	}
	return &TaskEnvelope{
		Stage: tt.Stage,
		Phase: tt.Phase,
		Index: tt.Index,
		Chunk: tt.Chunk,
		Nodes: upstream,
		Node:  &fork,
	}, nil
}

func decodeTraining(reg *node.Registry, env *TaskEnvelope) (scheduler.Task, error) {
	if env.Node == nil {
		return nil, fmt.Errorf("%w: training task without node", ErrUnexpectedResult)
	}
	upstream, err := reg.DecodeAll(env.Nodes)
	if err != nil {
		return nil, err
	}
	fork, err := reg.Decode(*env.Node)
	if err != nil {
		return nil, err
	}
	return &TrainingTask{
		TaskID:   env.ID,
		Stage:    env.Stage,
		Phase:    env.Phase,
		Index:    env.Index,
		Chunk:    env.Chunk,
		Upstream: upstream,
		Node:     fork,
	}, nil
}

func encodeExecute(reg *node.Registry, t scheduler.Task) (*TaskEnvelope, error) {
	et, ok := t.(*ExecuteTask)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnknownTaskKind, t)
	}
	nodes, err := reg.EncodeAll(et.Nodes)
	if err != nil {
		return nil, err
	}
	return &TaskEnvelope{
		Stage: et.Offset,
		Index: et.Index,
		Chunk: et.Chunk,
		Nodes: nodes,
	}, nil
}

func decodeExecute(reg *node.Registry, env *TaskEnvelope) (scheduler.Task, error) {
	nodes, err := reg.DecodeAll(env.Nodes)
	if err != nil {
		return nil, err
	}
	return &ExecuteTask{
		TaskID: env.ID,
		Index:  env.Index,
		Offset: env.Stage,
		Chunk:  env.Chunk,
		Nodes:  nodes,
	}, nil
}

func encodeNodeValue(reg *node.Registry, v any) (json.RawMessage, error) {
	n, ok := v.(node.Node)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnexpectedResult, v)
	}
	env, err := reg.Encode(n)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

func decodeNodeValue(reg *node.Registry, raw json.RawMessage) (any, error) {
	var env node.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return reg.Decode(env)
}

func encodeMatrixValue(_ *node.Registry, v any) (json.RawMessage, error) {
	m, ok := v.(*array.Matrix)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnexpectedResult, v)
	}
	return json.Marshal(m)
}

func decodeMatrixValue(_ *node.Registry, raw json.RawMessage) (any, error) {
	var m array.Matrix
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
